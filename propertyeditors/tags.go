package propertyeditors

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-content-repository/models"
)

// Pre-value aliases read by the tag extractor.
const (
	PreValueGroup       = "group"
	PreValueStorageType = "storageType"
)

// ExtractTags parses a raw property value into tags. The group and storage
// format come from the data type's pre-values and fall back to cfg.
func ExtractTags(value any, cfg TagConfig, preValues models.PreValueCollection) []models.TagValue {
	list, isList := value.([]string)
	raw := valueString(value)
	if !isList && strings.TrimSpace(raw) == "" {
		return nil
	}

	group := cfg.DefaultGroup
	if g, ok := preValues.Get(PreValueGroup); ok && strings.TrimSpace(g) != "" {
		group = strings.TrimSpace(g)
	}
	if group == "" {
		group = "default"
	}

	storage := cfg.Storage
	if s, ok := preValues.Get(PreValueStorageType); ok {
		if strings.EqualFold(s, "json") {
			storage = TagStorageJSON
		} else if strings.EqualFold(s, "csv") {
			storage = TagStorageCSV
		}
	}

	var texts []string
	switch {
	case isList:
		texts = list
	case storage == TagStorageJSON:
		if err := json.Unmarshal([]byte(raw), &texts); err != nil {
			texts = splitTags(raw, cfg.Delimiter)
		}
	default:
		texts = splitTags(raw, cfg.Delimiter)
	}

	seen := make(map[string]struct{}, len(texts))
	out := make([]models.TagValue, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, models.TagValue{Text: t, Group: group})
	}
	return out
}

func splitTags(raw, delimiter string) []string {
	if delimiter == "" {
		delimiter = ","
	}
	return strings.Split(raw, delimiter)
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
