// Package factories maps entities to their rows and back.
package factories

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-content-repository/models"
	"github.com/goliatone/go-content-repository/persistence/dtos"
)

// BuildProperties assembles a property for every property type of ct. Rows
// that match a property type hydrate it; the others are new properties on
// the given version.
func BuildProperties(ct *models.ContentType, version uuid.UUID, rows []dtos.PropertyDataReadDto) *models.PropertyCollection {
	byType := make(map[int]dtos.PropertyDataReadDto, len(rows))
	for _, row := range rows {
		byType[row.PropertyTypeID] = row
	}

	props := models.NewPropertyCollection()
	if ct == nil {
		return props
	}
	for _, pt := range ct.PropertyTypes {
		row, ok := byType[pt.ID]
		if !ok || pt.ID <= 0 {
			p := models.NewProperty(pt)
			p.SetVersion(version)
			props.Add(p)
			continue
		}
		props.Add(models.HydrateProperty(row.ID, pt, version, ReadValue(row, pt.StorageType)))
	}
	return props
}

// ReadValue returns the stored value in the Go type of its storage kind:
// int, float64, time.Time or string. A NULL column reads as nil.
func ReadValue(row dtos.PropertyDataReadDto, storage models.StorageType) any {
	switch storage {
	case models.StorageInteger:
		if row.Integer.Valid {
			return int(row.Integer.Int64)
		}
	case models.StorageDecimal:
		if row.Decimal.Valid {
			return row.Decimal.Float64
		}
	case models.StorageDate:
		if row.Date.Valid {
			return row.Date.Time
		}
	case models.StorageNvarchar:
		if row.VarChar.Valid {
			return row.VarChar.String
		}
	case models.StorageNtext:
		if row.Text.Valid {
			return row.Text.String
		}
	}
	return nil
}

// BuildPropertyDataDto maps a property to its row. Values that cannot be
// converted to the storage kind are stored as NULL.
func BuildPropertyDataDto(nodeID int, version uuid.UUID, p *models.Property) dtos.PropertyDataDto {
	pt := p.PropertyType()
	dto := dtos.PropertyDataDto{
		ID:             p.ID(),
		NodeID:         nodeID,
		VersionID:      version,
		PropertyTypeID: pt.ID,
	}

	value := p.Value()
	if value == nil {
		return dto
	}

	switch pt.StorageType {
	case models.StorageInteger:
		if n, ok := toInt(value); ok {
			dto.Integer = sql.NullInt64{Int64: n, Valid: true}
		}
	case models.StorageDecimal:
		if f, ok := toFloat(value); ok {
			dto.Decimal = sql.NullFloat64{Float64: f, Valid: true}
		}
	case models.StorageDate:
		if t, ok := toTime(value); ok {
			dto.Date = sql.NullTime{Time: t, Valid: true}
		}
	case models.StorageNtext:
		dto.Text = sql.NullString{String: toString(value), Valid: true}
	default:
		dto.VarChar = sql.NullString{String: toString(value), Valid: true}
	}
	return dto
}

// BuildPropertyDataDtos maps every property to its row.
func BuildPropertyDataDtos(nodeID int, version uuid.UUID, props []*models.Property) []dtos.PropertyDataDto {
	out := make([]dtos.PropertyDataDto, 0, len(props))
	for _, p := range props {
		out = append(out, BuildPropertyDataDto(nodeID, version, p))
	}
	return out
}

func toInt(v any) (int64, bool) {
	switch t := v.(type) {
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return int64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if b, err := strconv.ParseBool(s); err == nil {
			if b {
				return 1, true
			}
			return 0, true
		}
		n, err := strconv.ParseInt(s, 10, 64)
		return n, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	case time.Time:
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}
