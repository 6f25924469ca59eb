package repositories

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-content-repository/models"
	"github.com/goliatone/go-content-repository/persistence/dtos"
	"github.com/goliatone/go-content-repository/persistence/factories"
	"github.com/goliatone/go-content-repository/persistence/querying"
	"github.com/goliatone/go-content-repository/propertyeditors"
)

// DocumentDefinition identifies one version of a content item whose
// properties are loaded.
type DocumentDefinition struct {
	ID          int
	Version     uuid.UUID
	VersionDate time.Time
	CreateDate  time.Time
	ContentType *models.ContentType
}

type versionKey struct {
	id      int
	version uuid.UUID
}

var propertyDataColumns = []string{
	`"cmsPropertyData"."id" AS "id"`,
	`"cmsPropertyData"."contentNodeId" AS "node_id"`,
	`"cmsPropertyData"."versionId" AS "version_id"`,
	`"cmsPropertyData"."propertytypeid" AS "property_type_id"`,
	`"cmsPropertyData"."dataInt" AS "data_int"`,
	`"cmsPropertyData"."dataDecimal" AS "data_decimal"`,
	`"cmsPropertyData"."dataDate" AS "data_date"`,
	`"cmsPropertyData"."dataNvarchar" AS "data_nvarchar"`,
	`"cmsPropertyData"."dataNtext" AS "data_ntext"`,
	`"cmsPropertyType"."Alias" AS "property_type_alias"`,
	`"cmsPropertyType"."dataTypeId" AS "data_type_id"`,
	`"cmsDataType"."propertyEditorAlias" AS "property_editor_alias"`,
}

// GetPropertyCollection loads the properties of every definition, keyed by
// content id. Tag enabled properties get their tags parsed from the stored
// value. When two definitions share an id the later one wins.
func (b *VersionableRepositoryBase[T]) GetPropertyCollection(ctx context.Context, defs []DocumentDefinition) (map[int]*models.PropertyCollection, error) {
	result := make(map[int]*models.PropertyCollection, len(defs))
	if len(defs) == 0 {
		return result, nil
	}

	wanted := make(map[versionKey]struct{}, len(defs))
	versions := make([]uuid.UUID, 0, len(defs))
	for _, def := range defs {
		k := versionKey{def.ID, def.Version}
		if _, ok := wanted[k]; ok {
			continue
		}
		wanted[k] = struct{}{}
		versions = append(versions, def.Version)
	}

	rows, err := b.fetchPropertyData(ctx, versions)
	if err != nil {
		return nil, err
	}

	byVersion := make(map[versionKey][]dtos.PropertyDataReadDto, len(wanted))
	for _, row := range rows {
		k := versionKey{row.NodeID, row.VersionID}
		if _, ok := wanted[k]; !ok {
			continue
		}
		byVersion[k] = append(byVersion[k], row)
	}

	var preValues map[int]models.PreValueCollection
	loadPreValues := func() error {
		if preValues != nil {
			return nil
		}
		var err error
		preValues, err = preValueCollections(ctx, b.db, tagDataTypeIDs(defs, b.editors))
		return err
	}

	for _, def := range defs {
		props := factories.BuildProperties(def.ContentType, def.Version, byVersion[versionKey{def.ID, def.Version}])
		for _, p := range props.All() {
			capability := b.editors.Capability(p.PropertyType().PropertyEditorAlias)
			if !capability.SupportsTags {
				continue
			}
			if err := loadPreValues(); err != nil {
				return nil, err
			}
			p.TagSupport = models.TagSupport{
				Enable:   true,
				Behavior: capability.Tags.Behavior(),
				Tags:     propertyeditors.ExtractTags(p.Value(), capability.Tags, preValues[p.PropertyType().DataTypeID]),
			}
		}

		if _, dup := result[def.ID]; dup {
			alias := ""
			if def.ContentType != nil {
				alias = def.ContentType.Alias
			}
			b.logger.Warn("query returned multiple property sets for document definition",
				"id", def.ID,
				"content_type", alias,
			)
		}
		result[def.ID] = props
	}
	return result, nil
}

func (b *VersionableRepositoryBase[T]) fetchPropertyData(ctx context.Context, versions []uuid.UUID) ([]dtos.PropertyDataReadDto, error) {
	var out []dtos.PropertyDataReadDto
	for batch := range slices.Chunk(versions, b.cfg.PropertyBatchSize) {
		s := querying.Select(propertyDataColumns...).
			From(`"cmsPropertyData"`).
			LeftJoin(`"cmsPropertyType"`, `"cmsPropertyType"."id" = "cmsPropertyData"."propertytypeid"`).
			LeftJoin(`"cmsDataType"`, `"cmsDataType"."nodeId" = "cmsPropertyType"."dataTypeId"`).
			WhereIn(`"cmsPropertyData"."versionId"`, batch)

		var rows []dtos.PropertyDataReadDto
		if err := s.Raw(b.db).Scan(ctx, &rows); err != nil {
			return nil, storageError(err, "property data lookup failed")
		}
		out = append(out, rows...)
	}
	return out, nil
}

// tagDataTypeIDs lists the data types of the tag enabled property types of
// the definitions.
func tagDataTypeIDs(defs []DocumentDefinition, editors *propertyeditors.Collection) []int {
	var ids []int
	seen := make(map[*models.ContentType]struct{})
	for _, def := range defs {
		if def.ContentType == nil {
			continue
		}
		if _, ok := seen[def.ContentType]; ok {
			continue
		}
		seen[def.ContentType] = struct{}{}
		for _, pt := range def.ContentType.PropertyTypes {
			if editors.Capability(pt.PropertyEditorAlias).SupportsTags {
				ids = append(ids, pt.DataTypeID)
			}
		}
	}
	return distinctInts(ids)
}

// preValueCollections loads the pre-values of the given data types.
func preValueCollections(ctx context.Context, db bun.IDB, dataTypeIDs []int) (map[int]models.PreValueCollection, error) {
	out := make(map[int]models.PreValueCollection, len(dataTypeIDs))
	if len(dataTypeIDs) == 0 {
		return out, nil
	}

	var rows []dtos.DataTypePreValueDto
	if err := db.NewSelect().
		Model(&rows).
		Where(`"datatypeNodeId" IN (?)`, bun.In(dataTypeIDs)).
		OrderExpr(`"sortorder" ASC, "id" ASC`).
		Scan(ctx); err != nil {
		return nil, storageError(err, "pre-value lookup failed")
	}

	for _, row := range rows {
		c := out[row.DataTypeNodeID]
		c.DataTypeID = row.DataTypeNodeID
		c.Values = append(c.Values, factories.BuildPreValue(row))
		out[row.DataTypeNodeID] = c
	}
	return out, nil
}
