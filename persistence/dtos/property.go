package dtos

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type PropertyDataDto struct {
	bun.BaseModel `bun:"table:cmsPropertyData,alias:cmsPropertyData"`

	ID             int             `bun:"id,pk,autoincrement"`
	NodeID         int             `bun:"contentNodeId,notnull"`
	VersionID      uuid.UUID       `bun:"versionId,type:varchar(36)"`
	PropertyTypeID int             `bun:"propertytypeid,notnull"`
	Integer        sql.NullInt64   `bun:"dataInt"`
	Decimal        sql.NullFloat64 `bun:"dataDecimal,type:decimal(38,6)"`
	Date           sql.NullTime    `bun:"dataDate,type:timestamp"`
	VarChar        sql.NullString  `bun:"dataNvarchar,type:varchar(500)"`
	Text           sql.NullString  `bun:"dataNtext,type:text"`
}

// PropertyDataReadDto is a property data row joined with its property type.
type PropertyDataReadDto struct {
	ID                  int             `bun:"id"`
	NodeID              int             `bun:"node_id"`
	VersionID           uuid.UUID       `bun:"version_id"`
	PropertyTypeID      int             `bun:"property_type_id"`
	Integer             sql.NullInt64   `bun:"data_int"`
	Decimal             sql.NullFloat64 `bun:"data_decimal"`
	Date                sql.NullTime    `bun:"data_date"`
	VarChar             sql.NullString  `bun:"data_nvarchar"`
	Text                sql.NullString  `bun:"data_ntext"`
	PropertyTypeAlias   sql.NullString  `bun:"property_type_alias"`
	PropertyDataTypeID  sql.NullInt64   `bun:"data_type_id"`
	PropertyEditorAlias sql.NullString  `bun:"property_editor_alias"`
}

type TagDto struct {
	bun.BaseModel `bun:"table:cmsTags,alias:cmsTags"`

	ID       int           `bun:"id,pk,autoincrement"`
	Tag      string        `bun:"tag,notnull,type:varchar(200)"`
	Group    string        `bun:"group,notnull,type:varchar(100)"`
	ParentID sql.NullInt64 `bun:"parentId"`
}

type TagRelationshipDto struct {
	bun.BaseModel `bun:"table:cmsTagRelationship,alias:cmsTagRelationship"`

	NodeID         int `bun:"nodeId,pk"`
	TagID          int `bun:"tagId,pk"`
	PropertyTypeID int `bun:"propertyTypeId,pk"`
}
