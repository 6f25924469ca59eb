// Package dtos holds the bun row models. Table and column names match the
// stored schema exactly and must not be renamed.
package dtos

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type NodeDto struct {
	bun.BaseModel `bun:"table:umbracoNode,alias:umbracoNode"`

	NodeID         int           `bun:"id,pk,autoincrement"`
	Trashed        bool          `bun:"trashed,notnull"`
	ParentID       int           `bun:"parentID,notnull"`
	UserID         sql.NullInt64 `bun:"nodeUser"`
	Level          int           `bun:"level,notnull"`
	Path           string        `bun:"path,notnull,type:varchar(150)"`
	SortOrder      int           `bun:"sortOrder,notnull"`
	UniqueID       uuid.UUID     `bun:"uniqueID,notnull,type:varchar(36)"`
	Text           string        `bun:"text,type:varchar(255)"`
	NodeObjectType uuid.UUID     `bun:"nodeObjectType,type:varchar(36)"`
	CreateDate     time.Time     `bun:"createDate,notnull"`
}

type ContentDto struct {
	bun.BaseModel `bun:"table:cmsContent,alias:cmsContent"`

	PrimaryKey    int `bun:"column:pk,pk,autoincrement"`
	NodeID        int `bun:"nodeId,notnull,unique"`
	ContentTypeID int `bun:"contentType,notnull"`
}

type ContentVersionDto struct {
	bun.BaseModel `bun:"table:cmsContentVersion,alias:cmsContentVersion"`

	ID          int       `bun:"id,pk,autoincrement"`
	NodeID      int       `bun:"ContentId,notnull"`
	VersionID   uuid.UUID `bun:"VersionId,notnull,unique,type:varchar(36)"`
	VersionDate time.Time `bun:"VersionDate,notnull"`
}

type ContentTypeDto struct {
	bun.BaseModel `bun:"table:cmsContentType,alias:cmsContentType"`

	PrimaryKey  int    `bun:"column:pk,pk,autoincrement"`
	NodeID      int    `bun:"nodeId,notnull,unique"`
	Alias       string `bun:"alias,type:varchar(255)"`
	Icon        string `bun:"icon,type:varchar(255)"`
	Thumbnail   string `bun:"thumbnail,notnull,type:varchar(255)"`
	Description string `bun:"description,type:varchar(1500)"`
	IsContainer bool   `bun:"isContainer,notnull"`
	AllowAtRoot bool   `bun:"allowAtRoot,notnull"`
}

type PropertyTypeDto struct {
	bun.BaseModel `bun:"table:cmsPropertyType,alias:cmsPropertyType"`

	ID               int       `bun:"id,pk,autoincrement"`
	DataTypeID       int       `bun:"dataTypeId,notnull"`
	ContentTypeID    int       `bun:"contentTypeId,notnull"`
	Alias            string    `bun:"Alias,notnull,type:varchar(255)"`
	Name             string    `bun:"Name,type:varchar(255)"`
	SortOrder        int       `bun:"sortOrder,notnull"`
	Mandatory        bool      `bun:"mandatory,notnull"`
	ValidationRegExp string    `bun:"validationRegExp,type:varchar(255)"`
	Description      string    `bun:"Description,type:varchar(2000)"`
	UniqueID         uuid.UUID `bun:"UniqueID,notnull,type:varchar(36)"`
}

type DataTypeDto struct {
	bun.BaseModel `bun:"table:cmsDataType,alias:cmsDataType"`

	PrimaryKey          int    `bun:"column:pk,pk,autoincrement"`
	NodeID              int    `bun:"nodeId,notnull,unique"`
	PropertyEditorAlias string `bun:"propertyEditorAlias,notnull,type:varchar(255)"`
	DbType              string `bun:"dbType,notnull,type:varchar(50)"`
}

type DataTypePreValueDto struct {
	bun.BaseModel `bun:"table:cmsDataTypePreValues,alias:cmsDataTypePreValues"`

	ID             int    `bun:"id,pk,autoincrement"`
	DataTypeNodeID int    `bun:"datatypeNodeId,notnull"`
	Value          string `bun:"value"`
	SortOrder      int    `bun:"sortorder,notnull"`
	Alias          string `bun:"alias,type:varchar(50)"`
}

// PropertyTypeReadDto is a property type joined with its data type.
type PropertyTypeReadDto struct {
	ID                  int            `bun:"id"`
	DataTypeID          int            `bun:"data_type_id"`
	ContentTypeID       int            `bun:"content_type_id"`
	Alias               string         `bun:"alias"`
	Name                sql.NullString `bun:"name"`
	SortOrder           int            `bun:"sort_order"`
	Mandatory           bool           `bun:"mandatory"`
	ValidationRegExp    sql.NullString `bun:"validation_reg_exp"`
	Description         sql.NullString `bun:"description"`
	UniqueID            uuid.UUID      `bun:"unique_id"`
	PropertyEditorAlias sql.NullString `bun:"property_editor_alias"`
	DbType              sql.NullString `bun:"db_type"`
}
