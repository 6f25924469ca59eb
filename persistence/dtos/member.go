package dtos

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type MemberDto struct {
	bun.BaseModel `bun:"table:cmsMember,alias:cmsMember"`

	NodeID    int    `bun:"nodeId,pk"`
	Email     string `bun:"Email,notnull,type:varchar(1000)"`
	LoginName string `bun:"LoginName,notnull,type:varchar(1000)"`
	Password  string `bun:"Password,notnull,type:varchar(1000)"`
}

type Member2MemberGroupDto struct {
	bun.BaseModel `bun:"table:cmsMember2MemberGroup,alias:cmsMember2MemberGroup"`

	Member      int `bun:"Member,pk"`
	MemberGroup int `bun:"MemberGroup,pk"`
}

// MemberReadDto is one row of the flattened member query. Every selected
// column is aliased to one of these names.
type MemberReadDto struct {
	NodeID           int            `bun:"node_id"`
	UniqueID         uuid.UUID      `bun:"unique_id"`
	ParentID         int            `bun:"parent_id"`
	Level            int            `bun:"level"`
	Path             string         `bun:"path"`
	SortOrder        int            `bun:"sort_order"`
	Trashed          bool           `bun:"trashed"`
	UserID           sql.NullInt64  `bun:"node_user"`
	Text             string         `bun:"text"`
	CreateDate       time.Time      `bun:"create_date"`
	ContentTypeID    int            `bun:"content_type_id"`
	ContentTypeAlias string         `bun:"content_type_alias"`
	VersionPK        int            `bun:"version_pk"`
	VersionID        uuid.UUID      `bun:"version_id"`
	VersionDate      time.Time      `bun:"version_date"`
	Email            string         `bun:"email"`
	LoginName        string         `bun:"login_name"`
	Password         string         `bun:"password"`
	CustomPropVal    sql.NullString `bun:"custom_prop_val"`
}
