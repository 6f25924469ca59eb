package dtos

import (
	"database/sql"
	"time"

	"github.com/uptrace/bun"
)

// The rows below are only written by other subsystems. They exist here so
// the schema can be created and the delete cascades have their targets.

type TaskDto struct {
	bun.BaseModel `bun:"table:cmsTask,alias:cmsTask"`

	ID         int       `bun:"id,pk,autoincrement"`
	Closed     bool      `bun:"closed,notnull"`
	TaskTypeID int       `bun:"taskTypeId,notnull"`
	NodeID     int       `bun:"nodeId,notnull"`
	ParentUser int       `bun:"parentUserId,notnull"`
	UserID     int       `bun:"userId,notnull"`
	DateTime   time.Time `bun:"DateTime,notnull"`
	Comment    string    `bun:"Comment,type:varchar(500)"`
}

type User2NodeNotifyDto struct {
	bun.BaseModel `bun:"table:umbracoUser2NodeNotify,alias:umbracoUser2NodeNotify"`

	UserID int    `bun:"userId,pk"`
	NodeID int    `bun:"nodeId,pk"`
	Action string `bun:"action,pk,type:char(1)"`
}

type User2NodePermissionDto struct {
	bun.BaseModel `bun:"table:umbracoUser2NodePermission,alias:umbracoUser2NodePermission"`

	UserID     int    `bun:"userId,pk"`
	NodeID     int    `bun:"nodeId,pk"`
	Permission string `bun:"permission,pk,type:varchar(255)"`
}

type RelationDto struct {
	bun.BaseModel `bun:"table:umbracoRelation,alias:umbracoRelation"`

	ID       int       `bun:"id,pk,autoincrement"`
	ParentID int       `bun:"parentId,notnull"`
	ChildID  int       `bun:"childId,notnull"`
	RelType  int       `bun:"relType,notnull"`
	Datetime time.Time `bun:"datetime,notnull"`
	Comment  string    `bun:"comment,type:varchar(1000)"`
}

type ContentXmlDto struct {
	bun.BaseModel `bun:"table:cmsContentXml,alias:cmsContentXml"`

	NodeID int            `bun:"nodeId,pk"`
	Xml    sql.NullString `bun:"xml,type:text"`
}
