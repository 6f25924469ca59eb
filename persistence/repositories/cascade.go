package repositories

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-content-repository/persistence/dtos"
)

// cascadeStep deletes the rows of one table whose column holds the node id.
type cascadeStep struct {
	model  any
	column string
}

// memberCascade lists the deletes run before a member node is removed, in
// foreign key order.
var memberCascade = []cascadeStep{
	{(*dtos.TaskDto)(nil), "nodeId"},
	{(*dtos.User2NodeNotifyDto)(nil), "nodeId"},
	{(*dtos.User2NodePermissionDto)(nil), "nodeId"},
	{(*dtos.RelationDto)(nil), "parentId"},
	{(*dtos.RelationDto)(nil), "childId"},
	{(*dtos.TagRelationshipDto)(nil), "nodeId"},
	{(*dtos.PropertyDataDto)(nil), "contentNodeId"},
	{(*dtos.Member2MemberGroupDto)(nil), "Member"},
	{(*dtos.MemberDto)(nil), "nodeId"},
	{(*dtos.ContentVersionDto)(nil), "ContentId"},
	{(*dtos.ContentXmlDto)(nil), "nodeId"},
	{(*dtos.ContentDto)(nil), "nodeId"},
	{(*dtos.NodeDto)(nil), "id"},
}

var memberGroupCascade = []cascadeStep{
	{(*dtos.User2NodeNotifyDto)(nil), "nodeId"},
	{(*dtos.User2NodePermissionDto)(nil), "nodeId"},
	{(*dtos.RelationDto)(nil), "parentId"},
	{(*dtos.RelationDto)(nil), "childId"},
	{(*dtos.TagRelationshipDto)(nil), "nodeId"},
	{(*dtos.Member2MemberGroupDto)(nil), "MemberGroup"},
	{(*dtos.NodeDto)(nil), "id"},
}

func runCascade(ctx context.Context, db bun.IDB, steps []cascadeStep, id int) error {
	for _, step := range steps {
		if _, err := db.NewDelete().
			Model(step.model).
			Where("? = ?", bun.Ident(step.column), id).
			Exec(ctx); err != nil {
			return storageError(err, "cascade delete failed")
		}
	}
	return nil
}
