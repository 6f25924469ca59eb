// Package schema creates the content tables and seeds the root node.
package schema

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-content-repository/models"
	"github.com/goliatone/go-content-repository/persistence/dtos"
)

// Models lists every row model in creation order.
func Models() []any {
	return []any{
		(*dtos.NodeDto)(nil),
		(*dtos.ContentTypeDto)(nil),
		(*dtos.DataTypeDto)(nil),
		(*dtos.DataTypePreValueDto)(nil),
		(*dtos.PropertyTypeDto)(nil),
		(*dtos.ContentDto)(nil),
		(*dtos.ContentVersionDto)(nil),
		(*dtos.PropertyDataDto)(nil),
		(*dtos.MemberDto)(nil),
		(*dtos.Member2MemberGroupDto)(nil),
		(*dtos.TagDto)(nil),
		(*dtos.TagRelationshipDto)(nil),
		(*dtos.TaskDto)(nil),
		(*dtos.User2NodeNotifyDto)(nil),
		(*dtos.User2NodePermissionDto)(nil),
		(*dtos.RelationDto)(nil),
		(*dtos.ContentXmlDto)(nil),
	}
}

var indexes = []struct {
	name    string
	model   any
	columns []string
}{
	{"IX_umbracoNodeParentId", (*dtos.NodeDto)(nil), []string{"parentID"}},
	{"IX_umbracoNodeObjectType", (*dtos.NodeDto)(nil), []string{"nodeObjectType"}},
	{"IX_cmsContentVersion_ContentId", (*dtos.ContentVersionDto)(nil), []string{"ContentId"}},
	{"IX_cmsPropertyData_versionId", (*dtos.PropertyDataDto)(nil), []string{"versionId"}},
	{"IX_cmsPropertyData_contentNodeId", (*dtos.PropertyDataDto)(nil), []string{"contentNodeId"}},
	{"IX_cmsTags", (*dtos.TagDto)(nil), []string{"tag", "group"}},
}

// Create creates the tables when missing and seeds the root node.
func Create(ctx context.Context, db bun.IDB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "create table failed")
		}
	}

	for _, ix := range indexes {
		if _, err := db.NewCreateIndex().
			Model(ix.model).
			Index(ix.name).
			Column(ix.columns...).
			IfNotExists().
			Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "create index failed").
				WithMetadata(map[string]any{"index": ix.name})
		}
	}

	return seedRoot(ctx, db)
}

func seedRoot(ctx context.Context, db bun.IDB) error {
	exists, err := db.NewSelect().
		Model((*dtos.NodeDto)(nil)).
		Where("id = ?", models.RootID).
		Exists(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "root lookup failed")
	}
	if exists {
		return nil
	}

	root := &dtos.NodeDto{
		NodeID:         models.RootID,
		ParentID:       models.RootID,
		UserID:         sql.NullInt64{Int64: 0, Valid: true},
		Level:          0,
		Path:           "-1",
		SortOrder:      0,
		UniqueID:       models.ObjectTypeSystemRoot,
		Text:           "SYSTEM DATA: umbraco master root",
		NodeObjectType: models.ObjectTypeSystemRoot,
		CreateDate:     time.Now().UTC(),
	}
	if _, err := db.NewInsert().Model(root).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "seed root failed")
	}
	return nil
}
