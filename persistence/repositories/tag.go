package repositories

import (
	"context"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-content-repository/logging"
	"github.com/goliatone/go-content-repository/models"
	"github.com/goliatone/go-content-repository/persistence/dtos"
	"github.com/goliatone/go-content-repository/persistence/querying"
)

// TagRepository stores tags and their links to entity properties.
type TagRepository struct {
	db     bun.IDB
	logger *slog.Logger
}

func NewTagRepository(db bun.IDB, opts Options) *TagRepository {
	opts = opts.withDefaults()
	return &TagRepository{db: db, logger: logging.Component(opts.Logger, "tag_repository")}
}

// WithTx returns a copy of the repository running on tx.
func (r *TagRepository) WithTx(tx bun.IDB) *TagRepository {
	out := *r
	out.db = tx
	return &out
}

var tagColumns = []string{
	`"cmsTags"."id" AS "id"`,
	`"cmsTags"."tag" AS "text"`,
	`"cmsTags"."group" AS "group"`,
	`(SELECT COUNT(DISTINCT r2."nodeId") FROM "cmsTagRelationship" r2 WHERE r2."tagId" = "cmsTags"."id") AS "node_count"`,
}

type tagRow struct {
	ID        int    `bun:"id"`
	Text      string `bun:"text"`
	Group     string `bun:"group"`
	NodeCount int    `bun:"node_count"`
}

// AssignTagsToProperty links tags to a property of a node, creating the tags
// that do not exist yet. With replace the property's current links are
// dropped first.
func (r *TagRepository) AssignTagsToProperty(ctx context.Context, nodeID, propertyTypeID int, tags []models.TagValue, replace bool) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if replace {
			if _, err := tx.NewDelete().
				Model((*dtos.TagRelationshipDto)(nil)).
				Where(`"nodeId" = ?`, nodeID).
				Where(`"propertyTypeId" = ?`, propertyTypeID).
				Exec(ctx); err != nil {
				return storageError(err, "clear property tags failed")
			}
		}
		if len(tags) == 0 {
			return nil
		}

		ids, err := ensureTags(ctx, tx, tags)
		if err != nil {
			return err
		}

		var existing []dtos.TagRelationshipDto
		if err := tx.NewSelect().
			Model(&existing).
			Where(`"nodeId" = ?`, nodeID).
			Where(`"propertyTypeId" = ?`, propertyTypeID).
			Scan(ctx); err != nil {
			return storageError(err, "tag relation lookup failed")
		}
		linked := make(map[int]struct{}, len(existing))
		for _, rel := range existing {
			linked[rel.TagID] = struct{}{}
		}

		for _, id := range ids {
			if _, ok := linked[id]; ok {
				continue
			}
			rel := &dtos.TagRelationshipDto{NodeID: nodeID, TagID: id, PropertyTypeID: propertyTypeID}
			if _, err := tx.NewInsert().Model(rel).Exec(ctx); err != nil {
				return storageError(err, "insert tag relation failed")
			}
			linked[id] = struct{}{}
		}
		r.logger.Debug("assigned tags to property", "node_id", nodeID, "property_type_id", propertyTypeID, "tags", len(ids))
		return nil
	})
}

// RemoveTagsFromProperty unlinks the given tags from a property of a node.
// The tags themselves are kept.
func (r *TagRepository) RemoveTagsFromProperty(ctx context.Context, nodeID, propertyTypeID int, tags []models.TagValue) error {
	if len(tags) == 0 {
		return nil
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ids, err := findTags(ctx, tx, tags)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if _, err := tx.NewDelete().
			Model((*dtos.TagRelationshipDto)(nil)).
			Where(`"nodeId" = ?`, nodeID).
			Where(`"propertyTypeId" = ?`, propertyTypeID).
			Where(`"tagId" IN (?)`, bun.In(ids)).
			Exec(ctx); err != nil {
			return storageError(err, "remove property tags failed")
		}
		return nil
	})
}

// ClearTagsFromEntity unlinks every tag of a node.
func (r *TagRepository) ClearTagsFromEntity(ctx context.Context, nodeID int) error {
	if _, err := r.db.NewDelete().
		Model((*dtos.TagRelationshipDto)(nil)).
		Where(`"nodeId" = ?`, nodeID).
		Exec(ctx); err != nil {
		return storageError(err, "clear entity tags failed")
	}
	return nil
}

// GetTagsForEntity returns the tags linked to a node, optionally of one
// group.
func (r *TagRepository) GetTagsForEntity(ctx context.Context, nodeID int, group string) ([]models.Tag, error) {
	s := r.tagsSql(nodeID, group)
	return r.fetch(ctx, s)
}

// GetTagsForProperty returns the tags linked to one property of a node,
// optionally of one group.
func (r *TagRepository) GetTagsForProperty(ctx context.Context, nodeID int, propertyTypeAlias, group string) ([]models.Tag, error) {
	s := r.tagsSql(nodeID, group).
		InnerJoin(`"cmsPropertyType"`, `"cmsPropertyType"."id" = "cmsTagRelationship"."propertyTypeId"`).
		Where(`"cmsPropertyType"."Alias" = ?`, propertyTypeAlias)
	return r.fetch(ctx, s)
}

func (r *TagRepository) tagsSql(nodeID int, group string) *querying.Sql {
	s := querying.Select(tagColumns...).
		From(`"cmsTags"`).
		InnerJoin(`"cmsTagRelationship"`, `"cmsTagRelationship"."tagId" = "cmsTags"."id"`).
		Where(`"cmsTagRelationship"."nodeId" = ?`, nodeID)
	if group != "" {
		s.Where(`"cmsTags"."group" = ?`, group)
	}
	return s.GroupBy(`"cmsTags"."id"`, `"cmsTags"."tag"`, `"cmsTags"."group"`).
		OrderBy(`"cmsTags"."group"`, `"cmsTags"."tag"`)
}

func (r *TagRepository) fetch(ctx context.Context, s *querying.Sql) ([]models.Tag, error) {
	var rows []tagRow
	if err := s.Raw(r.db).Scan(ctx, &rows); err != nil {
		return nil, storageError(err, "tag lookup failed")
	}
	out := make([]models.Tag, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.Tag{ID: row.ID, Text: row.Text, Group: row.Group, NodeCount: row.NodeCount})
	}
	return out, nil
}

// ensureTags returns the ids of the tags, inserting the missing ones. Ids
// follow the order of tags with duplicates removed.
func ensureTags(ctx context.Context, db bun.IDB, tags []models.TagValue) ([]int, error) {
	ids := make([]int, 0, len(tags))
	seen := make(map[models.TagValue]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}

		var rows []dtos.TagDto
		if err := db.NewSelect().
			Model(&rows).
			Where(`"tag" = ?`, t.Text).
			Where(`"group" = ?`, t.Group).
			Limit(1).
			Scan(ctx); err != nil {
			return nil, storageError(err, "tag lookup failed")
		}
		if len(rows) > 0 {
			ids = append(ids, rows[0].ID)
			continue
		}

		row := &dtos.TagDto{Tag: t.Text, Group: t.Group}
		if _, err := db.NewInsert().Model(row).Exec(ctx); err != nil {
			return nil, storageError(err, "insert tag failed")
		}
		ids = append(ids, row.ID)
	}
	return ids, nil
}

func findTags(ctx context.Context, db bun.IDB, tags []models.TagValue) ([]int, error) {
	var ids []int
	for _, t := range tags {
		var rows []dtos.TagDto
		if err := db.NewSelect().
			Model(&rows).
			Where(`"tag" = ?`, t.Text).
			Where(`"group" = ?`, t.Group).
			Scan(ctx); err != nil {
			return nil, storageError(err, "tag lookup failed")
		}
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
	}
	return distinctInts(ids), nil
}
