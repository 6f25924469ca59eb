// Package repositories persists the content entities. Every repository runs
// on a bun.IDB, so the same repository code works on a database handle or
// inside a transaction obtained through WithTx.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-content-repository/config"
	"github.com/goliatone/go-content-repository/logging"
	"github.com/goliatone/go-content-repository/notifications"
	"github.com/goliatone/go-content-repository/persistence/dtos"
	"github.com/goliatone/go-content-repository/persistence/querying"
	"github.com/goliatone/go-content-repository/persistence/sqlsyntax"
	"github.com/goliatone/go-content-repository/propertyeditors"
)

// Options holds the collaborators shared by every repository.
type Options struct {
	Logger  *slog.Logger
	Syntax  sqlsyntax.Provider
	Editors *propertyeditors.Collection
	Config  config.RepositoryConfig
	// Now is the clock used for create and update dates. Defaults to UTC now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	if o.Syntax == nil {
		o.Syntax = sqlsyntax.NewSQLite()
	}
	if o.Editors == nil {
		o.Editors = propertyeditors.NewCollection(propertyeditors.Defaults()...)
	}
	def := config.DefaultRepositoryConfig()
	if o.Config.PropertyBatchSize <= 0 {
		o.Config.PropertyBatchSize = def.PropertyBatchSize
	}
	if o.Config.RoleBatchSize <= 0 {
		o.Config.RoleBatchSize = def.RoleBatchSize
	}
	if o.Config.GroupCacheTTL <= 0 {
		o.Config.GroupCacheTTL = def.GroupCacheTTL
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	return o
}

// versionHooks are the entity specific parts of the version operations.
type versionHooks[T any] struct {
	getByVersion         func(ctx context.Context, versionID uuid.UUID) (T, bool, error)
	performDeleteVersion func(ctx context.Context, tx bun.IDB, id int, versionID uuid.UUID) error
}

// VersionableRepositoryBase holds the version, count, paging and property
// loading operations shared by the versioned repositories.
type VersionableRepositoryBase[T any] struct {
	db         bun.IDB
	syntax     sqlsyntax.Provider
	logger     *slog.Logger
	editors    *propertyeditors.Collection
	cfg        config.RepositoryConfig
	now        func() time.Time
	objectType uuid.UUID
	events     *notifications.Registry[T]
	hooks      versionHooks[T]
	sortCase   *lazyFragment
}

func newVersionableRepositoryBase[T any](db bun.IDB, objectType uuid.UUID, events *notifications.Registry[T], opts Options, component string) *VersionableRepositoryBase[T] {
	opts = opts.withDefaults()
	if events == nil {
		events = notifications.NewRegistry[T]()
	}
	return &VersionableRepositoryBase[T]{
		db:         db,
		syntax:     opts.Syntax,
		logger:     logging.Component(opts.Logger, component),
		editors:    opts.Editors,
		cfg:        opts.Config,
		now:        opts.Now,
		objectType: objectType,
		events:     events,
		sortCase:   &lazyFragment{},
	}
}

// withDB returns a copy of the base running on db. Hooks are rebound by the
// owning repository.
func (b *VersionableRepositoryBase[T]) withDB(db bun.IDB) *VersionableRepositoryBase[T] {
	out := *b
	out.db = db
	out.hooks = versionHooks[T]{}
	return &out
}

// DB returns the handle the repository runs on.
func (b *VersionableRepositoryBase[T]) DB() bun.IDB { return b.db }

// Events returns the notification registry of the entity type.
func (b *VersionableRepositoryBase[T]) Events() *notifications.Registry[T] { return b.events }

// GetVersionIDs returns the version ids of a content item, newest first.
// maxRows <= 0 returns every version.
func (b *VersionableRepositoryBase[T]) GetVersionIDs(ctx context.Context, id int, maxRows int) ([]uuid.UUID, error) {
	return versionIDs(ctx, b.db, id, maxRows)
}

func versionIDs(ctx context.Context, db bun.IDB, id int, maxRows int) ([]uuid.UUID, error) {
	var rows []dtos.ContentVersionDto
	q := db.NewSelect().
		Model(&rows).
		Where(`"ContentId" = ?`, id).
		OrderExpr(`"VersionDate" DESC, "id" DESC`)
	if maxRows > 0 {
		q = q.Limit(maxRows)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, storageError(err, "version lookup failed")
	}

	out := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.VersionID)
	}
	return out, nil
}

// GetAllVersions rehydrates every version of a content item, newest first.
// A missing id yields an empty result.
func (b *VersionableRepositoryBase[T]) GetAllVersions(ctx context.Context, id int) ([]T, error) {
	ids, err := b.GetVersionIDs(ctx, id, 0)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(ids))
	for _, versionID := range ids {
		entity, ok, err := b.hooks.getByVersion(ctx, versionID)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, entity)
		}
	}
	return out, nil
}

// DeleteVersion removes one version. Missing versions and the latest version
// of a content item are left alone.
func (b *VersionableRepositoryBase[T]) DeleteVersion(ctx context.Context, versionID uuid.UUID) error {
	return b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var rows []dtos.ContentVersionDto
		if err := tx.NewSelect().
			Model(&rows).
			Where(`"VersionId" = ?`, versionID).
			Limit(1).
			Scan(ctx); err != nil {
			return storageError(err, "version lookup failed")
		}
		if len(rows) == 0 {
			return nil
		}

		nodeID := rows[0].NodeID
		latest, err := versionIDs(ctx, tx, nodeID, 1)
		if err != nil {
			return err
		}
		if len(latest) > 0 && latest[0] == versionID {
			b.logger.Debug("skipping delete of latest version", "id", nodeID, "version", versionID)
			return nil
		}
		return b.deleteVersion(ctx, tx, nodeID, versionID)
	})
}

// DeleteVersions removes the versions of id dated strictly before
// versionDate. The latest version is kept whatever its date.
func (b *VersionableRepositoryBase[T]) DeleteVersions(ctx context.Context, id int, versionDate time.Time) error {
	return b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		latest, err := versionIDs(ctx, tx, id, 1)
		if err != nil {
			return err
		}
		if len(latest) == 0 {
			return nil
		}

		var rows []dtos.ContentVersionDto
		if err := tx.NewSelect().
			Model(&rows).
			Where(`"ContentId" = ?`, id).
			Where(`"VersionDate" < ?`, versionDate).
			Where(`"VersionId" <> ?`, latest[0]).
			OrderExpr(`"VersionDate" ASC, "id" ASC`).
			Scan(ctx); err != nil {
			return storageError(err, "version lookup failed")
		}

		for _, row := range rows {
			if err := b.deleteVersion(ctx, tx, id, row.VersionID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *VersionableRepositoryBase[T]) deleteVersion(ctx context.Context, tx bun.IDB, id int, versionID uuid.UUID) error {
	b.events.RaiseRemovingVersion(ctx, notifications.VersionArgs{EntityID: id, VersionID: versionID})
	if b.hooks.performDeleteVersion == nil {
		return performDeleteVersion(ctx, tx, id, versionID)
	}
	return b.hooks.performDeleteVersion(ctx, tx, id, versionID)
}

// performDeleteVersion removes the property data and the version row of one
// version.
func performDeleteVersion(ctx context.Context, tx bun.IDB, id int, versionID uuid.UUID) error {
	if _, err := tx.NewDelete().
		Model((*dtos.PropertyDataDto)(nil)).
		Where(`"contentNodeId" = ?`, id).
		Where(`"versionId" = ?`, versionID).
		Exec(ctx); err != nil {
		return storageError(err, "delete version property data failed")
	}
	if _, err := tx.NewDelete().
		Model((*dtos.ContentVersionDto)(nil)).
		Where(`"ContentId" = ?`, id).
		Where(`"VersionId" = ?`, versionID).
		Exec(ctx); err != nil {
		return storageError(err, "delete version failed")
	}
	return nil
}

// Count counts the nodes of the object type, optionally of one content type.
func (b *VersionableRepositoryBase[T]) Count(ctx context.Context, contentTypeAlias string) (int, error) {
	return b.count(ctx, b.countSql(contentTypeAlias))
}

// CountChildren counts the direct children of parentID.
func (b *VersionableRepositoryBase[T]) CountChildren(ctx context.Context, parentID int, contentTypeAlias string) (int, error) {
	s := b.countSql(contentTypeAlias).Where(`"umbracoNode"."parentID" = ?`, parentID)
	return b.count(ctx, s)
}

// CountDescendants counts the nodes below parentID by path. The root id -1
// counts every node of the object type.
func (b *VersionableRepositoryBase[T]) CountDescendants(ctx context.Context, parentID int, contentTypeAlias string) (int, error) {
	pathMatch := "," + strconv.Itoa(parentID) + ","
	if parentID == -1 {
		pathMatch = "-1,"
	}
	s := b.countSql(contentTypeAlias).Where(`"umbracoNode"."path" LIKE ?`, "%"+pathMatch+"%")
	return b.count(ctx, s)
}

func (b *VersionableRepositoryBase[T]) countSql(contentTypeAlias string) *querying.Sql {
	s := querying.Select().From(`"umbracoNode"`)
	if contentTypeAlias != "" {
		s.InnerJoin(`"cmsContent"`, `"cmsContent"."nodeId" = "umbracoNode"."id"`).
			InnerJoin(`"cmsContentType"`, `"cmsContentType"."nodeId" = "cmsContent"."contentType"`).
			Where(`"cmsContentType"."alias" = ?`, contentTypeAlias)
	}
	return s.Where(`"umbracoNode"."nodeObjectType" = ?`, b.objectType)
}

func (b *VersionableRepositoryBase[T]) count(ctx context.Context, s *querying.Sql) (int, error) {
	var n int
	if err := s.CountRaw(b.db).Scan(ctx, &n); err != nil {
		return 0, storageError(err, "count failed")
	}
	return n, nil
}

// storageError wraps a database error. A nil error stays nil.
func storageError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

// requireRow reports a not found error when an update matched no row.
func requireRow(res sql.Result, entity string, id int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageError(err, "rows affected failed")
	}
	if n == 0 {
		return goerrors.New(entity+" not found", goerrors.CategoryNotFound).
			WithTextCode("NOT_FOUND").
			WithMetadata(map[string]any{"entity": entity, "id": id})
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func distinctInts(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
