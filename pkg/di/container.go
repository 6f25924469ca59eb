package di

import (
	"context"
	"log/slog"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-content-repository/cache"
	"github.com/goliatone/go-content-repository/config"
	"github.com/goliatone/go-content-repository/internal/database"
	"github.com/goliatone/go-content-repository/logging"
	"github.com/goliatone/go-content-repository/models"
	"github.com/goliatone/go-content-repository/notifications"
	"github.com/goliatone/go-content-repository/persistence/repositories"
	"github.com/goliatone/go-content-repository/persistence/schema"
)

// Repositories groups the repositories of one unit of work. The container
// holds one set bound to the database; RunInTx hands out sets bound to a
// transaction.
type Repositories struct {
	DataTypes    *repositories.DataTypeRepository
	MemberTypes  *repositories.MemberTypeRepository
	MemberGroups *repositories.MemberGroupRepository
	Tags         *repositories.TagRepository
	Members      *repositories.MemberRepository
}

func (r *Repositories) withTx(tx bun.IDB) *Repositories {
	return &Repositories{
		DataTypes:    r.DataTypes.WithTx(tx),
		MemberTypes:  r.MemberTypes.WithTx(tx),
		MemberGroups: r.MemberGroups.WithTx(tx),
		Tags:         r.Tags.WithTx(tx),
		Members:      r.Members.WithTx(tx),
	}
}

// Container owns the database handle, the caches and the repositories
// built on them. Each entity type gets its own isolated cache; group name
// lookups and pre-values share the runtime cache.
type Container struct {
	config        config.Config
	db            *bun.DB
	logger        *slog.Logger
	keySerializer cache.KeySerializer
	runtime       cache.CacheService
	entityCaches  map[string]cache.CacheService

	memberEvents *notifications.Registry[*models.Member]
	groupEvents  *notifications.Registry[*models.MemberGroup]

	repos *Repositories
}

// NewContainer validates cfg, opens the database, creates the schema and
// wires every repository.
func NewContainer(ctx context.Context, cfg config.Config) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := schema.Create(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	c := &Container{
		config:        cfg,
		db:            db,
		logger:        logger,
		keySerializer: cache.NewDefaultKeySerializer(),
		entityCaches:  make(map[string]cache.CacheService),
		memberEvents:  notifications.NewRegistry[*models.Member](),
		groupEvents:   notifications.NewRegistry[*models.MemberGroup](),
	}

	c.runtime, err = cache.NewCacheService(cache.RuntimeConfig(cfg.Cache, cfg.Repository.GroupCacheTTL))
	if err != nil {
		db.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "create runtime cache failed")
	}
	for _, name := range []string{"member", "member_group", "member_type"} {
		svc, err := cache.NewCacheService(cfg.Cache)
		if err != nil {
			db.Close()
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "create entity cache failed").
				WithMetadata(map[string]any{"cache": name})
		}
		c.entityCaches[name] = svc
	}

	opts := repositories.Options{Logger: logger, Config: cfg.Repository}
	dataTypes := repositories.NewDataTypeRepository(db, c.runtime, opts)
	memberTypes := repositories.NewMemberTypeRepository(db, repositories.NewMemberTypePolicy(c.entityCaches["member_type"]), opts)
	groups := repositories.NewMemberGroupRepository(db, repositories.NewMemberGroupPolicy(c.entityCaches["member_group"]), c.runtime, c.groupEvents, opts)
	tags := repositories.NewTagRepository(db, opts)
	members := repositories.NewMemberRepository(db, repositories.NewMemberPolicy(c.entityCaches["member"]), memberTypes, groups, tags, c.memberEvents, opts)

	c.repos = &Repositories{
		DataTypes:    dataTypes,
		MemberTypes:  memberTypes,
		MemberGroups: groups,
		Tags:         tags,
		Members:      members,
	}

	logger.Info("content repository ready",
		"driver", cfg.Database.Driver,
		"cache_capacity", cfg.Cache.Capacity,
		"group_cache_ttl", cfg.Repository.GroupCacheTTL,
	)
	return c, nil
}

// NewContainerWithDefaults creates a container from config.Default.
func NewContainerWithDefaults(ctx context.Context) (*Container, error) {
	return NewContainer(ctx, config.Default())
}

// Close releases the database handle.
func (c *Container) Close() error {
	return c.db.Close()
}

func (c *Container) Config() config.Config { return c.config }

func (c *Container) DB() *bun.DB { return c.db }

func (c *Container) Logger() *slog.Logger { return c.logger }

// RuntimeCache returns the cache shared by group name lookups and
// pre-values.
func (c *Container) RuntimeCache() cache.CacheService { return c.runtime }

// EntityCache returns the isolated cache of one entity type: "member",
// "member_group" or "member_type".
func (c *Container) EntityCache(name string) (cache.CacheService, bool) {
	svc, ok := c.entityCaches[name]
	return svc, ok
}

// KeySerializer returns the serializer used for ad hoc cache keys.
func (c *Container) KeySerializer() cache.KeySerializer { return c.keySerializer }

func (c *Container) MemberEvents() *notifications.Registry[*models.Member] { return c.memberEvents }

func (c *Container) MemberGroupEvents() *notifications.Registry[*models.MemberGroup] {
	return c.groupEvents
}

func (c *Container) Repositories() *Repositories { return c.repos }

func (c *Container) Members() *repositories.MemberRepository { return c.repos.Members }

func (c *Container) MemberGroups() *repositories.MemberGroupRepository { return c.repos.MemberGroups }

func (c *Container) MemberTypes() *repositories.MemberTypeRepository { return c.repos.MemberTypes }

func (c *Container) DataTypes() *repositories.DataTypeRepository { return c.repos.DataTypes }

func (c *Container) Tags() *repositories.TagRepository { return c.repos.Tags }

// RunInTx runs fn with repositories bound to one transaction. The
// transaction commits when fn returns nil and rolls back otherwise. Cache
// invalidations done inside fn are not undone by a rollback.
func (c *Container) RunInTx(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error {
	return c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, c.repos.withTx(tx))
	})
}
