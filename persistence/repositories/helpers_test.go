package repositories

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-content-repository/cache"
	"github.com/goliatone/go-content-repository/config"
	"github.com/goliatone/go-content-repository/models"
	"github.com/goliatone/go-content-repository/notifications"
	"github.com/goliatone/go-content-repository/pkg/testsupport"
	"github.com/goliatone/go-content-repository/propertyeditors"
)

const (
	bioAlias       = "bio"
	ageAlias       = "age"
	interestsAlias = "interests"
)

type repoFixture struct {
	t       *testing.T
	ctx     context.Context
	db      *bun.DB
	opts    Options
	runtime cache.CacheService
	entity  cache.CacheService

	dataTypes   *DataTypeRepository
	memberTypes *MemberTypeRepository
	groups      *MemberGroupRepository
	tags        *TagRepository
	members     *MemberRepository

	memberEvents *notifications.Registry[*models.Member]
	groupEvents  *notifications.Registry[*models.MemberGroup]

	memberType  *models.ContentType
	dataTypeIDs map[string]int
}

type fixtureSettings struct {
	cfg         config.RepositoryConfig
	entityCache bool
}

type fixtureOption func(*fixtureSettings)

func withRepositoryConfig(cfg config.RepositoryConfig) fixtureOption {
	return func(s *fixtureSettings) { s.cfg = cfg }
}

// withEntityCache puts members, groups and member types behind the default
// cache policy.
func withEntityCache() fixtureOption {
	return func(s *fixtureSettings) { s.entityCache = true }
}

// newRepoFixture wires every repository on a fresh database and saves a
// member type declaring a text, an integer and a tag property next to the
// standard member properties.
func newRepoFixture(t *testing.T, options ...fixtureOption) *repoFixture {
	t.Helper()

	var settings fixtureSettings
	for _, opt := range options {
		opt(&settings)
	}

	runtime, err := cache.NewCacheService(cache.RuntimeConfig(cache.DefaultConfig(), time.Minute))
	require.NoError(t, err)

	f := &repoFixture{
		t:            t,
		ctx:          context.Background(),
		db:           testsupport.NewTestDB(t),
		opts:         Options{Now: testsupport.DefaultClock(), Config: settings.cfg},
		runtime:      runtime,
		memberEvents: notifications.NewRegistry[*models.Member](),
		groupEvents:  notifications.NewRegistry[*models.MemberGroup](),
		dataTypeIDs:  make(map[string]int),
	}
	if settings.entityCache {
		f.entity, err = cache.NewCacheService(cache.DefaultConfig())
		require.NoError(t, err)
	}

	f.dataTypes = NewDataTypeRepository(f.db, f.runtime, f.opts)
	f.tags = NewTagRepository(f.db, f.opts)
	f.memberTypes = NewMemberTypeRepository(f.db, NewMemberTypePolicy(f.entity), f.opts)
	f.groups = NewMemberGroupRepository(f.db, NewMemberGroupPolicy(f.entity), f.runtime, f.groupEvents, f.opts)
	f.members = NewMemberRepository(f.db, NewMemberPolicy(f.entity), f.memberTypes, f.groups, f.tags, f.memberEvents, f.opts)

	f.memberType = f.saveMemberType("member", "Member")
	return f
}

// dataType returns the id of a data type for the editor and storage,
// creating it on first use.
func (f *repoFixture) dataType(editor string, storage models.StorageType, preValues ...models.PreValue) int {
	f.t.Helper()

	key := fmt.Sprintf("%s|%s", editor, storage)
	if id, ok := f.dataTypeIDs[key]; ok {
		return id
	}
	dt := &models.DataType{
		Name:                key,
		PropertyEditorAlias: editor,
		StorageType:         storage,
		PreValues:           preValues,
	}
	require.NoError(f.t, f.dataTypes.Save(f.ctx, dt))
	f.dataTypeIDs[key] = dt.ID
	return dt.ID
}

func (f *repoFixture) propertyType(alias, editor string, storage models.StorageType, preValues ...models.PreValue) *models.PropertyType {
	return &models.PropertyType{
		Alias:               alias,
		Name:                alias,
		DataTypeID:          f.dataType(editor, storage, preValues...),
		PropertyEditorAlias: editor,
		StorageType:         storage,
	}
}

func (f *repoFixture) saveMemberType(alias, name string) *models.ContentType {
	f.t.Helper()

	ct := &models.ContentType{Alias: alias, Name: name}
	ct.PropertyTypes = append(ct.PropertyTypes,
		f.propertyType(bioAlias, propertyeditors.TextboxAlias, models.StorageNvarchar),
		f.propertyType(ageAlias, propertyeditors.IntegerAlias, models.StorageInteger),
		f.propertyType(interestsAlias, propertyeditors.TagsAlias, models.StorageNtext,
			models.PreValue{Alias: propertyeditors.PreValueGroup, Value: "interests"}),
	)
	for _, std := range models.StandardMemberPropertyTypes() {
		std.DataTypeID = f.dataType(std.PropertyEditorAlias, std.StorageType)
		ct.PropertyTypes = append(ct.PropertyTypes, std)
	}

	require.NoError(f.t, f.memberTypes.Save(f.ctx, ct))
	return ct
}

// newMember saves a member of the fixture's member type.
func (f *repoFixture) newMember(name, username string, values map[string]any) *models.Member {
	f.t.Helper()

	m := models.NewMember(name, username+"@example.com", username, "secret", f.memberType)
	for alias, v := range values {
		require.True(f.t, m.SetValue(alias, v), "unknown property %s", alias)
	}
	require.NoError(f.t, f.members.Save(f.ctx, m))
	return m
}

func (f *repoFixture) versionCount(id int) int {
	f.t.Helper()

	ids, err := f.members.GetVersionIDs(f.ctx, id, 0)
	require.NoError(f.t, err)
	return len(ids)
}

func memberNames(items []*models.Member) []string {
	out := make([]string, 0, len(items))
	for _, m := range items {
		out = append(out, m.Name())
	}
	return out
}

func groupNames(items []*models.MemberGroup) []string {
	out := make([]string, 0, len(items))
	for _, g := range items {
		out = append(out, g.Name())
	}
	return out
}

// queryHook records the statements run on the fixture database. While
// failPrefix is set, statements starting with it run on a cancelled context.
type queryHook struct {
	mu         sync.Mutex
	queries    []string
	failPrefix string
}

func (f *repoFixture) hookQueries() *queryHook {
	h := &queryHook{}
	f.db.AddQueryHook(h)
	return h
}

func (h *queryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queries = append(h.queries, event.Query)
	if h.failPrefix != "" && strings.HasPrefix(event.Query, h.failPrefix) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		return cancelled
	}
	return ctx
}

func (h *queryHook) AfterQuery(context.Context, *bun.QueryEvent) {}

func (h *queryHook) failOn(prefix string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failPrefix = prefix
}

// count returns how many recorded statements start with prefix and contain
// every part, then forgets the recorded statements.
func (h *queryHook) count(prefix string, parts ...string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, q := range h.queries {
		if !strings.HasPrefix(q, prefix) {
			continue
		}
		matched := true
		for _, part := range parts {
			if !strings.Contains(q, part) {
				matched = false
				break
			}
		}
		if matched {
			n++
		}
	}
	h.queries = nil
	return n
}
