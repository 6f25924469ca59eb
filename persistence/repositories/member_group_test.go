package repositories

import (
	"context"
	"strconv"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-content-repository/cache"
	"github.com/goliatone/go-content-repository/models"
	"github.com/goliatone/go-content-repository/notifications"
	"github.com/goliatone/go-content-repository/persistence/dtos"
	"github.com/goliatone/go-content-repository/persistence/querying"
)

func TestMemberGroupRepository_EditorsScenario(t *testing.T) {
	f := newRepoFixture(t)
	f.newMember("Alice", "alice", nil)

	require.NoError(t, f.groups.AssignRoles(f.ctx, []string{"alice"}, []string{"Editors"}))

	groups, err := f.groups.GetMemberGroupsForMemberByUsername(f.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"Editors"}, groupNames(groups))

	require.NoError(t, f.groups.DissociateRoles(f.ctx, []string{"alice"}, []string{"Editors"}))

	groups, err = f.groups.GetMemberGroupsForMemberByUsername(f.ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, groups)

	groups, err = f.groups.GetMemberGroupsForMemberByUsername(f.ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestMemberGroupRepository_AssignRolesInternal_Idempotent(t *testing.T) {
	f := newRepoFixture(t)
	alice := f.newMember("Alice", "alice", nil)
	bob := f.newMember("Bob", "bob", nil)

	ids := []int{alice.ID(), bob.ID(), alice.ID()}
	roles := []string{"Editors", "Writers", "Editors", ""}

	linkRows := func() []dtos.Member2MemberGroupDto {
		t.Helper()
		var rows []dtos.Member2MemberGroupDto
		require.NoError(t, f.db.NewSelect().
			Model(&rows).
			OrderExpr(`"Member" ASC, "MemberGroup" ASC`).
			Scan(f.ctx))
		return rows
	}

	require.NoError(t, f.groups.AssignRolesInternal(f.ctx, ids, roles))
	once := linkRows()
	require.NoError(t, f.groups.AssignRolesInternal(f.ctx, ids, roles))
	twice := linkRows()

	assert.Len(t, once, 4)
	assert.Equal(t, once, twice)

	all, err := f.groups.GetAll(f.ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Editors", "Writers"}, groupNames(all))
}

func TestMemberGroupRepository_AssignRoles_ExistingGroupNoEvents(t *testing.T) {
	f := newRepoFixture(t)
	alice := f.newMember("Alice", "alice", nil)

	_, err := f.groups.CreateIfNotExists(f.ctx, "Editors")
	require.NoError(t, err)

	var saving int
	f.groupEvents.OnSaving(func(context.Context, *notifications.SavingArgs[*models.MemberGroup]) { saving++ })

	require.NoError(t, f.groups.AssignRolesByIDs(f.ctx, []int{alice.ID()}, []string{"Editors"}))
	assert.Zero(t, saving)

	groups, err := f.groups.GetMemberGroupsForMember(f.ctx, alice.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{"Editors"}, groupNames(groups))
}

func TestMemberGroupRepository_AssignRoles_SavingCancelled(t *testing.T) {
	f := newRepoFixture(t)
	alice := f.newMember("Alice", "alice", nil)

	var saved int
	f.groupEvents.OnSaving(func(_ context.Context, args *notifications.SavingArgs[*models.MemberGroup]) {
		args.Cancel("no new roles")
	})
	f.groupEvents.OnSaved(func(context.Context, notifications.SavedArgs[*models.MemberGroup]) { saved++ })

	require.NoError(t, f.groups.AssignRolesByIDs(f.ctx, []int{alice.ID()}, []string{"Editors"}))
	assert.Zero(t, saved)

	groups, err := f.groups.GetAll(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)

	links, err := f.db.NewSelect().Model((*dtos.Member2MemberGroupDto)(nil)).Count(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, links)
}

func TestMemberGroupRepository_DissociateRolesByIDs(t *testing.T) {
	f := newRepoFixture(t)
	alice := f.newMember("Alice", "alice", nil)
	bob := f.newMember("Bob", "bob", nil)
	require.NoError(t, f.groups.AssignRolesByIDs(f.ctx, []int{alice.ID(), bob.ID()}, []string{"Editors", "Writers"}))

	require.NoError(t, f.groups.DissociateRolesByIDs(f.ctx, []int{alice.ID()}, []string{"Writers", "Unknown"}))

	groups, err := f.groups.GetMemberGroupsForMember(f.ctx, alice.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{"Editors"}, groupNames(groups))

	groups, err = f.groups.GetMemberGroupsForMember(f.ctx, bob.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{"Editors", "Writers"}, groupNames(groups))
}

func TestMemberGroupRepository_CreateIfNotExists(t *testing.T) {
	f := newRepoFixture(t)

	var savedNames []string
	f.groupEvents.OnSaved(func(_ context.Context, args notifications.SavedArgs[*models.MemberGroup]) {
		for _, g := range args.Entities {
			savedNames = append(savedNames, g.Name())
		}
	})

	g, err := f.groups.CreateIfNotExists(f.ctx, "Editors")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.True(t, g.HasIdentity())
	assert.Equal(t, "-1,"+strconv.Itoa(g.ID()), g.Path())
	assert.Equal(t, 1, g.Level())
	assert.Equal(t, []string{"Editors"}, savedNames)

	again, err := f.groups.CreateIfNotExists(f.ctx, "Editors")
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Len(t, savedNames, 1)
}

func TestMemberGroupRepository_CreateIfNotExists_Cancelled(t *testing.T) {
	f := newRepoFixture(t)
	f.groupEvents.OnSaving(func(_ context.Context, args *notifications.SavingArgs[*models.MemberGroup]) {
		args.Cancel()
	})

	g, err := f.groups.CreateIfNotExists(f.ctx, "Editors")
	require.NoError(t, err)
	assert.Nil(t, g)

	found, err := f.groups.GetByName(f.ctx, "Editors")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestMemberGroupRepository_GetByName_RuntimeCache(t *testing.T) {
	f := newRepoFixture(t)

	g := models.NewMemberGroup("Editors")
	require.NoError(t, f.groups.Save(f.ctx, g))

	found, err := f.groups.GetByName(f.ctx, "Editors")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, g.ID(), found.ID())

	cached, ok := cache.Get[*models.MemberGroup](f.ctx, f.runtime, cache.TypeNameKey(memberGroupTypeName, "Editors"))
	require.True(t, ok)
	assert.Equal(t, g.ID(), cached.ID())

	g.SetName("Authors")
	require.NoError(t, f.groups.Save(f.ctx, g))

	_, ok = cache.Get[*models.MemberGroup](f.ctx, f.runtime, cache.TypeNameKey(memberGroupTypeName, "Editors"))
	assert.False(t, ok, "rename drops the cached lookup")

	found, err = f.groups.GetByName(f.ctx, "Editors")
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = f.groups.GetByName(f.ctx, "Authors")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, g.ID(), found.ID())
}

func TestMemberGroupRepository_QueryAndExists(t *testing.T) {
	f := newRepoFixture(t, withEntityCache())

	editors := models.NewMemberGroup("Editors")
	writers := models.NewMemberGroup("Writers")
	require.NoError(t, f.groups.Save(f.ctx, editors))
	require.NoError(t, f.groups.Save(f.ctx, writers))

	items, err := f.groups.GetByQuery(f.ctx, querying.NewQuery(querying.Match("Name", "rite", models.MatchContains)))
	require.NoError(t, err)
	assert.Equal(t, []string{"Writers"}, groupNames(items))

	got, err := f.groups.Get(f.ctx, editors.ID())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Editors", got.Name())

	exists, err := f.groups.Exists(f.ctx, writers.ID())
	require.NoError(t, err)
	assert.True(t, exists)

	some, err := f.groups.GetAll(f.ctx, writers.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{"Writers"}, groupNames(some))
}

func TestMemberGroupRepository_Delete(t *testing.T) {
	f := newRepoFixture(t)
	alice := f.newMember("Alice", "alice", nil)
	require.NoError(t, f.groups.AssignRolesByIDs(f.ctx, []int{alice.ID()}, []string{"Editors"}))

	g, err := f.groups.GetByName(f.ctx, "Editors")
	require.NoError(t, err)
	require.NotNil(t, g)

	require.NoError(t, f.groups.Delete(f.ctx, g))

	found, err := f.groups.GetByName(f.ctx, "Editors")
	require.NoError(t, err)
	assert.Nil(t, found)

	groups, err := f.groups.GetMemberGroupsForMember(f.ctx, alice.ID())
	require.NoError(t, err)
	assert.Empty(t, groups)

	member, err := f.members.Get(f.ctx, alice.ID())
	require.NoError(t, err)
	assert.NotNil(t, member)
}

func TestMemberGroupRepository_FailedSaveKeepsGroupNew(t *testing.T) {
	f := newRepoFixture(t)
	hook := f.hookQueries()

	g := models.NewMemberGroup("Editors")
	hook.failOn(`UPDATE "umbracoNode" `)
	require.Error(t, f.groups.Save(f.ctx, g))
	assert.False(t, g.HasIdentity())
	assert.Equal(t, uuid.Nil, g.Key())

	hook.failOn("")
	require.NoError(t, f.groups.Save(f.ctx, g))
	require.True(t, g.HasIdentity())

	found, err := f.groups.GetByName(f.ctx, "Editors")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, g.ID(), found.ID())
}

func TestMemberGroupRepository_UpdateDeletedGroup(t *testing.T) {
	f := newRepoFixture(t)

	g := models.NewMemberGroup("Editors")
	require.NoError(t, f.groups.Save(f.ctx, g))
	require.NoError(t, f.groups.Delete(f.ctx, g))

	g.SetName("Writers")
	err := f.groups.Save(f.ctx, g)
	require.Error(t, err)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryNotFound))

	found, err := f.groups.GetByName(f.ctx, "Writers")
	require.NoError(t, err)
	assert.Nil(t, found)
}
