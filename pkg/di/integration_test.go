package di

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-content-repository/models"
	"github.com/goliatone/go-content-repository/notifications"
	"github.com/goliatone/go-content-repository/persistence/querying"
	"github.com/goliatone/go-content-repository/persistence/repositories"
	"github.com/goliatone/go-content-repository/repositorycache"
)

func TestEndToEndMemberFlow(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)
	ct := saveMemberType(t, ctx, c.Repositories())

	var (
		mu        sync.Mutex
		refreshed []string
		removed   []string
	)
	c.MemberEvents().OnRefreshed(func(_ context.Context, args notifications.EntityArgs[*models.Member]) {
		mu.Lock()
		defer mu.Unlock()
		refreshed = append(refreshed, args.Entity.Username())
	})
	c.MemberEvents().OnRemoving(func(_ context.Context, args notifications.EntityArgs[*models.Member]) {
		mu.Lock()
		defer mu.Unlock()
		removed = append(removed, args.Entity.Username())
	})

	alice := models.NewMember("Alice", "alice@example.com", "alice", "secret", ct)
	require.True(t, alice.SetValue("bio", "Gopher"))
	require.NoError(t, c.Members().Save(ctx, alice))
	require.NoError(t, c.MemberGroups().AssignRoles(ctx, []string{"alice"}, []string{"Editors"}))

	got, err := c.Members().Get(ctx, alice.ID())
	require.NoError(t, err)
	require.NotNil(t, got)
	bio, ok := got.Properties().Get("bio")
	require.True(t, ok)
	assert.Equal(t, "Gopher", bio.Value())

	editors, err := c.Members().GetMembersByRole(ctx, "Editors")
	require.NoError(t, err)
	require.Len(t, editors, 1)
	assert.Equal(t, alice.ID(), editors[0].ID())

	items, total, err := c.Members().GetPagedResultsByQuery(ctx, repositories.PageRequest{
		Query:              querying.NewQuery(),
		PageSize:           10,
		OrderBy:            "Name",
		Direction:          models.Ascending,
		OrderBySystemField: true,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)

	require.NoError(t, c.Members().Delete(ctx, got))

	missing, err := c.Members().Get(ctx, alice.ID())
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Equal(t, []string{"alice"}, refreshed)
	assert.Equal(t, []string{"alice"}, removed)
}

func TestEntityCacheFlow(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)
	ct := saveMemberType(t, ctx, c.Repositories())

	alice := models.NewMember("Alice", "alice@example.com", "alice", "secret", ct)
	require.NoError(t, c.Members().Save(ctx, alice))

	first, err := c.Members().Get(ctx, alice.ID())
	require.NoError(t, err)
	require.NotNil(t, first)

	svc, ok := c.EntityCache("member")
	require.True(t, ok)
	key := repositorycache.NewDefaultPolicy(svc, repositorycache.Options[*models.Member]{}).Key(alice.ID())
	_, cached := svc.Get(ctx, key)
	assert.True(t, cached)

	// Callers get copies, so editing one does not leak into the cache.
	first.SetName("Mallory")
	second, err := c.Members().Get(ctx, alice.ID())
	require.NoError(t, err)
	assert.Equal(t, "Alice", second.Name())

	second.SetName("Alicia")
	require.NoError(t, c.Members().Save(ctx, second))
	_, cached = svc.Get(ctx, key)
	assert.False(t, cached, "saving drops the cached member")

	third, err := c.Members().Get(ctx, alice.ID())
	require.NoError(t, err)
	assert.Equal(t, "Alicia", third.Name())

	groupCache, ok := c.EntityCache("member_group")
	require.True(t, ok)
	_, cached = groupCache.Get(ctx, key)
	assert.False(t, cached, "entity caches are isolated")
}

func TestConcurrentReads(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)
	ct := saveMemberType(t, ctx, c.Repositories())

	const members = 20
	ids := make([]int, 0, members)
	for i := range members {
		m := models.NewMember(fmt.Sprintf("Member %d", i), fmt.Sprintf("m%d@example.com", i), fmt.Sprintf("m%d", i), "secret", ct)
		require.NoError(t, c.Members().Save(ctx, m))
		ids = append(ids, m.ID())
	}
	require.NoError(t, c.MemberGroups().AssignRolesByIDs(ctx, ids[:members/2], []string{"Editors"}))

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers*members)

	for w := range workers {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for j := range members {
				id := ids[(w+j)%members]
				m, err := c.Members().Get(ctx, id)
				if err != nil {
					errs <- err
					continue
				}
				if m == nil || m.ID() != id {
					errs <- fmt.Errorf("worker %d: member %d not returned", w, id)
					continue
				}
				if j%5 == 0 {
					g, err := c.MemberGroups().GetByName(ctx, "Editors")
					if err != nil {
						errs <- err
						continue
					}
					if g == nil {
						errs <- fmt.Errorf("worker %d: group not found", w)
					}
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	editors, err := c.Members().GetMembersByRole(ctx, "Editors")
	require.NoError(t, err)
	assert.Len(t, editors, members/2)
}
