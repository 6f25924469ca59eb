// Package repositorycache holds the cache policies the content repositories
// read and write entities through.
//
// # Policies
//
// DefaultPolicy keeps each entity under "uRepo_{type}_{id}" in an isolated
// cache service, where {type} is the snake case type name ("member",
// "member_group", "member_type"). Entities are cloned on the way in and on
// the way out. Secondary lookups (a member type by alias, a member by user
// name) are cached with Lookup under keys rendered by a cache.KeySerializer.
//
// Writes invalidate instead of inserting: Save and Delete drop the entity's
// key and every lookup entry of the type after the persist function ran,
// whether or not it succeeded.
//
// NoCachePolicy passes every call through and is what a repository uses after
// SetNoCachePolicy.
//
// # Usage
//
//	svc, _ := cache.NewCacheService(cache.DefaultConfig())
//	policy := repositorycache.NewDefaultPolicy(svc, repositorycache.Options[*models.Member]{
//		IDOf:  func(m *models.Member) int { return m.ID() },
//		Clone: (*models.Member).DeepClone,
//	})
//	member, found, err := policy.Get(ctx, id, repo.performGet)
package repositorycache
