// Package cache provides the cache services the content repositories read
// through, plus the key helpers that give every cached item a stable name.
//
// # Overview
//
// Two kinds of cache sit behind the same CacheService interface:
//
//   - Isolated entity caches, one per entity type, keyed "uRepo_{type}_{id}".
//     The repositorycache package builds its policies on top of these.
//   - The runtime cache, shared by repositories for auxiliary lookups such as
//     member groups by name and data type pre-value strings.
//
// # Basic Usage
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig())
//	key := cache.PreValueKey(dataTypeID, preValueID)
//	value, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) (string, error) {
//		return loadPreValue(ctx, preValueID)
//	})
//
// Lookups whose entries should expire only after a period without reads use
// GetSliding, which stores a hit again so its TTL starts over. Misses are
// never stored.
//
// # Invalidation
//
// Delete drops one key, DeleteByPrefix drops a family of keys and
// DeleteMatching takes a regular expression, which is how all pre-value
// strings of a data type are cleared:
//
//	svc.DeleteMatching(ctx, cache.PreValuePattern(dataTypeID))
package cache
