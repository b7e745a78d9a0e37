// Package cache is the tenant-namespaced, tag-indexed cache layer of the
// SPPG dashboard.
//
// # Key layout
//
//   - cache:{tenantId|global}:{logicalKey}: JSON [Entry]
//   - tag:{tenantId|global}:{tag}: set of namespaced cache keys
//
// Tags exist purely as a secondary index for coarse bulk invalidation
// ("clear everything tagged menus for tenant X"); they are never consulted
// on the read path. Eviction is entirely TTL-driven; there is no LRU.
//
// Domain presets (SetMenus, GetProductions, WarmInventory, ...) are fixed
// (key, ttl class, tag) triples over the generic methods.
package cache
