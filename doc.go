// Package sppgcore is the Redis-backed session, cache, and security core
// of the SPPG nutrition program dashboard.
//
// The module bundles four services over one shared key-value store:
//
//   - [session.Manager]: opaque-token browser sessions with lazy expiry,
//     activity trails, and bulk revocation
//   - [cache.Manager]: tenant-namespaced, tag-indexed cache with
//     TTL-driven eviction and bulk invalidation
//   - [security.Guard]: login-attempt tracking, lockout, rate limiting,
//     password policy, and per-user audit trails
//   - [realtime.Hub]: in-process push channel tying data-change events to
//     cache invalidation
//
// Services are wired once per process through [Builder] and injected into
// request handlers; there is no hidden global state. Every service is
// best-effort by contract: store failures degrade to logged safe defaults
// and never propagate to callers.
package sppgcore
