// Package security implements the defense-in-depth layer of the SPPG
// dashboard: login-attempt tracking, trailing-window lockout, fixed-window
// rate limiting, password policy, and per-user audit trails.
//
// # Key layout
//
//   - security:attempts:{identifier}: JSON [Attempt] list, capped, rolling TTL
//   - security:lockout:{identifier}: JSON [Lockout], TTL = lockout duration
//   - security:ratelimit:{identifier}: JSON window counter document
//   - security:audit:{userId}: JSON [Event] list, capped
//
// # Atomicity
//
// Lockout evaluation and the rate-limit counter are plain read-then-write
// sequences, not transactions. Concurrent requests for one identifier can
// interleave and under-count. The layer throttles best-effort; it is not a
// correctness-critical ledger, and store outages always resolve to the
// permissive branch.
package security
