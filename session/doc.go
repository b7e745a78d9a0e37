// Package session manages authenticated browser sessions for the SPPG
// dashboard: opaque random tokens, lazy read-time expiry, per-session
// activity trails, lifetime extension, and bulk revocation through a
// per-user index set.
//
// # Key layout
//
//   - session:{sessionId}: JSON [Record], TTL = lifetime
//   - session:{sessionId}:activity: JSON [Activity] list, capped, own TTL
//   - user-sessions:{userId}: set of session ids for bulk revocation
//
// # Failure policy
//
// Every operation degrades to nil/false/zero on store errors after logging;
// nothing here panics or returns an error. Callers must treat the session
// layer as best-effort-available.
package session
