// Package audit defines the process-side audit event model, pluggable
// sinks, and an asynchronous dispatcher with drop-if-full semantics.
package audit
