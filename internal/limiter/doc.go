// Package limiter implements the fixed-window admission counters that guard the
// chat API.
//
// Each Store is an independent quota: one per-minute request rate, one daily
// question allowance and one for the read-only endpoints. They share the
// algorithm but never state, so spending one quota leaves the others intact.
//
// Expiry is checked lazily on every Check and Peek. The periodic sweep only
// bounds memory.
package limiter
