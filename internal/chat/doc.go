// Package chat is the application layer behind the /api/chat endpoints.
//
// A Gate applies the per-identity quotas in a fixed order (rate, then question)
// and a Service validates admitted messages, runs the assistant turn and
// shapes history, status and thread health responses. HTTP concerns stay in
// the server package; everything here returns plain values or gofulmen error
// envelopes.
package chat
