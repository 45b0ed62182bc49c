// Package orchestrator manages named long-term memory stores for a
// conversational agent: it decides which inbound messages are worth
// persisting and which stored memories to inject back into the agent's
// context at compaction time.
//
// Invariants:
//   - At most one store handle is open at a time; activation swaps handle,
//     identity, and ingest predicate as one unit.
//   - Auto-ingest never blocks the host's message-delivery path.
//   - Recall failures never fail compaction; the worst outcome is an empty
//     injection plus a log line.
package orchestrator
