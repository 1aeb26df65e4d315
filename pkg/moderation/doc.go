// Package moderation defines the core domain types shared across the
// orchestration layer: content items, category scores, per-item decisions,
// and the multi-item aggregator that combines them.
//
// Types in this package are plain values with no I/O. The policy engine
// produces Decisions, the aggregator folds them into an AggregateDecision,
// and the scheduler delivers either to callers.
package moderation
