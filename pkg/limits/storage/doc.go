// Package storage persists rate limiter state so admission windows
// survive process restarts.
//
// Two backends are provided: an in-memory backend (the default, no
// persistence, useful for tests and single-shot tools) and a SQLite
// backend for single-instance deployments that need windows to carry
// across restarts.
package storage
