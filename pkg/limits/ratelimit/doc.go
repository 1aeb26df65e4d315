// Package ratelimit caps remote-check volume per tenant with a sliding
// window of request timestamps.
//
// Each tenant gets an independent window; admission is an atomic
// read-modify-write of that tenant's entry, so streams for different
// tenants never contend on more than the map lookup. Windows are pruned
// lazily on every check and swept periodically so idle tenants do not
// accumulate.
//
// A rejected admission is not an error: it means "skip this check", a
// first-class outcome the caller maps to its own policy (skip moderation
// or block the action).
package ratelimit
