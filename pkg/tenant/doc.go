// Package tenant provides the read-through cache for tenant moderation
// settings, which live in a remote, externally owned store.
//
// The cache exists so a settings fetch does not accompany every single
// content submission. Entries carry a fixed TTL, expiry is detected
// lazily at read time (no background refresh), and negative results are
// cached too so a nonexistent tenant does not trigger a fetch per
// request. Writers to the underlying store call Invalidate to force the
// next read through.
package tenant
