// Package scheduler orchestrates moderation checks: it decides when the
// remote provider is actually called, cancels work superseded by newer
// input, applies per-tenant admission and tenant settings, and turns
// provider scores into decisions via the policy engine.
//
// Two entry points share one pipeline. Checker serves a single logical
// content stream (one text field, one upload widget) with debouncing:
// every keystroke may call Schedule, but only the latest content ever
// reaches the provider, and only its outcome is delivered. Client is the
// synchronous facade for manual triggers: Check, CheckMany, and
// CheckVideo run the pipeline once, immediately.
//
// Outcome kinds are deliberately wider than success/failure: a
// rate-limit rejection means "check skipped" and a superseded call is
// silent, neither is an error.
package scheduler
