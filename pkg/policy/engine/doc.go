// Package engine evaluates category scores against a validated policy
// and produces a single decision per content item.
//
// Evaluation is pure and deterministic: identical inputs always yield
// identical decisions, and evaluation never fails. Malformed policies are
// rejected by policy.Validate at load time, never here.
package engine
