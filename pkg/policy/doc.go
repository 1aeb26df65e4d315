// Package policy defines moderation policies: named sets of
// category/threshold/action rules, their YAML representation, load-time
// validation, and an in-memory store the rest of the system reads from.
//
// Validation is strict and happens entirely at load time. A policy that
// passes Validate can always be evaluated; the engine in the subpackage
// never fails at decision time.
package policy
