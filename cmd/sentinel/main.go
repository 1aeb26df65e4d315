// Sentinel is a moderation orchestration service.
//
// It decides when remote moderation checks actually run (debouncing,
// supersession, per-tenant rate limits), applies per-tenant policies to
// provider category scores, and aggregates multi-item submissions such
// as sampled video frames.
//
// Usage:
//
//	# Start the service
//	sentinel run --config /etc/sentinel/config.yaml
//
//	# Moderate a piece of text from the command line
//	sentinel check --tenant acme "some content"
//
//	# Validate policy files without starting anything
//	sentinel validate --dir ./policies
//
//	# Show version information
//	sentinel version
package main

func main() {
	Execute()
}
