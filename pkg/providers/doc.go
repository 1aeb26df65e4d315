// Package providers defines the client abstraction for remote moderation
// scoring services and a base HTTP implementation with connection
// pooling, timeout handling, and health tracking.
//
// Concrete adapters live in subpackages: openai (the OpenAI moderation
// endpoint) and generic (a plain JSON scoring contract for self-hosted
// classifiers).
//
// Retries are off by default: the orchestration layer treats transport
// failures as a distinct outcome and leaves retry policy to integrators,
// who can opt in per provider via MaxRetries.
package providers
