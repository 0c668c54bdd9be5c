// Package domain defines the core domain models for proctree.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling: task identity and state,
// the by-value snapshot record types, API keys, and the structured
// error taxonomy shared by every layer above.
package domain
