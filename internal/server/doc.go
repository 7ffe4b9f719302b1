// Package server hosts the Fiber ops surface that runs next to the repository
// storage engine. It owns the middleware chain (panic recovery, request IDs,
// JSON error bodies) and the built-in diagnostics endpoints under /-/:
// health and Prometheus metrics. Repository-specific routes live in the
// routes subpackage and are attached by the caller, so this package only
// accepts explicit dependencies and keeps its exports narrow.
package server
