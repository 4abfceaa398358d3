// Package keybuilder centralizes the construction of cache keys shared
// by the idempotency store and the circuit breaker so that every caller
// agrees on the exact key shape.
package keybuilder

import "fmt"

const (
	idempotencyPrefix = "idempotency"
	circuitPrefix     = "circuit"
)

// Idempotency builds the cache key for an idempotency record.
func Idempotency(key string) string {
	return fmt.Sprintf("%s:%s", idempotencyPrefix, key)
}

// CircuitState builds the cache key for a dependency's circuit state.
func CircuitState(dependency string) string {
	return fmt.Sprintf("%s:%s:state", circuitPrefix, dependency)
}

// CircuitFailures builds the cache key for a dependency's failure counter.
func CircuitFailures(dependency string) string {
	return fmt.Sprintf("%s:%s:failures", circuitPrefix, dependency)
}

// CircuitSuccesses builds the cache key for a dependency's success counter.
func CircuitSuccesses(dependency string) string {
	return fmt.Sprintf("%s:%s:successes", circuitPrefix, dependency)
}

// CircuitOpenedAt builds the cache key for a dependency's open-transition timestamp.
func CircuitOpenedAt(dependency string) string {
	return fmt.Sprintf("%s:%s:opened_at", circuitPrefix, dependency)
}
