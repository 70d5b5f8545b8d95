package events

import "time"

// CatalogCallStart is emitted before the catalog client sends a request to
// the remote movie service. CallID pairs it with its CatalogCallFinish.
type CatalogCallStart struct {
	CallID    uint64
	Operation string
	URL       string
}

// CatalogCallFinish is emitted when a catalog request completes. Status is
// zero when no HTTP response was received.
type CatalogCallFinish struct {
	CallID    uint64
	Operation string
	URL       string
	Status    int
	Err       error
	Duration  time.Duration
}

// CatalogBreakerStateChange is emitted when the circuit breaker guarding the
// remote movie service changes state.
type CatalogBreakerStateChange struct {
	Name string
	From string
	To   string
}
