package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when the GraphQL endpoint receives a request. The
// event context carries the request id.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the response has been written. Batch is the
// number of operations in a batched request, 1 otherwise.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Batch    int
	Bytes    int
	Duration time.Duration
}
