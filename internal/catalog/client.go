// Package catalog is a read-only proxy for the YTS movie catalog. It fetches
// records over HTTP, checks their shape and hands them back unchanged. It
// keeps no state beyond its HTTP client and circuit breaker.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"
	"google.golang.org/grpc/metadata"

	eventbus "github.com/hanpama/feedgraph/internal/eventbus"
	events "github.com/hanpama/feedgraph/internal/events"
)

// DefaultBaseURL is the public YTS v2 API.
const DefaultBaseURL = "https://yts.mx/api/v2"

const (
	opListMovies   = "list_movies"
	opMovieDetails = "movie_details"
)

var (
	validate = validator.New()
	callSeq  atomic.Uint64
)

// Client talks to the remote catalog. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	agent   string
}

type options struct {
	httpClient     *http.Client
	timeout        time.Duration
	maxFailures    uint32
	openTimeout    time.Duration
	userAgent      string
	disableBreaker bool
}

type Option func(*options)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }

// WithTimeout bounds each call when the caller's context has no deadline.
// 0 disables the default.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithBreaker configures the circuit breaker: it opens after maxFailures
// consecutive failed calls and probes the remote again after openTimeout.
// maxFailures 0 disables the breaker.
func WithBreaker(maxFailures uint32, openTimeout time.Duration) Option {
	return func(o *options) {
		o.maxFailures = maxFailures
		o.openTimeout = openTimeout
		o.disableBreaker = maxFailures == 0
	}
}

func WithUserAgent(ua string) Option { return func(o *options) { o.userAgent = ua } }

// New creates a Client for the catalog rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	o := options{
		httpClient:  http.DefaultClient,
		timeout:     10 * time.Second,
		maxFailures: 5,
		openTimeout: 30 * time.Second,
		userAgent:   "feedgraph",
	}
	for _, f := range opts {
		f(&o)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    o.httpClient,
		timeout: o.timeout,
		agent:   o.userAgent,
	}
	if !o.disableBreaker {
		maxFailures := o.maxFailures
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "catalog",
			Timeout: o.openTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				eventbus.Publish(context.Background(), events.CatalogBreakerStateChange{
					Name: name, From: from.String(), To: to.String(),
				})
			},
		})
	}
	return c
}

// ListMovies returns the catalog's current movie listing. A listing without
// a movies entry is empty.
func (c *Client) ListMovies(ctx context.Context) ([]Movie, error) {
	var movies []Movie
	err := c.call(ctx, opListMovies, "/list_movies.json", nil, func(data json.RawMessage) error {
		var payload struct {
			Movies []Movie `json:"movies"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decode movies: %w", err)
		}
		for i := range payload.Movies {
			if err := validate.Struct(&payload.Movies[i]); err != nil {
				return fmt.Errorf("movie #%d: %w", i, err)
			}
		}
		movies = payload.Movies
		return nil
	})
	if err != nil {
		return nil, err
	}
	if movies == nil {
		movies = []Movie{}
	}
	return movies, nil
}

// GetMovie returns the movie with id, or nil when the catalog has none.
func (c *Client) GetMovie(ctx context.Context, id string) (*Movie, error) {
	var movie *Movie
	q := url.Values{"movie_id": []string{id}}
	err := c.call(ctx, opMovieDetails, "/movie_details.json", q, func(data json.RawMessage) error {
		var payload struct {
			Movie *Movie `json:"movie"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decode movie: %w", err)
		}
		// The remote answers unknown ids with an empty record.
		if payload.Movie == nil || payload.Movie.ID == 0 {
			return nil
		}
		if err := validate.Struct(payload.Movie); err != nil {
			return fmt.Errorf("movie %s: %w", id, err)
		}
		movie = payload.Movie
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movie, nil
}

type envelope struct {
	Status        string          `json:"status"`
	StatusMessage string          `json:"status_message"`
	Data          json.RawMessage `json:"data"`
}

// call performs one GET and hands the envelope's data to decode. Any failure,
// including one returned by decode, is reported as a RemoteError.
func (c *Client) call(ctx context.Context, op, path string, query url.Values, decode func(json.RawMessage) error) error {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	id := callSeq.Add(1)
	start := time.Now()
	eventbus.Publish(ctx, events.CatalogCallStart{CallID: id, Operation: op, URL: target})

	var status int
	run := func() (any, error) {
		var err error
		status, err = c.fetch(ctx, target, decode)
		return nil, err
	}
	var err error
	if c.breaker != nil {
		_, err = c.breaker.Execute(run)
	} else {
		_, err = run()
	}

	eventbus.Publish(ctx, events.CatalogCallFinish{
		CallID:    id,
		Operation: op,
		URL:       target,
		Status:    status,
		Err:       err,
		Duration:  time.Since(start),
	})
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, target string, decode func(json.RawMessage) error) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.agent)
	forwardMetadata(ctx, req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return resp.StatusCode, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Status != "ok" {
		return resp.StatusCode, fmt.Errorf("status %q: %s", env.Status, env.StatusMessage)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return resp.StatusCode, errMissingData
	}
	return resp.StatusCode, decode(env.Data)
}

// forwardMetadata copies the request metadata collected by the HTTP layer
// onto the outgoing request headers.
func forwardMetadata(ctx context.Context, h http.Header) {
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		return
	}
	for k, vs := range md {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
}
