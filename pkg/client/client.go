// Package client executes an operation as a batch of concurrent HTTP
// requests against a Jamf Pro server and streams back one result per
// sub-request.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/jamfctl/pkg/operation"
	"github.com/Sternrassler/jamfctl/pkg/ratelimit"
	"github.com/Sternrassler/jamfctl/pkg/session"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Accept types a batch can request.
const (
	AcceptXML  = "application/xml"
	AcceptJSON = "application/json"
)

// Prometheus metrics for batch execution.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jamf_requests_total",
		Help: "Total sub-requests by method and status",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jamf_request_duration_seconds",
		Help:    "Sub-request duration in seconds by method",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jamf_errors_total",
		Help: "Total failed sub-requests by class",
	}, []string{"class"})

	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jamf_batches_total",
		Help: "Batches by outcome",
	}, []string{"outcome"})

	batchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jamf_batch_size",
		Help:    "Number of sub-requests per batch",
		Buckets: prometheus.ExponentialBuckets(1, 4, 7),
	})

	inflightRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jamf_inflight_requests",
		Help: "Sub-requests currently in flight",
	})
)

// maxBody bounds a single response body.
const maxBody = 64 << 20

// Result is the outcome of one sub-request. Exactly one of Body or Err is
// meaningful: Err == nil means success.
type Result struct {
	// Index is the position of the sub-request in generation order.
	Index int
	URL   string
	Body  string
	Err   error
}

// OK reports whether the sub-request succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Config holds the client configuration.
type Config struct {
	// Session provides the server address and bearer token (REQUIRED).
	Session *session.Session

	// HTTPClient overrides the transport. When nil a client honoring the
	// session's insecure flag is built.
	HTTPClient *http.Client

	// Accept is AcceptXML or AcceptJSON, fixed for every batch.
	Accept string

	// MaxConcurrency caps in-flight sub-requests; <= 0 dispatches all at once.
	// Ignored when Limiter is set.
	MaxConcurrency int

	// Limiter gates dispatch, e.g. a limiter shared through Redis.
	Limiter ratelimit.Limiter

	// UserAgent header sent with every request.
	UserAgent string

	// Logger overrides the global logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns a configuration requesting XML with unbounded dispatch.
func DefaultConfig(sess *session.Session) Config {
	return Config{
		Session:   sess,
		Accept:    AcceptXML,
		UserAgent: "jamfctl",
	}
}

// Client executes operations against one session.
type Client struct {
	httpClient *http.Client
	session    *session.Session
	limiter    ratelimit.Limiter
	config     Config
	logger     zerolog.Logger
	now        func() time.Time
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.Session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if cfg.Accept != AcceptXML && cfg.Accept != AcceptJSON {
		return nil, fmt.Errorf("accept must be %s or %s (got %q)", AcceptXML, AcceptJSON, cfg.Accept)
	}

	limiter := cfg.Limiter
	if limiter == nil && cfg.MaxConcurrency > 0 {
		local, err := ratelimit.NewLocal(cfg.MaxConcurrency)
		if err != nil {
			return nil, err
		}
		limiter = local
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(cfg.Session.Insecure())
	}

	base := log.Logger
	if cfg.Logger != nil {
		base = *cfg.Logger
	}

	return &Client{
		httpClient: httpClient,
		session:    cfg.Session,
		limiter:    limiter,
		config:     cfg,
		logger:     base.With().Str("component", "jamf-client").Logger(),
		now:        time.Now,
	}, nil
}

func newHTTPClient(insecure bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: insecure, //nolint:gosec // opt-in via --insecure
	}
	transport.MaxIdleConnsPerHost = 32
	return &http.Client{Transport: transport}
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *session.Session {
	return c.session
}

// Execute runs every sub-request of op concurrently and returns a channel
// receiving exactly op.Count() results in completion order. The channel is
// closed once all results are delivered.
//
// A missing or expired token is refreshed once before dispatch; if that
// fails the error is returned and nothing is dispatched. The token is not
// renewed while the batch runs.
func (c *Client) Execute(ctx context.Context, op operation.Descriptor) (<-chan Result, error) {
	n := op.Count()
	if n == 0 {
		return nil, ErrEmptyOperation
	}

	logger := c.logger.With().
		Str("batch_id", uuid.NewString()).
		Str("method", op.Method()).
		Str("template", op.Template()).
		Int("sub_requests", n).
		Logger()

	if !c.session.TokenValid(c.now()) {
		logger.Debug().Msg("Token missing or expired - authenticating")
		if err := c.session.Authenticate(ctx, c.httpClient); err != nil {
			batchesTotal.WithLabelValues("auth_failed").Inc()
			logger.Error().Err(err).Msg("Batch aborted before dispatch")
			return nil, err
		}
	}
	token, _ := c.session.Token()

	urls := op.URLs(c.session.BaseURL())
	results := make(chan Result, n)
	batchSize.Observe(float64(n))

	var wg sync.WaitGroup
	var failed atomic.Int64
	wg.Add(n)
	start := time.Now()

	emit := func(r Result) {
		if r.Err != nil {
			failed.Add(1)
		}
		results <- r
		wg.Done()
	}

	go func() {
		for i, u := range urls {
			if c.limiter != nil {
				if err := c.limiter.Acquire(ctx); err != nil {
					emit(Result{Index: i, URL: u, Err: &RequestError{
						Method: op.Method(),
						Path:   pathOf(u),
						Class:  ErrorClassNetwork,
						Err:    fmt.Errorf("%s %s not dispatched: %w", op.Method(), pathOf(u), err),
					}})
					continue
				}
			}
			go func(i int, u string) {
				if c.limiter != nil {
					defer c.limiter.Release(ctx)
				}
				emit(c.do(ctx, logger, op.Method(), i, u, token.Value))
			}(i, u)
		}
	}()

	go func() {
		wg.Wait()
		close(results)

		outcome := "completed"
		if failed.Load() > 0 {
			outcome = "partial"
		}
		batchesTotal.WithLabelValues(outcome).Inc()
		logger.Info().
			Int64("failed", failed.Load()).
			Dur("duration", time.Since(start)).
			Msg("Batch complete")
	}()

	return results, nil
}

// do performs a single sub-request.
func (c *Client) do(ctx context.Context, logger zerolog.Logger, method string, index int, rawURL, token string) Result {
	res := Result{Index: index, URL: rawURL}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		res.Err = &RequestError{Method: method, Path: pathOf(rawURL), Class: ErrorClassClient, Err: fmt.Errorf("create request: %w", err)}
		return res
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", c.config.Accept)
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	path := req.URL.EscapedPath()

	logger.Debug().Str("path", path).Int("index", index).Msg("Dispatching request")

	inflightRequests.Inc()
	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.WithLabelValues(method).Observe(time.Since(startTime).Seconds())
	inflightRequests.Dec()

	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(method, "network_error").Inc()
		logger.Warn().Err(err).Str("path", path).Msg("Request failed")
		res.Err = &RequestError{Method: method, Path: path, Class: ErrorClassNetwork, Err: err}
		return res
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()
		logger.Warn().
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Request error")
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		res.Err = &RequestError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Class:      class,
		}
		return res
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		res.Err = &RequestError{Method: method, Path: path, Class: ErrorClassNetwork, Err: fmt.Errorf("read body of %s: %w", path, err)}
		return res
	}

	res.Body = string(body)
	return res
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// pathOf extracts the path of an already materialized URL for error context.
func pathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.EscapedPath()
}

// Summary is the drained content of a result stream.
type Summary struct {
	Bodies []string
	Errors []error
}

// Collect drains ch, keeping successes and failures apart.
func Collect(ch <-chan Result) Summary {
	var s Summary
	for r := range ch {
		if r.Err != nil {
			s.Errors = append(s.Errors, r.Err)
			continue
		}
		s.Bodies = append(s.Bodies, r.Body)
	}
	return s
}

// Err joins every failure of the summary, or returns nil.
func (s Summary) Err() error {
	return errors.Join(s.Errors...)
}
