// Package client provides the HTTP client for the Rick and Morty character
// list endpoint with optional response caching and error classification.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"syscall"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/cache"
	"github.com/Sternrassler/rickmorty-client/pkg/character"
	"github.com/Sternrassler/rickmorty-client/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the public Rick and Morty API.
	DefaultBaseURL = "https://rickandmortyapi.com"

	// CharacterEndpoint is the path of the paginated character list.
	CharacterEndpoint = "/api/character/"
)

// Prometheus metrics for API client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rickmorty_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rickmorty_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rickmorty_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// Client fetches pages of the character list.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API, without the /api path.
	BaseURL string

	// User-Agent header sent with every request.
	UserAgent string

	// Timeout for a single request.
	Timeout time.Duration

	// Redis enables the shared response cache when set.
	Redis *redis.Client
}

// DefaultConfig returns a configuration for the public API.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
	}
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		config:  cfg,
		logger:  logging.NewLogger(logging.ComponentClient),
	}

	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

// FetchPage retrieves one page of the character list. It performs a single
// attempt and never retries.
//
// Errors are *TransportError when no response arrived, *UnclassifiedError
// for a non-2xx status and *character.MappingError for a body that does not
// decode or holds an incomplete record.
// A cancelled ctx yields the context error.
func (c *Client) FetchPage(ctx context.Context, page int) (*character.Response, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPage, page)
	}

	query := url.Values{"page": []string{strconv.Itoa(page)}}

	var resp character.Response
	err := c.get(ctx, CharacterEndpoint, query, func(body []byte) error {
		resp = character.Response{}
		if err := json.Unmarshal(body, &resp); err != nil {
			return &character.MappingError{Index: -1, Err: err}
		}
		_, err := character.ToCharacters(resp.Results)
		return err
	})
	if err != nil {
		var me *character.MappingError
		if errors.As(err, &me) {
			errorsTotal.WithLabelValues(string(ErrorClassMapping)).Inc()
			c.logger.Warn().Err(err).Int("page", page).Msg("Failed to decode page")
		}
		return nil, err
	}

	return &resp, nil
}

// get performs a GET request, consulting the response cache when enabled.
// decode runs on every body, fresh or cached; only bodies that decode are stored.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, decode func([]byte) error) error {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	key := cache.Key{Endpoint: endpoint, Query: query}

	var cached *cache.Entry
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil && !entry.IsExpired():
			if derr := decode(entry.Body); derr == nil {
				requestsTotal.WithLabelValues(endpoint, "cached").Inc()
				c.logger.Debug().Str("key", key.String()).Msg("Serving fresh cache entry")
				return nil
			}
			c.dropEntry(ctx, key)
		case err == nil:
			cached = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	target := c.baseURL.ResolveReference(&url.URL{Path: endpoint, RawQuery: query.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	if cached != nil {
		cache.AddConditionalHeaders(req, cached)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cached.ETag).
			Msg("Making conditional request")
	}

	c.logger.Debug().
		Str("url", target.String()).
		Msg("Executing API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			requestsTotal.WithLabelValues(endpoint, "cancelled").Inc()
			return fmt.Errorf("request %s: %w", endpoint, ctxErr)
		}

		terr := &TransportError{Class: classifyTransport(err), Endpoint: endpoint, Err: err}
		errorsTotal.WithLabelValues(string(terr.Class)).Inc()
		requestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		c.logger.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Str("error_class", string(terr.Class)).
			Msg("HTTP request failed")
		return terr
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		cache.NotModifiedResponses.Inc()
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		if err := decode(cached.Body); err != nil {
			c.dropEntry(ctx, key)
			return err
		}
		if err := c.cache.Renew(ctx, key, cached, cache.ExpiresFrom(resp.Header)); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to renew cache entry")
		}
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		uerr := &UnclassifiedError{
			StatusCode: resp.StatusCode,
			Class:      classifyStatus(resp.StatusCode),
			Message:    resp.Status,
		}
		errorsTotal.WithLabelValues(string(uerr.Class)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(uerr.Class)).
			Msg("API request error")
		return uerr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("request %s: %w", endpoint, ctxErr)
		}
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return &TransportError{Class: ErrorClassNetwork, Endpoint: endpoint, Err: err}
	}

	if err := decode(body); err != nil {
		return err
	}

	if c.cache != nil {
		if entry := cache.NewEntry(resp.StatusCode, resp.Header, body); entry != nil {
			if err := c.cache.Set(ctx, key, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				c.logger.Debug().
					Str("endpoint", endpoint).
					Dur("ttl", entry.TTL()).
					Msg("Cached response")
			}
		}
	}

	return nil
}

func (c *Client) dropEntry(ctx context.Context, key cache.Key) {
	if err := c.cache.Delete(ctx, key); err != nil {
		c.logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to drop undecodable cache entry")
	}
}

// classifyTransport tells missing connectivity apart from other transport
// failures.
func classifyTransport(err error) ErrorClass {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorClassConnectivity
	}
	if errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return ErrorClassConnectivity
	}
	return ErrorClassNetwork
}

func classifyStatus(code int) ErrorClass {
	if code >= 500 {
		return ErrorClassServer
	}
	return ErrorClassClient
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

// GetCache returns the cache manager, nil when caching is disabled.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
