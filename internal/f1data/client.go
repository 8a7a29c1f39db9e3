// Package f1data fetches Formula 1 session and telemetry data from an
// OpenF1-compatible REST provider.
package f1data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/f1-visualizer/backend/internal/log"
)

// ErrNotFound is returned when the provider has no data for a request.
var ErrNotFound = errors.New("no data from provider")

// Client talks to the upstream telemetry provider.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *diskCache
}

// NewClient creates a provider client. cacheDir may be empty to disable
// the on-disk response cache.
func NewClient(baseURL, cacheDir string, timeout time.Duration) (*Client, error) {
	cache, err := newDiskCache(cacheDir)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		cache:   cache,
	}, nil
}

// param is one query parameter. op is the comparison operator the provider
// understands ("=", ">=", "<").
type param struct {
	key   string
	op    string
	value string
}

func eq(key, value string) param { return param{key, "=", value} }

func (c *Client) requestURL(endpoint string, params []param) string {
	var sb strings.Builder
	sb.WriteString(c.baseURL)
	sb.WriteString("/")
	sb.WriteString(endpoint)
	for i, p := range params {
		if i == 0 {
			sb.WriteString("?")
		} else {
			sb.WriteString("&")
		}
		sb.WriteString(url.QueryEscape(p.key))
		sb.WriteString(p.op)
		sb.WriteString(url.QueryEscape(p.value))
	}
	return sb.String()
}

// get performs a GET against the provider, consulting the disk cache first.
// out must be a pointer to a slice; the provider always answers with arrays.
func (c *Client) get(ctx context.Context, endpoint string, params []param, out any) error {
	reqURL := c.requestURL(endpoint, params)

	if data, ok := c.cache.Get(reqURL); ok {
		cacheHits.Inc()
		return json.Unmarshal(data, out)
	}
	cacheMisses.Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	upstreamRequests.WithLabelValues(endpoint).Inc()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("provider request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", endpoint, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider request %s: unexpected status %d", endpoint, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading provider response: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding provider response: %w", err)
	}

	c.cache.Put(reqURL, data)
	log.L().Debug("provider response",
		zap.String("endpoint", endpoint),
		zap.Int("bytes", len(data)))
	return nil
}
