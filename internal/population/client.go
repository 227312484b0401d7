// Package population resolves country populations from the REST Countries API.
package population

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DojoBits/cncf-kubestronauts/internal/kubestronaut"
)

// DefaultBaseURL is the public REST Countries v3.1 endpoint.
const DefaultBaseURL = "https://restcountries.com/v3.1"

// DefaultSecondMatch lists names whose lookups return several countries where
// the wanted one is the second element.
var DefaultSecondMatch = []string{"united states", "georgia"}

// ClientConfig controls the REST Countries client.
type ClientConfig struct {
	BaseURL     string
	Timeout     time.Duration
	SecondMatch []string
}

// Client looks up one country at a time.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	secondMatch map[string]struct{}
	logger      *zap.Logger
}

type country struct {
	Population *int64 `json:"population"`
}

// NewClient builds a Client sharing one pooled transport across all lookups.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	names := cfg.SecondMatch
	if names == nil {
		names = DefaultSecondMatch
	}
	secondMatch := make(map[string]struct{}, len(names))
	for _, n := range names {
		secondMatch[normalize(n)] = struct{}{}
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: newHTTPTransport(),
		},
		secondMatch: secondMatch,
		logger:      logger,
	}
}

// Lookup fetches the population for one country name.
// Non-200 responses and missing fields yield the unavailable sentinel with a nil error;
// only transport failures are returned as errors.
func (c *Client) Lookup(ctx context.Context, name string) (kubestronaut.Population, error) {
	reqURL := fmt.Sprintf("%s/name/%s", c.baseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return kubestronaut.Unavailable(), fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("fetching population", zap.String("country", name))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return kubestronaut.Unavailable(), fmt.Errorf("get %s: %w", reqURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("population lookup failed",
			zap.String("country", name),
			zap.Int("status", resp.StatusCode),
		)
		// drain so the connection returns to the pool
		_, _ = io.Copy(io.Discard, resp.Body)
		return kubestronaut.Unavailable(), nil
	}

	var matches []country
	if err := json.NewDecoder(resp.Body).Decode(&matches); err != nil {
		c.logger.Warn("population response not decodable",
			zap.String("country", name),
			zap.Error(err),
		)
		return kubestronaut.Unavailable(), nil
	}
	return c.pick(name, matches), nil
}

// pick applies the disambiguation rule to a decoded response.
func (c *Client) pick(name string, matches []country) kubestronaut.Population {
	if len(matches) == 0 {
		return kubestronaut.Unavailable()
	}
	chosen := matches[0]
	if len(matches) > 1 {
		if _, ok := c.secondMatch[normalize(name)]; ok {
			c.logger.Debug("using second population entry", zap.String("country", name))
			chosen = matches[1]
		} else {
			// Not on the allow-list: the first entry may be the wrong country.
			c.logger.Warn("ambiguous country lookup, using first entry",
				zap.String("country", name),
				zap.Int("matches", len(matches)),
			)
		}
	}
	if chosen.Population == nil {
		return kubestronaut.Unavailable()
	}
	return kubestronaut.KnownPopulation(*chosen.Population)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
	}
}
