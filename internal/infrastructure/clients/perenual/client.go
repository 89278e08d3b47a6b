package perenual

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dontkillit/backend/internal/domain/providers"
	"github.com/dontkillit/backend/internal/infrastructure/observability"
	"github.com/dontkillit/backend/pkg/config"
	apperrors "github.com/dontkillit/backend/pkg/errors"
	"github.com/dontkillit/backend/pkg/retry"
	"golang.org/x/time/rate"
)

// maxBodyBytes bounds how much of a response is read
const maxBodyBytes = 4 << 20

// Client talks to the Perenual species API
type Client struct {
	apiKey           string
	baseURL          string
	httpClient       *http.Client
	limiter          *rate.Limiter
	rateLimitBackoff time.Duration
	indoorFirst      bool
	sleep            func(ctx context.Context, d time.Duration) error
}

var _ providers.SpeciesProvider = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithSleep replaces the function used to wait out a 429
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// NewClient creates a Perenual client from configuration
func NewClient(cfg *config.PerenualConfig, opts ...Option) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		apiKey:           cfg.APIKey,
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:       &http.Client{Timeout: cfg.Timeout},
		limiter:          rate.NewLimiter(limit, 1),
		rateLimitBackoff: cfg.RateLimitBackoff,
		indoorFirst:      cfg.IndoorSearchFirst,
		sleep:            retry.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchSpecies returns the best species-list match for query, or nil when
// there is none. indoor filters the search when set.
func (c *Client) SearchSpecies(ctx context.Context, query string, indoor *bool) (*Species, error) {
	params := url.Values{}
	params.Set("q", query)
	if indoor != nil {
		if *indoor {
			params.Set("indoor", "1")
		} else {
			params.Set("indoor", "0")
		}
	}

	body, err := c.get(ctx, "/species-list", params)
	if err != nil {
		return nil, err
	}

	var list speciesListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, apperrors.NewExternalError("failed to decode perenual species list", err)
	}
	if len(list.Data) == 0 {
		return nil, nil
	}
	return decodeSpecies(list.Data[0])
}

// GetSpeciesDetails returns the details of a species, or nil when Perenual
// does not know the id
func (c *Client) GetSpeciesDetails(ctx context.Context, id int) (*Species, error) {
	body, err := c.get(ctx, "/species/details/"+strconv.Itoa(id), url.Values{})
	if apperrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSpecies(body)
}

// SearchAndGetDetails searches for query, indoor plants first and then
// unfiltered, and merges the first hit with its details. Fields present in
// the details win.
func (c *Client) SearchAndGetDetails(ctx context.Context, query string) (*providers.SpeciesMatch, error) {
	logger := observability.LoggerFromContext(ctx)

	var hit *Species
	var err error
	if c.indoorFirst {
		indoor := true
		if hit, err = c.SearchSpecies(ctx, query, &indoor); err != nil {
			return nil, err
		}
	}
	if hit == nil {
		if hit, err = c.SearchSpecies(ctx, query, nil); err != nil {
			return nil, err
		}
	}
	if hit == nil || hit.ID == 0 {
		logger.Info().Str("query", query).Msg("No Perenual match")
		return nil, nil
	}

	details, err := c.GetSpeciesDetails(ctx, hit.ID)
	if err != nil {
		return nil, err
	}

	raw := hit.Raw
	if details != nil {
		raw, err = mergeRaw(hit.Raw, details.Raw)
		if err != nil {
			return nil, apperrors.NewExternalError("failed to merge perenual species payloads", err)
		}
	} else {
		logger.Warn().Int("perenual_id", hit.ID).Msg("Perenual details missing, using search result")
	}

	merged, err := decodeSpecies(raw)
	if err != nil {
		return nil, err
	}

	return &providers.SpeciesMatch{
		CareData: ExtractCareData(merged),
		Raw:      raw,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("key", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	status, body, err := c.do(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	if status == http.StatusTooManyRequests {
		observability.LoggerFromContext(ctx).Warn().
			Str("path", path).
			Dur("backoff", c.rateLimitBackoff).
			Msg("Perenual rate limit hit, backing off")

		if err := c.sleep(ctx, c.rateLimitBackoff); err != nil {
			return nil, err
		}
		status, body, err = c.do(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		if status == http.StatusTooManyRequests {
			return nil, apperrors.NewRateLimitedError("perenual rate limit exceeded after retry", nil)
		}
	}

	switch {
	case status == http.StatusNotFound:
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("perenual resource %s not found", path))
	case status < 200 || status >= 300:
		return nil, apperrors.NewExternalError(fmt.Sprintf("perenual returned status %d for %s", status, path), nil)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, endpoint string) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, apperrors.NewInternalError("failed to build perenual request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, apperrors.NewExternalError("perenual request failed", redactKey(err, c.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, apperrors.NewExternalError("failed to read perenual response", err)
	}
	return resp.StatusCode, body, nil
}

func decodeSpecies(raw json.RawMessage) (*Species, error) {
	var s Species
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, apperrors.NewExternalError("failed to decode perenual species", err)
	}
	s.Raw = raw
	return &s, nil
}

// mergeRaw overlays the top-level keys of details onto base
func mergeRaw(base, details json.RawMessage) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	var overlay map[string]json.RawMessage
	if err := json.Unmarshal(details, &overlay); err != nil {
		return nil, err
	}
	for k, v := range overlay {
		fields[k] = v
	}
	return json.Marshal(fields)
}

// url.Error messages include the request URL, which carries the API key
func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), key, "REDACTED"))
}
