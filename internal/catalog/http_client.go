package catalog

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

	"github.com/sethvargo/go-retry"

	"github.com/angelmondragon/baystatus/pkg/enums"
	pkgerrors "github.com/angelmondragon/baystatus/pkg/errors"
)

const (
	defaultTimeout              = 10 * time.Second
	defaultRetryBackoff         = 200 * time.Millisecond
	responseBodyReadLimit int64 = 1024
	apiKeyHeader                = "X-Api-Key"
)

var errBaseURLRequired = errors.New("catalog base url is required")

// HTTPClient calls the vehicle specification REST API.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
	retries    int
	backoff    time.Duration
}

// HTTPOption configures optional client behavior.
type HTTPOption func(*HTTPClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAPIKey sends the key on every request.
func WithAPIKey(apiKey string) HTTPOption {
	return func(c *HTTPClient) {
		c.apiKey = strings.TrimSpace(apiKey)
	}
}

// WithTimeout sets the request timeout. It applies to a copy of whichever
// client is in use, including one passed to WithHTTPClient in any order.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRetries retries retryable failures up to n extra times with a linear
// backoff (backoff, 2*backoff, ...). A zero backoff uses the default.
func WithRetries(n int, backoff time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if n > 0 {
			c.retries = n
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

func NewHTTPClient(baseURL string, opts ...HTTPOption) (*HTTPClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid catalog base url %q: %w", baseURL, err)
	}

	client := &HTTPClient{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		backoff:    defaultRetryBackoff,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.timeout > 0 {
		withTimeout := *client.httpClient
		withTimeout.Timeout = client.timeout
		client.httpClient = &withTimeout
	}
	return client, nil
}

// GetPartsByVehicleToEngineConfigIDAndPartType issues
// GET {base}/vehicles/{id}/parts?partType={type}.
func (c *HTTPClient) GetPartsByVehicleToEngineConfigIDAndPartType(ctx context.Context, vehicleToEngineConfigID string, partType enums.PartType) ([]Part, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog client not configured")
	}
	id := strings.TrimSpace(vehicleToEngineConfigID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicleToEngineConfigId is required")
	}
	if !partType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown part type %q", partType)
	}

	var (
		parts   []Part
		lastErr error
	)
	backoff := retry.WithMaxRetries(uint64(c.retries), retry.NewLinear(c.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		fetched, err := c.fetchParts(ctx, id, partType)
		if err != nil {
			lastErr = err
			if pkgerrors.Retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		parts = fetched
		return nil
	})
	if err != nil {
		// Report the typed failure rather than a bare context error when
		// the caller gives up between attempts.
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeLookupFailed, err, "parts request aborted")
	}
	return parts, nil
}

func (c *HTTPClient) fetchParts(ctx context.Context, id string, partType enums.PartType) ([]Part, error) {
	endpoint := fmt.Sprintf("%s/vehicles/%s/parts?%s", c.baseURL, url.PathEscape(id), url.Values{
		"partType": []string{partType.String()},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeLookupFailed, err, "build parts request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeLookupFailed, err, "execute parts request")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "no vehicle %s in catalog", id)
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "catalog rejected request: status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeLookupFailed, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "parts request failed")
	}

	var parts []Part
	if err := json.NewDecoder(resp.Body).Decode(&parts); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeLookupFailed, err, "decode parts response")
	}
	if parts == nil {
		parts = []Part{}
	}
	return parts, nil
}
