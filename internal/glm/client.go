// Package glm provides a client for the GLM Coding Plan monitor API.
//
// FILES:
//   - client.go:   API client and HTTP helper
//   - endpoint.go: base URL to monitor root and region resolution
//   - parse.go:    quota response parsing
package glm

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/compresr/glm-usage-monitor/internal/usage"
	"github.com/compresr/glm-usage-monitor/internal/utils"
)

// QuotaLimitPath is the quota endpoint, relative to the monitor root.
const QuotaLimitPath = "/api/monitor/usage/quota/limit"

// userAgent is sent on every request.
const userAgent = "glm-usage-monitor/1.0"

// maxErrorBody bounds how much of a non-200 body ends up in an error message.
const maxErrorBody = 200

// =============================================================================
// Client
// =============================================================================

// Client is the monitor API client. It is safe for concurrent use, although
// the scheduler only ever runs one Fetch at a time.
type Client struct {
	monitorRoot string
	region      string
	token       string
	bearer      bool
	httpClient  *http.Client
	now         func() time.Time
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout. The context passed to Fetch
// still bounds each call.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(client *Client) {
		client.httpClient.Timeout = timeout
	}
}

// WithBearer sends "Authorization: Bearer <token>" instead of the bare token.
func WithBearer(bearer bool) ClientOption {
	return func(client *Client) {
		client.bearer = bearer
	}
}

// NewClient creates a client for the endpoint given as the Anthropic-compatible
// base URL (e.g. https://api.z.ai/api/anthropic).
func NewClient(baseURL, token string, opts ...ClientOption) (*Client, error) {
	root, region, err := ResolveEndpoint(baseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		monitorRoot: root,
		region:      region,
		token:       token,
		httpClient:  &http.Client{},
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// MonitorRoot returns the scheme://host the client talks to.
func (c *Client) MonitorRoot() string {
	return c.monitorRoot
}

// Region returns "global" or "china".
func (c *Client) Region() string {
	return c.region
}

// =============================================================================
// API Methods
// =============================================================================

// Fetch reads the current quota. Every failure is a *usage.FetchError.
// There are no retries; the caller decides when to call again.
func (c *Client) Fetch(ctx context.Context) (*usage.Snapshot, error) {
	body, err := c.get(ctx, QuotaLimitPath)
	if err != nil {
		return nil, err
	}

	snap, err := parseQuota(body, c.region, c.now())
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// =============================================================================
// HTTP Helper
// =============================================================================

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	url := c.monitorRoot + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &usage.FetchError{Kind: usage.KindNetwork, Message: "creating request", Err: err}
	}

	auth := c.token
	if c.bearer {
		auth = "Bearer " + c.token
	}
	requestID := usage.AttemptID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-Id", requestID)

	log.Debug().
		Str("url", url).
		Str("request_id", requestID).
		Str("token", utils.MaskKey(c.token)).
		Msg("glm: requesting quota")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, usage.AsFetchError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, usage.AsFetchError(err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &usage.FetchError{Kind: usage.KindStatus, StatusCode: resp.StatusCode, Message: "invalid API key"}
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(utils.Truncate(string(body), maxErrorBody))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &usage.FetchError{
			Kind:       usage.KindStatus,
			StatusCode: resp.StatusCode,
			Message:    "unexpected status: " + msg,
		}
	}

	return body, nil
}
