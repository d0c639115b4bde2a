// Package monobank wraps the upstream banking API. It is a pure I/O adapter:
// it shapes requests, decodes responses and classifies failures, and leaves
// every business decision to its callers.
package monobank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Iron-Cow/MonoProject/internal/domain"
)

const (
	// DefaultBaseURL is the production upstream endpoint.
	DefaultBaseURL = "https://api.monobank.ua"

	clientInfoPath = "/personal/client-info"
	statementPath  = "/personal/statement"
	webhookPath    = "/personal/webhook"

	defaultTimeout = 10 * time.Second
)

// Client calls the upstream banking API on behalf of one or more access
// tokens. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a client for the given base URL. An empty baseURL selects
// the production endpoint; a zero timeout selects the default.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// ClientInfo fetches the card/jar listing for the token.
func (c *Client) ClientInfo(ctx context.Context, token string) (*ClientInfo, error) {
	var info ClientInfo
	if err := c.getJSON(ctx, c.baseURL+clientInfoPath, token, &info); err != nil {
		return nil, fmt.Errorf("client info: %w", err)
	}
	return &info, nil
}

// Statement fetches the transaction window [from, to] (epoch seconds) of one
// sub-account.
func (c *Client) Statement(ctx context.Context, token, subAccountID string, from, to int64) ([]StatementItem, error) {
	url := fmt.Sprintf("%s%s/%s/%d/%d", c.baseURL, statementPath, subAccountID, from, to)
	var items []StatementItem
	if err := c.getJSON(ctx, url, token, &items); err != nil {
		return nil, fmt.Errorf("statement %s: %w", subAccountID, err)
	}
	return items, nil
}

// RegisterWebhook asks the upstream to deliver this token's statement events
// to webhookURL.
func (c *Client) RegisterWebhook(ctx context.Context, token, webhookURL string) error {
	body, err := json.Marshal(map[string]string{"webHookUrl": webhookURL})
	if err != nil {
		return fmt.Errorf("register webhook: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+webhookPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("register webhook: %w", err)
	}
	req.Header.Set("X-Token", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("register webhook: %w", classifyTransport(err))
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return fmt.Errorf("register webhook: %w", err)
	}

	c.log.Debug().Str("webhook_url", webhookURL).Msg("Webhook registered")
	return nil
}

// getJSON performs an authenticated GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, url, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Token", token)

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", domain.ErrTransientUpstream, err)
	}

	// The upstream sometimes answers 200 with an error body instead of the
	// requested resource.
	var apiErr apiError
	if json.Unmarshal(data, &apiErr) == nil && apiErr.ErrorDescription != "" {
		return fmt.Errorf("%w: %s", domain.ErrUpstreamData, apiErr.ErrorDescription)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", domain.ErrUpstreamData, err)
	}
	return nil
}

// classifyTransport maps transport-level failures. Timeouts, resets and
// connection problems are all transient; there is nothing a caller can fix
// without simply trying again.
func classifyTransport(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: timeout: %v", domain.ErrTransientUpstream, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrTransientUpstream, err)
}

// classifyStatus maps a non-2xx response into the error taxonomy: 429 and
// 5xx are transient, everything else is an upstream data error.
func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: rate limited (429)", domain.ErrTransientUpstream)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: upstream status %d", domain.ErrTransientUpstream, resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", domain.ErrUpstreamData, resp.StatusCode, bytes.TrimSpace(body))
	}
}
