package revealapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// SessionHeader carries the resolved vault session token on requests that
// touch a protected path. The vault only resolves the token; callers
// making requests are responsible for attaching it.
const SessionHeader = "X-Vault-Session"

const userAgent = "drivevault/0.1"

// Endpoint paths relative to the base URL.
const (
	revealPath = "/vault/reveal"
	hidePath   = "/vault/hide"
	listPath   = "/drive/list"
)

// Client is an HTTP client for the vault and listing endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Reveal exchanges a passphrase for a session token on the given folder.
func (c *Client) Reveal(ctx context.Context, req RevealRequest) (*RevealResponse, error) {
	body, err := c.postJSON(ctx, revealPath, req)
	if err != nil {
		return nil, err
	}

	var resp RevealResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("revealapi: decoding reveal response: %w", err)
	}

	return &resp, nil
}

// Hide re-locks a folder. A successful call invalidates any outstanding
// session server-side; the caller is expected to drop its cached session
// and invalidate directory listings.
func (c *Client) Hide(ctx context.Context, req HideRequest) error {
	_, err := c.postJSON(ctx, hidePath, req)
	return err
}

// List fetches a directory listing. A non-empty token is attached as the
// session header so the server will serve protected paths.
func (c *Client) List(ctx context.Context, path, token string) ([]Entry, error) {
	u := c.baseURL + listPath + "?path=" + url.QueryEscape(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("revealapi: building list request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	if token != "" {
		req.Header.Set(SessionHeader, token)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("revealapi: decoding listing: %w", err)
	}

	return entries, nil
}

// postJSON issues a JSON POST and returns the response body on 2xx.
func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("revealapi: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("revealapi: building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	return c.do(req)
}

// do executes the request once and classifies non-2xx responses into
// *APIError. Never logs passphrases or tokens.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("revealapi: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		if readErr != nil {
			return nil, fmt.Errorf("revealapi: reading response body: %w", readErr)
		}

		c.logger.Debug("request succeeded",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", resp.StatusCode),
		)

		return body, nil
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Err:        classifyStatus(resp.StatusCode),
	}

	// The error body is best-effort: anything unparseable is kept as the
	// raw message so the user still sees what the server said.
	var parsed errorBody
	if readErr == nil && len(body) > 0 {
		if jsonErr := json.Unmarshal(body, &parsed); jsonErr == nil {
			apiErr.Title = parsed.Title
			apiErr.Message = parsed.Message
		} else {
			apiErr.Message = string(body)
		}
	}

	c.logger.Warn("request failed",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
	)

	return nil, apiErr
}
