// Package client is a typed HTTP client for the CRM API endpoint catalog
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fieldline/crm-api/internal/domain"
	"go.uber.org/zap"
)

const defaultCookieName = "session"

// Client calls the API with a session cookie obtained from SignIn
type Client struct {
	baseURL    string
	cookieName string
	httpClient *http.Client
	logger     *zap.Logger

	mu      sync.RWMutex
	session string
}

// New creates a client for the API rooted at baseURL, e.g. https://crm.example.com/api
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		cookieName: defaultCookieName,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Session returns the current session token, empty when signed out
func (c *Client) Session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// SetSession restores a session token saved by an earlier SignIn
func (c *Client) SetSession(token string) {
	c.mu.Lock()
	c.session = token
	c.mu.Unlock()
}

type envelope struct {
	Success bool                          `json:"success"`
	Data    json.RawMessage               `json:"data"`
	Message string                        `json:"message"`
	Errors  []domain.ValidationFieldError `json:"errors"`
}

// do sends a JSON request and decodes the envelope's data into out (when non-nil)
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	resp, err := c.send(ctx, method, path, query, body, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &NetworkError{Method: method, Path: path, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if err := c.checkEnvelope(method, path, resp.StatusCode, &env); err != nil {
		return err
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &NetworkError{Method: method, Path: path, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode data: %w", err)}
		}
	}
	return nil
}

// download fetches a binary endpoint
func (c *Client) download(ctx context.Context, path string, query url.Values) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, path, query, nil, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var env envelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		if err := c.checkEnvelope(http.MethodGet, path, resp.StatusCode, &env); err != nil {
			return nil, err
		}
		return nil, &NetworkError{Method: http.MethodGet, Path: path, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: http.MethodGet, Path: path, Status: resp.StatusCode, Err: err}
	}
	return data, nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body interface{}, needSession bool) (*http.Response, error) {
	session := c.Session()
	if needSession && session == "" {
		return nil, ErrNotSignedIn
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: session})
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: method, Path: path, Err: err}
	}
	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

func (c *Client) checkEnvelope(method, path string, status int, env *envelope) error {
	switch {
	case status == http.StatusNotFound:
		return &NotFoundError{Path: path, Message: env.Message}
	case status == http.StatusBadRequest && len(env.Errors) > 0:
		first := env.Errors[0]
		return domain.NewValidationError(first.Field, first.Message)
	case status >= 400 || !env.Success:
		return &NetworkError{Method: method, Path: path, Status: status, Message: env.Message}
	}
	return nil
}

// SignIn authenticates and keeps the session cookie for later calls
func (c *Client) SignIn(ctx context.Context, username, password string) (*domain.SessionDTO, error) {
	const path = "/signin"
	resp, err := c.send(ctx, http.MethodPost, path, nil, domain.SignInRequest{Username: username, Password: password}, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &NetworkError{Method: http.MethodPost, Path: path, Status: resp.StatusCode, Err: err}
	}
	if err := c.checkEnvelope(http.MethodPost, path, resp.StatusCode, &env); err != nil {
		return nil, err
	}

	var token string
	for _, cookie := range resp.Cookies() {
		if cookie.Name == c.cookieName {
			token = cookie.Value
		}
	}
	if token == "" {
		return nil, &NetworkError{Method: http.MethodPost, Path: path, Status: resp.StatusCode, Err: errors.New("no session cookie in response")}
	}
	c.SetSession(token)

	var session domain.SessionDTO
	if err := json.Unmarshal(env.Data, &session); err != nil {
		return nil, &NetworkError{Method: http.MethodPost, Path: path, Status: resp.StatusCode, Err: err}
	}
	return &session, nil
}

// SignOut clears the server cookie and forgets the local session
func (c *Client) SignOut(ctx context.Context) error {
	defer c.SetSession("")
	return c.do(ctx, http.MethodPost, "/signout", nil, nil, nil)
}
