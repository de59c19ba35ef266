package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"

	"authgate/internal/models"
)

const maxSessionResponseBytes = 1 << 20

// LocalFetcher resolves sessions in-process from a raw Cookie header.
type LocalFetcher struct {
	sessions   *SessionService
	cookieName string
}

func NewLocalFetcher(sessions *SessionService, cookieName string) *LocalFetcher {
	return &LocalFetcher{sessions: sessions, cookieName: cookieName}
}

func (f *LocalFetcher) FetchSession(ctx context.Context, cookieHeader string) (*models.SessionPayload, error) {
	value := CookieValue(cookieHeader, f.cookieName)
	if value == "" {
		return nil, nil
	}
	return f.sessions.Resolve(ctx, value)
}

// CookieValue extracts a single cookie from a raw Cookie header.
func CookieValue(cookieHeader, name string) string {
	r := http.Request{Header: http.Header{"Cookie": {cookieHeader}}}
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// SessionClient resolves sessions against a remote get-session endpoint.
type SessionClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewSessionClient(baseURL string) *SessionClient {
	return &SessionClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *SessionClient) SetHTTPClient(hc *http.Client) {
	if hc != nil {
		c.httpClient = hc
	}
}

func (c *SessionClient) FetchSession(ctx context.Context, cookieHeader string) (*models.SessionPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/get-session", nil)
	if err != nil {
		return nil, oops.Code("SESSION_FETCH_FAILED").Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cookie", cookieHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, oops.Code("SESSION_FETCH_FAILED").Wrap(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSessionResponseBytes))
	if err != nil {
		return nil, oops.Code("SESSION_FETCH_FAILED").Wrap(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, oops.Code("SESSION_FETCH_FAILED").
			With("status", resp.StatusCode).
			Wrap(fmt.Errorf("get-session failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var payload models.SessionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, oops.Code("SESSION_FETCH_FAILED").Wrap(fmt.Errorf("get-session: invalid json: %w", err))
	}
	if payload.Session.ID == "" && payload.User.ID == "" {
		return nil, nil
	}
	return &payload, nil
}
