package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
)

// Client talks to the GoTrue REST API of a Supabase project.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	now     func() time.Time
}

func NewClient(projectURL, anonKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(projectURL, "/") + "/auth/v1",
		anonKey: anonKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*entity.Session, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", credentialsRequest{email, password}, &resp)
	if err != nil {
		return nil, err
	}
	return c.toSession(resp)
}

// SignUp returns a nil session when the project requires email confirmation.
func (c *Client) SignUp(ctx context.Context, email, password, redirectTo string) (*entity.Session, error) {
	path := "/signup"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}

	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, path, "", credentialsRequest{email, password}, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, nil
	}
	return c.toSession(resp)
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*entity.Session, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", refreshRequest{refreshToken}, &resp)
	if err != nil {
		return nil, err
	}
	return c.toSession(resp)
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

// Health pings the auth service.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", "", nil, nil)
}

func (c *Client) toSession(resp sessionResponse) (*entity.Session, error) {
	if resp.AccessToken == "" || resp.User == nil {
		return nil, errors.New("supabase: token response without session")
	}

	s := &entity.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         entity.User{ID: resp.User.ID, Email: resp.User.Email},
	}
	switch {
	case resp.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(resp.ExpiresAt, 0)
	case resp.ExpiresIn > 0:
		s.ExpiresAt = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return s, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("supabase: marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	c.setHeaders(req, bearer)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("supabase: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return statusError(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("supabase: decode %s: %w", path, err)
	}
	return nil
}

// statusError wraps 4xx answers in entity.ErrAuthRejected; anything else is an outage.
func statusError(status int, raw []byte) error {
	var body errorResponse
	_ = json.Unmarshal(raw, &body)
	msg := body.text()
	if msg == "" {
		msg = http.StatusText(status)
	}

	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", entity.ErrAuthRejected, msg)
	}
	log.Printf("❌ [SUPABASE] status %d: %s", status, string(raw))
	return fmt.Errorf("supabase: status %d: %s", status, msg)
}

func (c *Client) setHeaders(req *http.Request, bearer string) {
	req.Header.Set("apikey", c.anonKey)
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
