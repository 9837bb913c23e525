package firebase

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
	"time"
)

const (
	defaultBaseURL        = "https://identitytoolkit.googleapis.com/v1"
	responseBodyReadLimit = 64 << 10
)

var errAPIKeyRequired = errors.New("firebase api key is required")

// Client talks to the Identity Toolkit REST API backing Firebase Authentication.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL points the client at an emulator or test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds an Identity Toolkit client for the given web API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Session is returned by sign-up and sign-in.
type Session struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	Registered   bool   `json:"registered"`
}

// User is the account record returned by accounts:lookup and accounts:update.
type User struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	EmailVerified bool   `json:"emailVerified"`
	CreatedAt     string `json:"createdAt,omitempty"`
	LastLoginAt   string `json:"lastLoginAt,omitempty"`
}

// APIError carries the provider's error payload.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity toolkit: %d %s", e.StatusCode, e.Message)
}

// Reason returns the leading error token, e.g. "WEAK_PASSWORD" from
// "WEAK_PASSWORD : Password should be at least 6 characters".
func (e *APIError) Reason() string {
	if e == nil {
		return ""
	}
	reason, _, _ := strings.Cut(e.Message, " ")
	return strings.TrimSpace(reason)
}

// ReasonOf extracts the provider reason from err, or "" when err is not an APIError.
func ReasonOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Reason()
	}
	return ""
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	var out Session
	err := c.post(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var out Session
	err := c.post(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SendPasswordResetEmail(ctx context.Context, email string) error {
	return c.post(ctx, "accounts:sendOobCode", map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, nil)
}

// UpdateProfile sets the display name of the account owning idToken.
func (c *Client) UpdateProfile(ctx context.Context, idToken, displayName string) (*User, error) {
	var out User
	err := c.post(ctx, "accounts:update", map[string]any{
		"idToken":           idToken,
		"displayName":       displayName,
		"returnSecureToken": false,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Lookup returns the account record for idToken.
func (c *Client) Lookup(ctx context.Context, idToken string) (*User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	if err := c.post(ctx, "accounts:lookup", map[string]any{"idToken": idToken}, &out); err != nil {
		return nil, err
	}
	if len(out.Users) == 0 {
		return nil, &APIError{StatusCode: http.StatusBadRequest, Message: "USER_NOT_FOUND"}
	}
	return &out.Users[0], nil
}

func (c *Client) post(ctx context.Context, method string, body any, dst any) error {
	if c == nil {
		return errors.New("firebase client not configured")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(method), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute %s request: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(raw, &envelope)
		msg := envelope.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if dst == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

func (c *Client) buildURL(method string) string {
	return c.baseURL + "/" + method + "?key=" + url.QueryEscape(c.apiKey)
}
