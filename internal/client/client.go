// Package client implements the Coffee Beat REST backend client: bearer JWT
// auth with a single refresh retry on 401, client-side rate limiting and
// per-request IDs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"coffeebeat/internal/config"
	"coffeebeat/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrAuthExpired is returned when a 401 persists after one refresh attempt.
// Callers should redirect to login.
var ErrAuthExpired = errors.New("authentication expired")

// APIError carries a backend error response. For validation failures
// (400/422) Message is the backend's own text, surfaced verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// Tokens is the JWT pair issued by the backend.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type Client struct {
	baseURL string
	httpc   *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu     sync.RWMutex
	tokens Tokens
}

func New(cfg config.BackendConfig, logger *zerolog.Logger) *Client {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "client").Logger()
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpc:   &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		logger:  base,
	}
}

// SetTokens installs the JWT pair used for subsequent requests.
func (c *Client) SetTokens(tokens Tokens) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = tokens
}

func (c *Client) currentTokens() Tokens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// Login authenticates and installs the issued token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	body := map[string]string{"email": email, "password": password}
	var resp struct {
		Tokens
		User models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp, false); err != nil {
		return nil, err
	}
	c.SetTokens(resp.Tokens)
	resp.User.Role = models.ParseRole(string(resp.User.Role))
	return &resp.User, nil
}

// MyBookings returns the authenticated customer's bookings.
func (c *Client) MyBookings(ctx context.Context) ([]*models.Booking, error) {
	var bookings []*models.Booking
	if err := c.do(ctx, http.MethodGet, "/bookings/my-bookings", nil, &bookings, true); err != nil {
		return nil, err
	}
	return bookings, nil
}

// AllBookings returns every booking at the venue (staff only).
func (c *Client) AllBookings(ctx context.Context) ([]*models.Booking, error) {
	var bookings []*models.Booking
	if err := c.do(ctx, http.MethodGet, "/bookings", nil, &bookings, true); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (c *Client) CreateBooking(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	var created models.Booking
	if err := c.do(ctx, http.MethodPost, "/bookings", booking, &created, true); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateBooking(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	var updated models.Booking
	path := "/bookings/" + booking.ID
	if err := c.do(ctx, http.MethodPut, path, booking, &updated, true); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) CancelBooking(ctx context.Context, bookingID string) error {
	path := "/bookings/" + bookingID + "/cancel"
	return c.do(ctx, http.MethodPut, path, nil, nil, true)
}

// SubmitOrder creates an order. No retry: a failure surfaces to the caller.
func (c *Client) SubmitOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	var created models.Order
	if err := c.do(ctx, http.MethodPost, "/orders", order, &created, true); err != nil {
		return nil, err
	}
	return &created, nil
}

// do performs one request. Authenticated requests that hit a 401 trigger one
// token refresh and one retry before giving up with ErrAuthExpired.
func (c *Client) do(ctx context.Context, method, path string, body, dest any, authed bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	status, err := c.doOnce(ctx, method, path, body, dest, authed)
	if err == nil && status != http.StatusUnauthorized {
		return nil
	}
	if err != nil && status != http.StatusUnauthorized {
		return err
	}
	if !authed {
		return &APIError{StatusCode: http.StatusUnauthorized, Message: "unauthorized"}
	}

	if refreshErr := c.refresh(ctx); refreshErr != nil {
		c.logger.Warn().Err(refreshErr).Msg("token refresh failed")
		return ErrAuthExpired
	}

	status, err = c.doOnce(ctx, method, path, body, dest, authed)
	if status == http.StatusUnauthorized {
		return ErrAuthExpired
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, dest any, authed bool) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api"+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if authed {
		if token := c.currentTokens().AccessToken; token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, nil
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Message: backendMessage(resp.Body)}
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

// refresh exchanges the refresh token for a new pair.
func (c *Client) refresh(ctx context.Context) error {
	tokens := c.currentTokens()
	if tokens.RefreshToken == "" {
		return errors.New("no refresh token")
	}

	body := map[string]string{"refreshToken": tokens.RefreshToken}
	var refreshed Tokens
	status, err := c.doOnce(ctx, http.MethodPost, "/auth/refresh", body, &refreshed, false)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		return errors.New("refresh token rejected")
	}
	c.SetTokens(refreshed)
	c.logger.Debug().Msg("access token refreshed")
	return nil
}

// backendMessage extracts the backend's error text, falling back to the raw
// body so validation messages are surfaced verbatim.
func backendMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return "request failed"
	}
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
