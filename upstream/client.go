// Package upstream talks to the visitor API that owns guest, guard and check-in data.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"gatedesk/config"
	"gatedesk/models"
	"gatedesk/visits"
)

// Sentinel texts are shown to operators verbatim as fetch errors, hence the capitalisation.
var (
	ErrNoToken      = errors.New("No authentication token found")
	ErrUnauthorized = errors.New("Unauthorized")
	ErrUnavailable  = errors.New("Upstream unavailable")
	ErrServer       = errors.New("Server error")
)

// Client is the HTTP transport for the visitor API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a client from configuration. A nil logger disables logging.
func NewClient(cfg config.UpstreamConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.Named("upstream"),
	}
}

type guestsResponse struct {
	Guests json.RawMessage `json:"guests"`
}

type guardsResponse struct {
	Message string         `json:"message"`
	Data    []models.Guard `json:"data"`
}

type checkInRequest struct {
	Code  string `json:"code"`
	Guard string `json:"guard"`
}

// FetchAllGuests returns every guest known to the upstream.
func (c *Client) FetchAllGuests(ctx context.Context) ([]models.RawGuest, error) {
	return c.fetchGuests(ctx, "/api/all-guests")
}

// FetchPendingGuests returns guests that have not arrived.
func (c *Client) FetchPendingGuests(ctx context.Context) ([]models.RawGuest, error) {
	return c.fetchGuests(ctx, "/api/pending-guests")
}

// FetchArrivedGuests returns guests that have arrived.
func (c *Client) FetchArrivedGuests(ctx context.Context) ([]models.RawGuest, error) {
	return c.fetchGuests(ctx, "/api/arrived-guests")
}

func (c *Client) fetchGuests(ctx context.Context, path string) ([]models.RawGuest, error) {
	var body guestsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, true, &body); err != nil {
		return nil, err
	}
	guests := visits.DecodeGuests(body.Guests, c.logger.With(zap.String("path", path)))
	c.logger.Debug("fetched guests", zap.String("path", path), zap.Int("count", len(guests)))
	return guests, nil
}

// FetchAllGuards returns the guard roster.
func (c *Client) FetchAllGuards(ctx context.Context) ([]models.Guard, error) {
	var body guardsResponse
	if err := c.do(ctx, http.MethodGet, "/auth/all-guards", nil, false, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return []models.Guard{}, nil
	}
	return body.Data, nil
}

// SubmitCheckIn records that guardCode received guestCode.
func (c *Client) SubmitCheckIn(ctx context.Context, guestCode, guardCode string) (models.CheckInReceipt, error) {
	var receipt models.CheckInReceipt
	err := c.do(ctx, http.MethodPost, "/api/arrived", checkInRequest{Code: guestCode, Guard: guardCode}, false, &receipt)
	if err != nil {
		return models.CheckInReceipt{}, err
	}
	return receipt, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, requireAuth bool, out any) error {
	if requireAuth && c.token == "" {
		return ErrNoToken
	}

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("upstream request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= 500:
		c.logger.Error("upstream server error", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode %s: %v", ErrServer, path, err)
	}
	return nil
}
