package gateway

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"SignalDeck/internal/domain/models"
	drepo "SignalDeck/internal/domain/repository"
	xhttp "SignalDeck/pkg/http"
)

// Client implements GatewayAPI over the gateway's REST surface.
type Client struct {
	base string
	http *xhttp.Client
}

// New creates a gateway client rooted at baseURL.
func New(baseURL string, timeout time.Duration) drepo.GatewayAPI {
	return &Client{
		base: baseURL,
		http: xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// --- snapshot endpoints ---

func (c *Client) Stats(ctx context.Context) (models.Stats, error) {
	var st models.Stats
	if err := c.get(ctx, "/stats", nil, &st); err != nil {
		return models.Stats{}, err
	}
	return st, nil
}

func (c *Client) Signals(ctx context.Context, limit int) ([]models.Signal, error) {
	var sigs []models.Signal
	q := map[string][]string{"limit": {strconv.Itoa(limit)}}
	if err := c.get(ctx, "/signals", q, &sigs); err != nil {
		return nil, err
	}
	return sigs, nil
}

func (c *Client) Positions(ctx context.Context) ([]models.Position, error) {
	var pos []models.Position
	if err := c.get(ctx, "/positions", nil, &pos); err != nil {
		return nil, err
	}
	return pos, nil
}

func (c *Client) Account(ctx context.Context) (models.AccountSnapshot, error) {
	var acc models.AccountSnapshot
	if err := c.get(ctx, "/account", nil, &acc); err != nil {
		return models.AccountSnapshot{}, err
	}
	return acc, nil
}

func (c *Client) Settings(ctx context.Context) (models.Settings, error) {
	var set models.Settings
	if err := c.get(ctx, "/settings", nil, &set); err != nil {
		return models.Settings{}, err
	}
	return set, nil
}

func (c *Client) ChannelStatus(ctx context.Context) (models.ChannelHealth, error) {
	var h models.ChannelHealth
	if err := c.get(ctx, "/telegram/connection-status", nil, &h); err != nil {
		return models.ChannelHealth{}, err
	}
	return h, nil
}

func (c *Client) LotPresets(ctx context.Context, symbol string) ([]float64, error) {
	var presets []float64
	q := map[string][]string{"symbol": {symbol}}
	if err := c.get(ctx, "/account/lot-presets", q, &presets); err != nil {
		return nil, err
	}
	return presets, nil
}

func (c *Client) LastTradeLot(ctx context.Context) (float64, error) {
	var resp struct {
		LotSize float64 `json:"lot_size"`
	}
	if err := c.get(ctx, "/account/last-trade-lot", nil, &resp); err != nil {
		return 0, err
	}
	return resp.LotSize, nil
}

// --- mutation endpoints ---

func (c *Client) ConfirmSignal(ctx context.Context, id string, lotSize *float64) error {
	body := struct {
		LotSize *float64 `json:"lot_size,omitempty"`
	}{LotSize: lotSize}
	return c.post(ctx, "/signals/"+id+"/confirm", body)
}

func (c *Client) RejectSignal(ctx context.Context, id, reason string) error {
	body := struct {
		Reason string `json:"reason"`
	}{Reason: reason}
	return c.post(ctx, "/signals/"+id+"/reject", body)
}

func (c *Client) CorrectSignal(ctx context.Context, id string, newDirection models.Direction) error {
	body := struct {
		NewDirection models.Direction `json:"new_direction"`
	}{NewDirection: newDirection}
	return c.post(ctx, "/signals/"+id+"/correct", body)
}

func (c *Client) DismissSignal(ctx context.Context, id string) error {
	return c.post(ctx, "/signals/"+id+"/dismiss", nil)
}

func (c *Client) DismissCompleted(ctx context.Context) error {
	return c.post(ctx, "/signals/dismiss-completed", nil)
}

func (c *Client) Pause(ctx context.Context) error {
	return c.post(ctx, "/control/pause", nil)
}

func (c *Client) Resume(ctx context.Context) error {
	return c.post(ctx, "/control/resume", nil)
}

// --- helpers ---

func (c *Client) get(ctx context.Context, path string, query map[string][]string, dest any) error {
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.base + path,
		QueryParams: query,
	}, dest)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.base + path,
		Body:   body,
	}, nil)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	return nil
}
