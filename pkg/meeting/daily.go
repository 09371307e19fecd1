package meeting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DailyConfig contains credentials required to talk to the hosted rooms API.
type DailyConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// DailyProvider creates hosted meeting rooms over the Daily-style REST API.
type DailyProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewDailyProvider constructs the hosted-rooms provider.
func NewDailyProvider(cfg DailyConfig, logger zerolog.Logger) *DailyProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &DailyProvider{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "daily_provider").Logger(),
	}
}

// Name identifies the provider in configuration and room ids.
func (p *DailyProvider) Name() string { return "daily" }

type dailyRoomRequest struct {
	Name       string              `json:"name"`
	Privacy    string              `json:"privacy"`
	Properties dailyRoomProperties `json:"properties"`
}

type dailyRoomProperties struct {
	MaxParticipants int   `json:"max_participants,omitempty"`
	Exp             int64 `json:"exp,omitempty"`
}

type dailyRoomResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// CreateRoom provisions a hosted room. Missing credentials fail immediately
// so the gateway can move on to the fallback provider.
func (p *DailyProvider) CreateRoom(ctx context.Context, spec RoomSpec) (Room, error) {
	if p.apiKey == "" {
		return Room{}, fmt.Errorf("daily api key not configured")
	}

	payload := dailyRoomRequest{
		Name:    spec.Name,
		Privacy: "private",
		Properties: dailyRoomProperties{
			MaxParticipants: spec.Capacity,
		},
	}
	if !spec.ExpiresAt.IsZero() {
		payload.Properties.Exp = spec.ExpiresAt.Unix()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Room{}, fmt.Errorf("failed to encode room request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/rooms", bytes.NewReader(body))
	if err != nil {
		return Room{}, fmt.Errorf("failed to build room request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return Room{}, fmt.Errorf("room creation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Room{}, fmt.Errorf("room creation returned status %d: %s", resp.StatusCode, string(snippet))
	}

	var created dailyRoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return Room{}, fmt.Errorf("failed to decode room response: %w", err)
	}

	p.logger.Info().Str("room", created.Name).Msg("hosted room created")

	return Room{URL: created.URL, ID: created.Name, Provider: p.Name()}, nil
}

// EndRoom deletes the hosted room. A 404 counts as success since the room is
// already gone.
func (p *DailyProvider) EndRoom(ctx context.Context, roomID string) error {
	if p.apiKey == "" {
		return fmt.Errorf("daily api key not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.baseURL+"/rooms/"+roomID, nil)
	if err != nil {
		return fmt.Errorf("failed to build room deletion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("room deletion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("room deletion returned status %d", resp.StatusCode)
	}

	return nil
}
