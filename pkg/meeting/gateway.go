package meeting

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edulive/classroom-api/internal/observability"
)

// Gateway fronts an ordered list of providers. Callers never see a
// provider-specific error: creation either succeeds with the first provider
// that accepts the room or fails with ErrAllProvidersFailed.
type Gateway struct {
	providers []Provider
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewGateway builds a gateway over the given failover ordering.
func NewGateway(providers []Provider, timeout time.Duration, logger zerolog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Gateway{
		providers: providers,
		timeout:   timeout,
		logger:    logger.With().Str("component", "meeting_gateway").Logger(),
	}
}

// CreateRoom walks the provider chain in order and returns the first room
// successfully created. The room id comes back qualified with the provider
// name so EndRoom can route teardown later.
func (g *Gateway) CreateRoom(ctx context.Context, spec RoomSpec) (Room, error) {
	var lastErr error
	for i, provider := range g.providers {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		room, err := provider.CreateRoom(callCtx, spec)
		cancel()

		if err == nil {
			if i > 0 {
				observability.ProviderFailovers().WithLabelValues(provider.Name()).Inc()
			}
			room.ID = QualifyRoomID(room.Provider, room.ID)
			return room, nil
		}

		lastErr = err
		g.logger.Warn().Err(err).Str("provider", provider.Name()).Msg("provider failed, trying next")
	}

	if lastErr != nil {
		return Room{}, fmt.Errorf("%w: %v", ErrAllProvidersFailed, lastErr)
	}
	return Room{}, ErrAllProvidersFailed
}

// EndRoom routes teardown to the provider recorded in the qualified room id.
// An unknown or missing provider is tolerated: the room will expire remotely
// and the session of record has already moved on.
func (g *Gateway) EndRoom(ctx context.Context, qualifiedID string) error {
	name, roomID := SplitRoomID(qualifiedID)

	for _, provider := range g.providers {
		if provider.Name() != name {
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return provider.EndRoom(callCtx, roomID)
	}

	g.logger.Warn().Str("provider", name).Str("room_id", roomID).Msg("no provider for room teardown")
	return nil
}
