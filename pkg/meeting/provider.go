package meeting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrAllProvidersFailed indicates every configured provider refused to create a room.
var ErrAllProvidersFailed = errors.New("all meeting providers failed")

// RoomSpec describes the room a provider should create.
type RoomSpec struct {
	Name      string
	Capacity  int
	ExpiresAt time.Time
}

// Room is the provider-agnostic result of a successful room creation.
type Room struct {
	URL      string
	ID       string
	Provider string
}

// Provider abstracts one remote video-room backend.
type Provider interface {
	Name() string
	CreateRoom(ctx context.Context, spec RoomSpec) (Room, error)
	EndRoom(ctx context.Context, roomID string) error
}

// RoomName derives a deterministic yet collision-free room name for a
// session. The random token keeps retried creations from colliding with a
// previous attempt's room on the provider side.
func RoomName(sessionID uint) string {
	token := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("class-%d-%s", sessionID, token)
}

// QualifyRoomID prefixes a provider room identifier with the provider name so
// teardown can be routed back to the provider that created the room.
func QualifyRoomID(provider, roomID string) string {
	return provider + ":" + roomID
}

// SplitRoomID reverses QualifyRoomID. An unqualified id maps to an empty
// provider name.
func SplitRoomID(qualified string) (provider, roomID string) {
	parts := strings.SplitN(qualified, ":", 2)
	if len(parts) != 2 {
		return "", qualified
	}
	return parts[0], parts[1]
}
