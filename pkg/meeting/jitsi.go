package meeting

import (
	"context"
	"fmt"
	"strings"
)

// JitsiProvider serves ad-hoc rooms that need no account: the room exists as
// soon as someone opens its URL, so creation is pure URL construction and
// teardown is a no-op (ad-hoc rooms expire on their own).
type JitsiProvider struct {
	baseURL string
}

// NewJitsiProvider constructs the accountless fallback provider.
func NewJitsiProvider(baseURL string) *JitsiProvider {
	return &JitsiProvider{baseURL: strings.TrimRight(baseURL, "/")}
}

// Name identifies the provider in configuration and room ids.
func (p *JitsiProvider) Name() string { return "jitsi" }

// CreateRoom builds the ad-hoc room URL. It cannot fail beyond configuration.
func (p *JitsiProvider) CreateRoom(_ context.Context, spec RoomSpec) (Room, error) {
	if p.baseURL == "" {
		return Room{}, fmt.Errorf("jitsi base url not configured")
	}

	return Room{
		URL:      fmt.Sprintf("%s/%s", p.baseURL, spec.Name),
		ID:       spec.Name,
		Provider: p.Name(),
	}, nil
}

// EndRoom is a no-op for ad-hoc rooms.
func (p *JitsiProvider) EndRoom(context.Context, string) error { return nil }
