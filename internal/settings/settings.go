// Package settings resolves an organization's current AI opt-in level.
// The level is an org-wide dashboard setting that can change between
// requests, so it is re-resolved per request (through a short TTL
// cache) and never stored alongside conversation history.
package settings

import (
	"context"

	"github.com/dbforge/assistant-gate/internal/optin"
)

// Provider returns the current opt-in level for an organization.
type Provider interface {
	// CurrentLevel returns the org's opt-in level. Orgs with no stored
	// setting are treated as disabled.
	CurrentLevel(ctx context.Context, orgID string) (optin.Level, error)
}

// StaticProvider is a development-only provider that returns a fixed
// level for every organization.
type StaticProvider struct {
	Level optin.Level
}

func NewStaticProvider(level optin.Level) *StaticProvider {
	return &StaticProvider{Level: level}
}

func (p *StaticProvider) CurrentLevel(_ context.Context, _ string) (optin.Level, error) {
	return p.Level, nil
}
