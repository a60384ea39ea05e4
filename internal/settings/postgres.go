package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dbforge/assistant-gate/internal/optin"
	"go.uber.org/zap"
)

// LevelStore abstracts DB queries for testability.
type LevelStore interface {
	LookupLevel(ctx context.Context, orgID string) (string, error)
}

// sqlLevelStore is the real implementation using *sql.DB.
type sqlLevelStore struct {
	db *sql.DB
}

func (s *sqlLevelStore) LookupLevel(ctx context.Context, orgID string) (string, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT opt_in_level
		FROM org_ai_settings
		WHERE org_id = $1
	`, orgID)

	var level string
	if err := row.Scan(&level); err != nil {
		return "", err
	}
	return level, nil
}

// PostgresProvider reads org opt-in levels from the org_ai_settings
// table with a short TTL cache in front.
type PostgresProvider struct {
	store  LevelStore
	cache  *LevelCache
	logger *zap.Logger
}

// PostgresProviderConfig configures the PostgresProvider.
type PostgresProviderConfig struct {
	DB       *sql.DB
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// NewPostgresProvider creates a new PostgresProvider.
func NewPostgresProvider(cfg PostgresProviderConfig) *PostgresProvider {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 15 * time.Second
	}
	return &PostgresProvider{
		store:  &sqlLevelStore{db: cfg.DB},
		cache:  NewLevelCache(ttl),
		logger: cfg.Logger,
	}
}

// newPostgresProviderWithStore creates a provider with a custom store (for testing).
func newPostgresProviderWithStore(store LevelStore, cacheTTL time.Duration, logger *zap.Logger) *PostgresProvider {
	if cacheTTL == 0 {
		cacheTTL = 15 * time.Second
	}
	return &PostgresProvider{
		store:  store,
		cache:  NewLevelCache(cacheTTL),
		logger: logger,
	}
}

// CurrentLevel resolves the org's opt-in level. Orgs with no stored
// setting resolve to disabled and are negatively cached. Lookup errors
// are returned rather than degraded: defaulting a transient DB failure
// to some remembered level would make policy depend on history.
func (p *PostgresProvider) CurrentLevel(ctx context.Context, orgID string) (optin.Level, error) {
	cacheResult := p.cache.Get(orgID)
	if cacheResult.Hit {
		if cacheResult.NeedsRefresh {
			go p.refreshInBackground(orgID)
		}
		return cacheResult.Level, nil
	}

	level, err := p.fetchFromDB(ctx, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			p.cache.Set(orgID, optin.LevelDisabled)
			return optin.LevelDisabled, nil
		}
		return optin.LevelDisabled, fmt.Errorf("CurrentLevel: %w", err)
	}

	p.cache.Set(orgID, level)
	return level, nil
}

func (p *PostgresProvider) fetchFromDB(ctx context.Context, orgID string) (optin.Level, error) {
	raw, err := p.store.LookupLevel(ctx, orgID)
	if err != nil {
		return optin.LevelDisabled, err
	}
	return optin.Parse(raw), nil
}

func (p *PostgresProvider) refreshInBackground(orgID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	level, err := p.fetchFromDB(ctx, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			p.cache.Set(orgID, optin.LevelDisabled)
			return
		}
		p.logger.Warn("background opt-in level refresh failed",
			zap.String("org_id", orgID),
			zap.Error(err),
		)
		return
	}
	p.cache.Set(orgID, level)
}
