package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// MarketConfigStore implements domain.MarketConfigStore using PostgreSQL.
type MarketConfigStore struct {
	pool *pgxpool.Pool
}

// NewMarketConfigStore creates a new MarketConfigStore backed by the given connection pool.
func NewMarketConfigStore(pool *pgxpool.Pool) *MarketConfigStore {
	return &MarketConfigStore{pool: pool}
}

// ListEnabled returns every enabled mapping ordered by Polymarket slug.
func (s *MarketConfigStore) ListEnabled(ctx context.Context) ([]domain.MarketConfig, error) {
	const query = `
		SELECT polymarket_slug, opinion_market_id, predictfun_slug
		FROM market_configs
		WHERE enabled
		ORDER BY polymarket_slug`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list market configs: %w", err)
	}

	out, err := pgx.CollectRows(rows, scanMarketConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan market configs: %w", err)
	}
	return out, nil
}

func scanMarketConfig(row pgx.CollectableRow) (domain.MarketConfig, error) {
	var mc domain.MarketConfig
	err := row.Scan(&mc.PolymarketSlug, &mc.OpinionMarketID, &mc.PredictFunSlug)
	return mc, err
}

// Compile-time interface check.
var _ domain.MarketConfigStore = (*MarketConfigStore)(nil)
