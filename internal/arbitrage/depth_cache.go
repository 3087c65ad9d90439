package arbitrage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// CachedDepthFetcher serves books from an OrderbookCache and fetches only the
// tokens the cache misses, writing the fetched books back.
type CachedDepthFetcher struct {
	inner  DepthFetcher
	cache  domain.OrderbookCache
	logger *slog.Logger
}

// NewCachedDepthFetcher wraps inner with cache.
func NewCachedDepthFetcher(inner DepthFetcher, cache domain.OrderbookCache, logger *slog.Logger) *CachedDepthFetcher {
	return &CachedDepthFetcher{
		inner:  inner,
		cache:  cache,
		logger: logger.With(slog.String("component", "depth_cache")),
	}
}

// FetchDepth implements DepthFetcher. Cache errors degrade to a fetch.
func (f *CachedDepthFetcher) FetchDepth(ctx context.Context, tokenIDs []string) (map[string]domain.OrderbookSnapshot, error) {
	out := make(map[string]domain.OrderbookSnapshot, len(tokenIDs))
	var missing []string
	for _, id := range tokenIDs {
		snap, err := f.cache.GetSnapshot(ctx, id)
		switch {
		case err == nil:
			out[id] = snap
		case errors.Is(err, domain.ErrNotFound):
			missing = append(missing, id)
		default:
			f.logger.WarnContext(ctx, "depth cache read failed",
				slog.String("token_id", id),
				slog.String("error", err.Error()),
			)
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := f.inner.FetchDepth(ctx, missing)
	if err != nil {
		if len(out) > 0 {
			f.logger.WarnContext(ctx, "depth fetch failed, serving cached books only",
				slog.Int("cached", len(out)),
				slog.String("error", err.Error()),
			)
			return out, nil
		}
		return nil, err
	}
	for id, snap := range fetched {
		out[id] = snap
		if err := f.cache.SetSnapshot(ctx, id, snap); err != nil {
			f.logger.WarnContext(ctx, "depth cache write failed",
				slog.String("token_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	f.logger.DebugContext(ctx, "depth fetched",
		slog.Int("cached", len(tokenIDs)-len(missing)),
		slog.Int("fetched", len(fetched)),
	)
	return out, nil
}

var _ DepthFetcher = (*CachedDepthFetcher)(nil)
