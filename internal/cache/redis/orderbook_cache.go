package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/redis/go-redis/v9"
)

// OrderbookCache implements domain.OrderbookCache using Redis sorted sets and
// hashes for each asset's orderbook. Every key of a snapshot expires after
// the configured TTL so depth never outlives one scan interval.
//
// Key schema:
//
//	book:{assetID}:bids     - sorted set of bid prices (score = price)
//	book:{assetID}:asks     - sorted set of ask prices (score = price)
//	book:{assetID}:bid:size - hash mapping price -> size for bids
//	book:{assetID}:ask:size - hash mapping price -> size for asks
//	book:{assetID}:meta     - hash with "ts" field (snapshot timestamp)
type OrderbookCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewOrderbookCache creates an OrderbookCache backed by the given Client.
// A non-positive ttl keeps snapshots until they are replaced.
func NewOrderbookCache(c *Client, ttl time.Duration) *OrderbookCache {
	return &OrderbookCache{rdb: c.Underlying(), ttl: ttl}
}

func bookBidsKey(assetID string) string    { return "book:" + assetID + ":bids" }
func bookAsksKey(assetID string) string    { return "book:" + assetID + ":asks" }
func bookBidSizeKey(assetID string) string { return "book:" + assetID + ":bid:size" }
func bookAskSizeKey(assetID string) string { return "book:" + assetID + ":ask:size" }
func bookMetaKey(assetID string) string    { return "book:" + assetID + ":meta" }

// SetSnapshot atomically replaces the entire orderbook snapshot for an asset.
func (oc *OrderbookCache) SetSnapshot(ctx context.Context, assetID string, snap domain.OrderbookSnapshot) error {
	keys := []string{
		bookBidsKey(assetID),
		bookAsksKey(assetID),
		bookBidSizeKey(assetID),
		bookAskSizeKey(assetID),
		bookMetaKey(assetID),
	}

	pipe := oc.rdb.TxPipeline()
	pipe.Del(ctx, keys...)

	addLevels := func(zKey, hKey string, levels []domain.PriceLevel) {
		for _, lvl := range levels {
			priceStr := strconv.FormatFloat(lvl.Price, 'f', -1, 64)
			sizeStr := strconv.FormatFloat(lvl.Size, 'f', -1, 64)
			pipe.ZAdd(ctx, zKey, redis.Z{Score: lvl.Price, Member: priceStr})
			pipe.HSet(ctx, hKey, priceStr, sizeStr)
		}
	}
	addLevels(keys[0], keys[2], snap.Bids)
	addLevels(keys[1], keys[3], snap.Asks)

	pipe.HSet(ctx, keys[4], "ts", strconv.FormatInt(snap.Timestamp.UnixNano(), 10))

	if oc.ttl > 0 {
		for _, k := range keys {
			pipe.Expire(ctx, k, oc.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set orderbook snapshot %s: %w", assetID, err)
	}
	return nil
}

// GetSnapshot reconstructs a full OrderbookSnapshot from Redis.
// It returns domain.ErrNotFound if no snapshot data exists for the asset.
func (oc *OrderbookCache) GetSnapshot(ctx context.Context, assetID string) (domain.OrderbookSnapshot, error) {
	pipe := oc.rdb.Pipeline()

	// Read bids sorted descending (highest first).
	bidsCmd := pipe.ZRevRangeWithScores(ctx, bookBidsKey(assetID), 0, -1)
	// Read asks sorted ascending (lowest first).
	asksCmd := pipe.ZRangeWithScores(ctx, bookAsksKey(assetID), 0, -1)
	bidSizeCmd := pipe.HGetAll(ctx, bookBidSizeKey(assetID))
	askSizeCmd := pipe.HGetAll(ctx, bookAskSizeKey(assetID))
	metaCmd := pipe.HGetAll(ctx, bookMetaKey(assetID))

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: get orderbook snapshot %s: %w", assetID, err)
	}

	metaVals, _ := metaCmd.Result()
	if len(metaVals) == 0 {
		return domain.OrderbookSnapshot{}, domain.ErrNotFound
	}

	snap := domain.OrderbookSnapshot{AssetID: assetID}
	if tsNano, err := strconv.ParseInt(metaVals["ts"], 10, 64); err == nil {
		snap.Timestamp = time.Unix(0, tsNano)
	}

	bidsZ, _ := bidsCmd.Result()
	bidSizes, _ := bidSizeCmd.Result()
	snap.Bids = levelsFromZ(bidsZ, bidSizes)

	asksZ, _ := asksCmd.Result()
	askSizes, _ := askSizeCmd.Result()
	snap.Asks = levelsFromZ(asksZ, askSizes)

	snap.ComputeBBO()
	return snap, nil
}

func levelsFromZ(zs []redis.Z, sizes map[string]string) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(zs))
	for _, z := range zs {
		priceStr, ok := z.Member.(string)
		if !ok {
			continue
		}
		size := 0.0
		if sizeStr, exists := sizes[priceStr]; exists {
			size, _ = strconv.ParseFloat(sizeStr, 64)
		}
		out = append(out, domain.PriceLevel{Price: z.Score, Size: size})
	}
	return out
}

// Compile-time interface check.
var _ domain.OrderbookCache = (*OrderbookCache)(nil)
