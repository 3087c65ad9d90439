// Package predictfun is the REST client for the predict.fun API.
package predictfun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/normalize"
)

// Config configures the predict.fun client.
type Config struct {
	BaseURL      string
	APIKey       string
	Workers      int
	RequestDelay time.Duration
	Timeout      time.Duration
	RetryCount   int

	// RateLimit caps requests per second when a limiter is supplied.
	RateLimit int
}

// Client fetches categories and order books from predict.fun.
type Client struct {
	cfg     Config
	rc      *resty.Client
	limiter domain.RateLimiter
	logger  *slog.Logger
}

const rateLimitKey = "predictfun"

// NewClient creates a predict.fun client. limiter may be nil.
func NewClient(cfg Config, limiter domain.RateLimiter, logger *slog.Logger) *Client {
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		rc.SetHeader("x-api-key", cfg.APIKey)
	}
	return &Client{
		cfg:     cfg,
		rc:      rc,
		limiter: limiter,
		logger:  logger.With(slog.String("component", "predictfun")),
	}
}

// GetCategory fetches one category and its markets by predict.fun category
// slug.
func (c *Client) GetCategory(ctx context.Context, slug string) (APICategory, error) {
	var out APICategoryResponse
	path := "/categories/" + url.PathEscape(slug)
	if err := c.get(ctx, path, &out); err != nil {
		return APICategory{}, fmt.Errorf("predictfun: get category %s: %w", slug, err)
	}
	if !out.Success {
		return APICategory{}, fmt.Errorf("predictfun: get category %s: %w", slug, domain.ErrPlatformUnavailable)
	}
	return out.Data, nil
}

// GetOrderbook fetches the yes-outcome book of one market.
func (c *Client) GetOrderbook(ctx context.Context, marketID string) (APIOrderbook, error) {
	var out APIOrderbookResponse
	path := "/markets/" + url.PathEscape(marketID) + "/orderbook"
	if err := c.get(ctx, path, &out); err != nil {
		return APIOrderbook{}, fmt.Errorf("predictfun: get orderbook %s: %w", marketID, err)
	}
	if !out.Success {
		return APIOrderbook{}, fmt.Errorf("predictfun: get orderbook %s: %w", marketID, domain.ErrPlatformUnavailable)
	}
	return out.Data, nil
}

// FetchResult is the outcome of a full predict.fun fetch.
type FetchResult struct {
	Records []normalize.Record
	Books   Books
}

// Fetch loads the given predict.fun categories and prices every
// market from its order book across the worker pool. A failed category or
// book is logged and skipped; an error is returned only when no category
// could be loaded.
func (c *Client) Fetch(ctx context.Context, slugs []string) (FetchResult, error) {
	res := FetchResult{Books: make(Books)}
	if len(slugs) == 0 {
		return res, nil
	}

	var markets []APIMarket
	var lastErr error
	loaded := 0
	for _, slug := range slugs {
		cat, err := c.GetCategory(ctx, slug)
		if err != nil {
			lastErr = err
			c.logger.WarnContext(ctx, "category fetch failed",
				slog.String("slug", slug),
				slog.String("error", err.Error()),
			)
			continue
		}
		loaded++
		for _, m := range cat.Markets {
			if m.CategorySlug == "" {
				m.CategorySlug = cat.Slug
			}
			markets = append(markets, m)
		}
	}
	if loaded == 0 {
		return res, fmt.Errorf("predictfun: no category loaded: %w", lastErr)
	}

	var mu sync.Mutex
	books := make(map[string]APIOrderbook, len(markets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for _, m := range markets {
		id := string(m.ID)
		g.Go(func() error {
			if err := sleepCtx(gctx, c.cfg.RequestDelay); err != nil {
				return err
			}
			book, err := c.GetOrderbook(gctx, id)
			if err != nil {
				c.logger.WarnContext(gctx, "orderbook fetch failed",
					slog.String("market_id", id),
					slog.String("error", err.Error()),
				)
				return nil
			}
			mu.Lock()
			books[id] = book
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("predictfun: fetch orderbooks: %w", err)
	}

	for _, m := range markets {
		id := string(m.ID)
		rec := normalize.PredictFunRecord{
			MarketID:     id,
			ConditionID:  firstNonEmpty(m.PolymarketConditionIDs),
			CategorySlug: m.CategorySlug,
			Title:        m.Title,
			Question:     m.Question,
			Status:       m.Status,
		}
		if book, ok := books[id]; ok {
			rec.YesPrice, rec.NoPrice = book.Prices()
			rec.TokenIDs = [2]string{YesToken(id), NoToken(id)}
			yes, no := book.Snapshots(id)
			res.Books[yes.AssetID] = yes
			res.Books[no.AssetID] = no
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	if c.limiter != nil && c.cfg.RateLimit > 0 {
		if err := c.limiter.Wait(ctx, rateLimitKey, c.cfg.RateLimit, time.Second); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}
	resp, err := c.rc.R().SetContext(ctx).ForceContentType("application/json").SetResult(out).Get(path)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	return checkStatus(resp)
}

// checkStatus maps non-2xx status codes to appropriate domain errors.
func checkStatus(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	body := string(resp.Body())
	switch resp.StatusCode() {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, body)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, body)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, body)
	default:
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode(), body)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Books serves order books already fetched with the markets. It implements
// arbitrage.DepthFetcher.
type Books map[string]domain.OrderbookSnapshot

// FetchDepth returns the stored books for the requested tokens.
func (b Books) FetchDepth(_ context.Context, tokenIDs []string) (map[string]domain.OrderbookSnapshot, error) {
	if len(b) == 0 {
		return nil, errors.New("predictfun: no books fetched")
	}
	out := make(map[string]domain.OrderbookSnapshot, len(tokenIDs))
	for _, id := range tokenIDs {
		if snap, ok := b[id]; ok {
			out[id] = snap
		}
	}
	return out, nil
}
