// Package opinion is the REST client for the Opinion.trade open API.
package opinion

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/normalize"
)

// Config configures the Opinion client.
type Config struct {
	BaseURL       string
	APIKey        string
	MarketWorkers int
	PriceWorkers  int
	RequestDelay  time.Duration
	Timeout       time.Duration
	RetryCount    int
	RateLimit     int
}

// Client fetches categorical markets and token prices from Opinion.
type Client struct {
	cfg     Config
	rc      *resty.Client
	limiter domain.RateLimiter
	logger  *slog.Logger
}

const rateLimitKey = "opinion"

// NewClient creates an Opinion client. limiter may be nil.
func NewClient(cfg Config, limiter domain.RateLimiter, logger *slog.Logger) *Client {
	if cfg.MarketWorkers <= 0 {
		cfg.MarketWorkers = 10
	}
	if cfg.PriceWorkers <= 0 {
		cfg.PriceWorkers = 20
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
		SetHeader("Accept", "*/*")
	if cfg.APIKey != "" {
		rc.SetHeader("apikey", cfg.APIKey)
	}
	return &Client{
		cfg:     cfg,
		rc:      rc,
		limiter: limiter,
		logger:  logger.With(slog.String("component", "opinion")),
	}
}

// GetCategorical fetches one categorical market with its child markets.
func (c *Client) GetCategorical(ctx context.Context, marketID int) (APICategorical, error) {
	var out APIEnvelope[APICategoricalResult]
	path := "/market/categorical/" + strconv.Itoa(marketID)
	if err := c.get(ctx, path, nil, &out); err != nil {
		return APICategorical{}, fmt.Errorf("opinion: get categorical %d: %w", marketID, err)
	}
	return out.Result.Data, nil
}

// GetLatestPrice returns the last traded price of a token.
func (c *Client) GetLatestPrice(ctx context.Context, tokenID string) (float64, error) {
	var out APIEnvelope[APILatestPrice]
	q := url.Values{"token_id": []string{tokenID}}
	if err := c.get(ctx, "/token/latest-price", q, &out); err != nil {
		return 0, fmt.Errorf("opinion: latest price %s: %w", tokenID, err)
	}
	if !out.Result.Price.Valid {
		return 0, fmt.Errorf("opinion: latest price %s: %w", tokenID, domain.ErrNotFound)
	}
	return out.Result.Price.Value, nil
}

type child struct {
	slug string
	m    APIChildMarket
}

// Fetch loads the categorical markets mapped from Polymarket slugs (entries
// with a zero id are skipped) and prices every active child market from its
// yes and no token prices. Children without a conditionId or either token id
// are dropped. An error is returned only when no categorical market could be
// loaded.
func (c *Client) Fetch(ctx context.Context, markets map[string]int) ([]normalize.Record, error) {
	slugs := make([]string, 0, len(markets))
	for slug, id := range markets {
		if id > 0 {
			slugs = append(slugs, slug)
		}
	}
	sort.Strings(slugs)
	if len(slugs) == 0 {
		return nil, nil
	}

	var (
		mu       sync.Mutex
		children []child
		loaded   int
		lastErr  error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MarketWorkers)
	for _, slug := range slugs {
		id := markets[slug]
		g.Go(func() error {
			cat, err := c.GetCategorical(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				c.logger.WarnContext(gctx, "categorical fetch failed",
					slog.String("slug", slug),
					slog.Int("market_id", id),
					slog.String("error", err.Error()),
				)
				return nil
			}
			loaded++
			for _, m := range cat.ChildMarkets {
				if m.Status != normalize.OpinionStatusActive || m.ConditionID == "" ||
					m.YesTokenID == "" || m.NoTokenID == "" {
					continue
				}
				if !strings.HasPrefix(m.ConditionID, "0x") {
					m.ConditionID = "0x" + m.ConditionID
				}
				children = append(children, child{slug: slug, m: m})
			}
			return nil
		})
	}
	_ = g.Wait()
	if loaded == 0 {
		return nil, fmt.Errorf("opinion: no categorical market loaded: %w", lastErr)
	}

	sort.Slice(children, func(i, j int) bool {
		if children[i].slug != children[j].slug {
			return children[i].slug < children[j].slug
		}
		return children[i].m.MarketID < children[j].m.MarketID
	})

	prices, err := c.fetchPrices(ctx, children)
	if err != nil {
		return nil, err
	}

	records := make([]normalize.Record, 0, len(children))
	for _, ch := range children {
		rec := normalize.OpinionRecord{
			MarketID:     string(ch.m.MarketID),
			ConditionID:  ch.m.ConditionID,
			CategorySlug: ch.slug,
			Title:        ch.m.MarketTitle,
			Status:       ch.m.Status,
			TokenIDs:     [2]string{ch.m.YesTokenID, ch.m.NoTokenID},
			Volume:       ch.m.Volume.Value,
		}
		if p, ok := prices[ch.m.YesTokenID]; ok {
			rec.YesPrice = &p
		}
		if p, ok := prices[ch.m.NoTokenID]; ok {
			rec.NoPrice = &p
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *Client) fetchPrices(ctx context.Context, children []child) (map[string]float64, error) {
	var mu sync.Mutex
	prices := make(map[string]float64, 2*len(children))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.PriceWorkers)
	for _, ch := range children {
		for _, tok := range []string{ch.m.YesTokenID, ch.m.NoTokenID} {
			g.Go(func() error {
				if err := sleepCtx(gctx, c.cfg.RequestDelay); err != nil {
					return err
				}
				p, err := c.GetLatestPrice(gctx, tok)
				if err != nil {
					c.logger.WarnContext(gctx, "token price fetch failed",
						slog.String("token_id", tok),
						slog.String("error", err.Error()),
					)
					return nil
				}
				mu.Lock()
				prices[tok] = p
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("opinion: fetch prices: %w", err)
	}
	return prices, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.limiter != nil && c.cfg.RateLimit > 0 {
		if err := c.limiter.Wait(ctx, rateLimitKey, c.cfg.RateLimit, time.Second); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}
	req := c.rc.R().SetContext(ctx).ForceContentType("application/json").SetResult(out)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	resp, err := req.Get(path)
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
