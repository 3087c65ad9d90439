package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// ClobClient reads order books from the Polymarket CLOB API.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	workers    int
	logger     *slog.Logger
}

// NewClobClient creates a CLOB client that fetches books with up to workers
// concurrent requests.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
func NewClobClient(baseURL string, workers int, timeout time.Duration, logger *slog.Logger) *ClobClient {
	if workers <= 0 {
		workers = 10
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ClobClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		workers:    workers,
		logger:     logger.With(slog.String("component", "polymarket_clob")),
	}
}

// GetBook fetches the order book of a single token.
func (c *ClobClient) GetBook(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	body, err := c.doPost(ctx, "/books", []bookRequest{{TokenID: tokenID}})
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("polymarket/clob: get book %s: %w", tokenID, err)
	}

	var books []APIBook
	if err := json.Unmarshal(body, &books); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("polymarket/clob: decode books: %w", err)
	}
	if len(books) == 0 {
		return domain.OrderbookSnapshot{}, fmt.Errorf("polymarket/clob: %w: token=%s", domain.ErrNotFound, tokenID)
	}
	snap := BookToDomainSnapshot(&books[0])
	if snap.AssetID == "" {
		snap.AssetID = tokenID
	}
	return snap, nil
}

// GetBooks fetches the books of every token, one request per token across
// the worker pool. Tokens whose request fails are omitted and logged; an
// error is returned only when every request failed.
func (c *ClobClient) GetBooks(ctx context.Context, tokenIDs []string) (map[string]domain.OrderbookSnapshot, error) {
	out := make(map[string]domain.OrderbookSnapshot, len(tokenIDs))
	if len(tokenIDs) == 0 {
		return out, nil
	}

	var (
		mu       sync.Mutex
		failures int
		lastErr  error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, id := range tokenIDs {
		g.Go(func() error {
			snap, err := c.GetBook(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				lastErr = err
				c.logger.WarnContext(gctx, "book fetch failed",
					slog.String("token_id", id),
					slog.String("error", err.Error()),
				)
				return nil
			}
			out[id] = snap
			return nil
		})
	}
	_ = g.Wait()

	if failures == len(tokenIDs) {
		return nil, fmt.Errorf("polymarket/clob: all %d book requests failed: %w", failures, lastErr)
	}
	return out, nil
}

// FetchDepth implements arbitrage.DepthFetcher.
func (c *ClobClient) FetchDepth(ctx context.Context, tokenIDs []string) (map[string]domain.OrderbookSnapshot, error) {
	return c.GetBooks(ctx, tokenIDs)
}

// doPost sends a JSON POST request to the CLOB API and returns the raw body.
func (c *ClobClient) doPost(ctx context.Context, path string, body any) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}
