package normalize

import (
	"log/slog"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Convert turns one raw record into a Market or a discard reason.
func Convert(r Record) Result {
	return r.convert()
}

// Diagnostics counts accepted and discarded records per platform. Warnings
// counts accepted records that lost an optional key.
type Diagnostics struct {
	Accepted map[domain.Platform]int
	Skipped  map[domain.Platform]map[Reason]int
	Warnings map[domain.Platform]map[Reason]int
}

func newDiagnostics() Diagnostics {
	return Diagnostics{
		Accepted: make(map[domain.Platform]int),
		Skipped:  make(map[domain.Platform]map[Reason]int),
		Warnings: make(map[domain.Platform]map[Reason]int),
	}
}

// SkippedTotal returns the number of discarded records across all platforms.
func (d Diagnostics) SkippedTotal() int {
	n := 0
	for _, byReason := range d.Skipped {
		for _, c := range byReason {
			n += c
		}
	}
	return n
}

func (d Diagnostics) skip(p domain.Platform, r Reason) { count(d.Skipped, p, r) }

func (d Diagnostics) warn(p domain.Platform, r Reason) { count(d.Warnings, p, r) }

func count(byPlatform map[domain.Platform]map[Reason]int, p domain.Platform, r Reason) {
	m, ok := byPlatform[p]
	if !ok {
		m = make(map[Reason]int)
		byPlatform[p] = m
	}
	m[r]++
}

// Normalizer converts raw platform records into canonical markets.
type Normalizer struct {
	logger *slog.Logger
}

// New creates a Normalizer.
func New(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger.With(slog.String("component", "normalizer"))}
}

// Normalize converts every record, preserving input order for the markets
// that survive. Discarded records are counted and logged at debug level.
func (n *Normalizer) Normalize(records []Record) ([]domain.Market, Diagnostics) {
	diag := newDiagnostics()
	markets := make([]domain.Market, 0, len(records))
	for _, rec := range records {
		res := Convert(rec)
		if !res.OK() {
			diag.skip(rec.Platform(), res.Reason)
			n.logger.Debug("record skipped",
				slog.String("platform", string(rec.Platform())),
				slog.String("reason", string(res.Reason)),
			)
			continue
		}
		if res.Warning != "" {
			diag.warn(rec.Platform(), res.Warning)
			n.logger.Debug("condition key dropped",
				slog.String("platform", string(rec.Platform())),
				slog.String("market_id", res.Market.NativeID),
				slog.String("reason", string(res.Warning)),
			)
		}
		diag.Accepted[rec.Platform()]++
		markets = append(markets, res.Market)
	}
	return markets, diag
}
