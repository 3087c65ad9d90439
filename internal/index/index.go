// Package index builds per-platform lookup tables over normalized markets.
package index

import (
	"log/slog"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Index holds the lookup tables for one platform's markets.
type Index struct {
	Platform    domain.Platform
	Markets     []domain.Market
	ByCondition map[string]domain.Market
	ByComposite map[string]domain.Market

	// Collisions counts markets dropped because an earlier market already
	// held the same key.
	Collisions int
}

// Indexes maps each platform to its index. A missing platform means the
// platform supplied no data for this run.
type Indexes map[domain.Platform]*Index

// Builder groups markets by platform and indexes them.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates an index Builder.
func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{logger: logger.With(slog.String("component", "index"))}
}

// Build indexes the markets of every platform present in markets. Markets
// keep their input order inside each index. On key collisions the first-seen
// market wins.
func (b *Builder) Build(markets []domain.Market) Indexes {
	out := make(Indexes)
	for _, m := range markets {
		idx, ok := out[m.Platform]
		if !ok {
			idx = newIndex(m.Platform)
			out[m.Platform] = idx
		}
		idx.add(m, b.logger)
	}
	return out
}

// Build is a convenience for indexing a single platform's markets.
func Build(p domain.Platform, markets []domain.Market) *Index {
	idx := newIndex(p)
	for _, m := range markets {
		idx.add(m, nil)
	}
	return idx
}

func newIndex(p domain.Platform) *Index {
	return &Index{
		Platform:    p,
		ByCondition: make(map[string]domain.Market),
		ByComposite: make(map[string]domain.Market),
	}
}

func (idx *Index) add(m domain.Market, logger *slog.Logger) {
	idx.Markets = append(idx.Markets, m)
	if m.HasConditionKey() {
		if prev, dup := idx.ByCondition[m.ConditionKey]; dup {
			idx.collide(logger, "condition", m.ConditionKey, prev, m)
		} else {
			idx.ByCondition[m.ConditionKey] = m
		}
	}
	if m.CompositeKey != "" {
		if prev, dup := idx.ByComposite[m.CompositeKey]; dup {
			idx.collide(logger, "composite", m.CompositeKey, prev, m)
		} else {
			idx.ByComposite[m.CompositeKey] = m
		}
	}
}

func (idx *Index) collide(logger *slog.Logger, kind, key string, kept, dropped domain.Market) {
	idx.Collisions++
	if logger == nil {
		return
	}
	logger.Warn("index key collision",
		slog.String("platform", string(idx.Platform)),
		slog.String("key_kind", kind),
		slog.String("key", key),
		slog.String("kept", kept.NativeID),
		slog.String("dropped", dropped.NativeID),
	)
}

// Ensure returns the index for p, creating an empty one when absent. Callers
// use it to mark a platform as available even when it produced no markets.
func (ix Indexes) Ensure(p domain.Platform) *Index {
	idx, ok := ix[p]
	if !ok {
		idx = newIndex(p)
		ix[p] = idx
	}
	return idx
}
