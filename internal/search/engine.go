// Package search ranks chat messages against a query using exact, regex,
// semantic, or hybrid scoring.
package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/kitefield/chatgate/internal/chat"
	"github.com/kitefield/chatgate/internal/embedding"
)

// Mode selects a ranking strategy.
type Mode string

// Search modes.
const (
	ModeUnset    Mode = ""
	ModeExact    Mode = "exact"
	ModeRegex    Mode = "regex"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// Engine scores messages against queries. It is safe for concurrent use.
type Engine struct {
	cfg      *Config
	embedder embedding.Provider
}

// NewEngine creates an engine with the given config and embedding provider.
// embedder may be nil; semantic mode then falls back to exact.
func NewEngine(cfg *Config, embedder embedding.Provider) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg, embedder: embedder}
}

// Config exposes the engine's configuration to the orchestration layer.
func (e *Engine) Config() *Config { return e.cfg }

// EffectiveMode resolves the mode a search will actually run under: unset
// becomes the configured default; unknown or disabled modes fall back to
// exact; semantic falls back to exact when embeddings are unavailable.
func (e *Engine) EffectiveMode(ctx context.Context, m Mode) Mode {
	if m == ModeUnset {
		m = Mode(e.cfg.Search.DefaultMode)
	}

	switch m {
	case ModeExact:
	case ModeRegex, ModeSemantic:
		if !e.cfg.Enabled(string(m)) {
			slog.Warn("search mode disabled; falling back to exact", "mode", m)
			m = ModeExact
		}
	case ModeHybrid:
		// Hybrid needs no record of its own; an explicit disabled record
		// turns it off.
		if h := e.cfg.Mode("hybrid"); h != nil && !h.Enabled {
			m = ModeExact
		}
	default:
		slog.Warn("unknown search mode; falling back to exact", "mode", m)
		m = ModeExact
	}

	if m == ModeSemantic && !e.semanticAvailable(ctx) {
		slog.Warn("semantic search unavailable; falling back to exact")
		m = ModeExact
	}
	return m
}

func (e *Engine) semanticAvailable(ctx context.Context) bool {
	return e.embedder != nil && e.embedder.Available(ctx)
}

// Search ranks messages against the query under the resolved mode. The
// result is sorted by score descending; equal scores keep insertion order.
func (e *Engine) Search(ctx context.Context, query string, msgs []chat.Message, mode Mode) []chat.ScoredMessage {
	switch e.EffectiveMode(ctx, mode) {
	case ModeRegex:
		return e.searchRegex(query, msgs)
	case ModeSemantic:
		return e.searchSemantic(ctx, query, msgs)
	case ModeHybrid:
		return e.searchHybrid(ctx, query, msgs)
	default:
		return e.searchExact(query, msgs)
	}
}

// matchScore is the shared exact/regex formula: a 0.6 base, up to 0.2 for
// match frequency (five or more matches saturate the term), and up to 0.2
// for how early the first match sits in the text. The terms sum to at most
// 1 so the mode weight caps the score.
func matchScore(weight float64, count, first, length int, multiplier float64) float64 {
	if count > 5 {
		count = 5
	}
	pos := 0.0
	if length > 0 {
		pos = 1 - float64(first)/float64(length)
	}
	return weight * (0.6 + 0.2*float64(count)/5 + 0.2*pos) * multiplier
}

// sortByScore orders by score descending, comparing only the score so ties
// keep their insertion order.
func sortByScore(out []chat.ScoredMessage) {
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
}
