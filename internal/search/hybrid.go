package search

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kitefield/chatgate/internal/chat"
)

// hybridBonus is the per-extra-mode score bonus for messages matched by
// more than one sub-mode.
const hybridBonus = 0.2

// searchHybrid runs the enabled sub-modes concurrently and blends their
// scores under the configured hybrid weights. The merge iterates sub-modes
// in a fixed order, so results are deterministic given identical inputs.
func (e *Engine) searchHybrid(ctx context.Context, query string, msgs []chat.Message) []chat.ScoredMessage {
	var modes []Mode
	if e.cfg.Enabled(string(ModeExact)) {
		modes = append(modes, ModeExact)
	}
	if e.cfg.Enabled(string(ModeRegex)) {
		modes = append(modes, ModeRegex)
	}
	if e.cfg.Enabled(string(ModeSemantic)) && e.semanticAvailable(ctx) {
		modes = append(modes, ModeSemantic)
	}
	if len(modes) == 0 {
		return e.searchExact(query, msgs)
	}

	results := make(map[Mode][]chat.ScoredMessage, len(modes))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range modes {
		g.Go(func() error {
			var r []chat.ScoredMessage
			switch m {
			case ModeRegex:
				r = e.searchRegex(query, msgs)
			case ModeSemantic:
				r = e.searchSemantic(gctx, query, msgs)
			default:
				r = e.searchExact(query, msgs)
			}
			mu.Lock()
			results[m] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // sub-modes never return errors

	type blend struct {
		score float64
		modes int
		msg   chat.Message
	}
	var order []string
	byName := make(map[string]*blend)
	for _, m := range modes {
		for _, sm := range results[m] {
			key := sm.Message.Name
			b, ok := byName[key]
			if !ok {
				b = &blend{msg: sm.Message}
				byName[key] = b
				order = append(order, key)
			}
			b.score += e.cfg.HybridWeight(string(m)) * sm.Score
			b.modes++
		}
	}

	out := make([]chat.ScoredMessage, 0, len(order))
	for _, key := range order {
		b := byName[key]
		score := b.score
		if b.modes > 1 {
			score += hybridBonus * score * float64(b.modes-1)
		}
		out = append(out, chat.ScoredMessage{Score: score, Message: b.msg})
	}
	sortByScore(out)
	return out
}
