package search

import (
	"context"
	"sort"

	"github.com/kitefield/chatgate/internal/chat"
	"github.com/kitefield/chatgate/internal/embedding"
)

// dynamicThresholdMin is the candidate-set size at which dynamic
// thresholding replaces the classical threshold cut.
const dynamicThresholdMin = 10

// searchSemantic ranks messages by embedding similarity to the query. With
// ten or more candidates, the top 20% above a relaxed threshold
// (0.8 x configured) are kept; smaller sets use the configured threshold
// directly. A nil query embedding falls back to exact scoring.
func (e *Engine) searchSemantic(ctx context.Context, query string, msgs []chat.Message) []chat.ScoredMessage {
	q := e.embedder.Embed(ctx, Normalize(query))
	if q == nil {
		return e.searchExact(query, msgs)
	}

	mc := e.cfg.Mode(string(ModeSemantic))
	metric := embedding.MetricCosine
	if mc != nil && mc.Options.SimilarityMetric != "" {
		metric = mc.Options.SimilarityMetric
	}
	threshold := e.cfg.Threshold(string(ModeSemantic))
	weight := e.cfg.Weight(string(ModeSemantic))

	type candidate struct {
		sim float64
		msg chat.Message
	}
	var cands []candidate
	for _, m := range msgs {
		if m.Text == "" {
			continue
		}
		v := e.embedder.Embed(ctx, Normalize(m.Text))
		if v == nil {
			continue
		}
		cands = append(cands, candidate{embedding.Similarity(q, v, metric), m})
	}

	var kept []candidate
	if len(cands) >= dynamicThresholdMin {
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].sim > cands[j].sim })
		top := len(cands) / 5
		relaxed := 0.8 * threshold
		for i := 0; i < top; i++ {
			if cands[i].sim >= relaxed {
				kept = append(kept, cands[i])
			}
		}
	} else {
		for _, c := range cands {
			if c.sim >= threshold {
				kept = append(kept, c)
			}
		}
	}

	out := make([]chat.ScoredMessage, 0, len(kept))
	for _, c := range kept {
		out = append(out, chat.ScoredMessage{Score: weight * c.sim, Message: c.msg})
	}
	sortByScore(out)
	return out
}
