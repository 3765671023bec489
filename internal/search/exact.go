package search

import (
	"strings"

	"github.com/kitefield/chatgate/internal/chat"
)

// searchExact scores messages by case-insensitive substring matching over
// the normalized query forms. Each message is counted at most once, by the
// first form that matches; alternative forms carry a 0.9 multiplier.
func (e *Engine) searchExact(query string, msgs []chat.Message) []chat.ScoredMessage {
	weight := e.cfg.Weight(string(ModeExact))
	forms := queryForms(query, e.cfg.Contractions())

	var out []chat.ScoredMessage
	for _, m := range msgs {
		text := strings.ToLower(Normalize(m.Text))
		if text == "" {
			continue
		}
		for _, f := range forms {
			if f.text == "" {
				continue
			}
			count := strings.Count(text, f.text)
			if count == 0 {
				continue
			}
			first := strings.Index(text, f.text)
			out = append(out, chat.ScoredMessage{
				Score:   matchScore(weight, count, first, len(text), f.multiplier),
				Message: m,
			})
			break
		}
	}
	sortByScore(out)
	return out
}
