package search

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/kitefield/chatgate/internal/chat"
)

const defaultMaxPatternLength = 1000

// searchRegex scores messages by regular-expression matching. Queries
// containing a known contraction are rewritten into an alternation over all
// forms with optional apostrophes. Compilation failures are never surfaced;
// they fall back to exact scoring on the original query.
func (e *Engine) searchRegex(query string, msgs []chat.Message) []chat.ScoredMessage {
	mc := e.cfg.Mode(string(ModeRegex))

	maxLen := defaultMaxPatternLength
	caseInsensitive := true
	dotAll := false
	if mc != nil {
		if mc.Options.MaxPatternLength > 0 {
			maxLen = mc.Options.MaxPatternLength
		}
		if mc.Options.CaseInsensitive != nil {
			caseInsensitive = *mc.Options.CaseInsensitive
		}
		dotAll = mc.Options.DotAll
	}

	pattern := Normalize(query)
	if len(pattern) > maxLen {
		slog.Warn("regex pattern exceeds length cap; falling back to exact",
			"length", len(pattern), "cap", maxLen)
		return e.searchExact(query, msgs)
	}

	contractions := e.cfg.Contractions()
	if containsContraction(pattern, contractions) {
		pattern = contractionAlternation(pattern, contractions)
	}

	var flags string
	if caseInsensitive {
		flags += "i"
	}
	if dotAll {
		flags += "s"
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		slog.Warn("regex compilation failed; falling back to exact",
			"pattern", pattern, "error", err)
		return e.searchExact(query, msgs)
	}

	weight := e.cfg.Weight(string(ModeRegex))
	var out []chat.ScoredMessage
	for _, m := range msgs {
		text := Normalize(m.Text)
		if text == "" {
			continue
		}
		matches := re.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}
		out = append(out, chat.ScoredMessage{
			Score:   matchScore(weight, len(matches), matches[0][0], len(text), 1.0),
			Message: m,
		})
	}
	sortByScore(out)
	return out
}

// contractionAlternation rewrites a query into a non-capturing alternation
// over every contraction form, with apostrophes made optional so smart and
// missing quotes both match.
func contractionAlternation(query string, contractions map[string][]string) string {
	forms := queryForms(query, contractions)
	parts := make([]string, 0, len(forms))
	for _, f := range forms {
		esc := regexp.QuoteMeta(f.text)
		esc = strings.ReplaceAll(esc, "'", "['’‘]?")
		parts = append(parts, esc)
	}
	return "(?:" + strings.Join(parts, "|") + ")"
}
