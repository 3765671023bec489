package search

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// defaultContractions maps each contraction family member to its acceptable
// alternative forms. Both directions are present so expanded queries also
// match contracted text.
var defaultContractions = map[string][]string{
	"aren't":    {"are not"},
	"can't":     {"cannot", "can not"},
	"couldn't":  {"could not"},
	"didn't":    {"did not", "don't"},
	"doesn't":   {"does not"},
	"don't":     {"do not", "didn't", "won't"},
	"hasn't":    {"has not"},
	"haven't":   {"have not"},
	"isn't":     {"is not", "wasn't"},
	"it's":      {"it is"},
	"shouldn't": {"should not"},
	"wasn't":    {"was not", "isn't"},
	"weren't":   {"were not"},
	"won't":     {"will not", "don't"},
	"wouldn't":  {"would not"},

	"are not":    {"aren't"},
	"cannot":     {"can't"},
	"could not":  {"couldn't"},
	"did not":    {"didn't"},
	"do not":     {"don't"},
	"does not":   {"doesn't"},
	"has not":    {"hasn't"},
	"have not":   {"haven't"},
	"is not":     {"isn't"},
	"it is":      {"it's"},
	"should not": {"shouldn't"},
	"was not":    {"wasn't"},
	"were not":   {"weren't"},
	"will not":   {"won't"},
	"would not":  {"wouldn't"},
}

// smartQuotes are folded to the ASCII apostrophe before matching.
var smartQuotes = strings.NewReplacer("‘", "'", "’", "'")

// Normalize applies NFKD decomposition and smart-quote folding. It is
// idempotent: normalizing normalized text is a no-op.
func Normalize(s string) string {
	return smartQuotes.Replace(norm.NFKD.String(s))
}

// alternativeScore is the multiplier applied to matches of a non-primary
// query form.
const alternativeScore = 0.9

// queryForm is one normalized variant of a query together with its score
// multiplier.
type queryForm struct {
	text       string
	multiplier float64
}

// queryForms builds the set of query variants for exact and regex matching:
// the normalized primary form first, then one alternative per contraction
// expansion. Matching is case-insensitive, so all forms are lowercased.
func queryForms(query string, contractions map[string][]string) []queryForm {
	primary := strings.ToLower(Normalize(query))
	forms := []queryForm{{text: primary, multiplier: 1.0}}
	seen := map[string]bool{primary: true}

	// Deterministic alternative order regardless of map iteration.
	keys := make([]string, 0, len(contractions))
	for k := range contractions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !strings.Contains(primary, k) {
			continue
		}
		for _, alt := range contractions[k] {
			variant := strings.ReplaceAll(primary, k, strings.ToLower(alt))
			if seen[variant] {
				continue
			}
			seen[variant] = true
			forms = append(forms, queryForm{text: variant, multiplier: alternativeScore})
		}
	}
	return forms
}

// containsContraction reports whether the normalized, lowercased query
// includes a known contraction form.
func containsContraction(query string, contractions map[string][]string) bool {
	q := strings.ToLower(Normalize(query))
	for k := range contractions {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}
