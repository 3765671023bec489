package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kitefield/chatgate/internal/chat"
	"github.com/kitefield/chatgate/internal/datefilter"
	"github.com/kitefield/chatgate/internal/fetch"
)

const (
	defaultMaxResults = 50

	// collectFactor bounds how many candidate messages are fetched relative
	// to the requested result count.
	collectFactor = 5
)

// Query describes one search request.
type Query struct {
	Text string
	Mode Mode

	// Spaces to search. Empty means every space visible to the user.
	Spaces []string

	// MaxResults caps the returned ranking. Zero means the default.
	MaxResults int

	// StartDate and EndDate bound createTime, inclusive by day
	// (YYYY-MM-DD). Either may be empty.
	StartDate string
	EndDate   string

	// Filter is an extra backend filter expression AND-combined with the
	// date window.
	Filter string

	IncludeSenderInfo bool
}

// Metadata summarizes how a search executed.
type Metadata struct {
	Query         string `json:"query"`
	Mode          string `json:"mode"`
	FoundCount    int    `json:"found_count"`
	SearchedCount int    `json:"searched_count"`
}

// SpaceSummary reports the spaces a search covered.
type SpaceSummary struct {
	SearchedSpaces []string `json:"searched_spaces"`
}

// Result is the search response envelope.
type Result struct {
	Messages       []chat.ScoredMessage `json:"messages"`
	MessageCount   int                  `json:"message_count"`
	Source         string               `json:"source"`
	Metadata       *Metadata            `json:"search_metadata,omitempty"`
	SpaceInfo      *SpaceSummary        `json:"space_info,omitempty"`
	SearchComplete bool                 `json:"search_complete"`
	Error          string               `json:"error,omitempty"`
}

// Service orchestrates fetching and ranking into a single search call.
type Service struct {
	fetcher *fetch.Fetcher
	engine  *Engine
	source  string
}

// NewService creates a search service over the given fetcher and engine.
func NewService(fetcher *fetch.Fetcher, engine *Engine) *Service {
	return &Service{fetcher: fetcher, engine: engine, source: "google_chat"}
}

// Search fetches candidate messages from the requested spaces, ranks them,
// and returns the envelope. It never returns an error: failures that leave
// nothing searchable produce an incomplete result carrying the error text,
// and per-space failures are absorbed with a warning.
func (s *Service) Search(ctx context.Context, q Query) *Result {
	if q.Text == "" {
		return failed(fmt.Errorf("query text is required"))
	}
	max := q.MaxResults
	if max <= 0 {
		max = defaultMaxResults
	}

	var dateFilter string
	if q.StartDate != "" || q.EndDate != "" {
		var err error
		dateFilter, err = datefilter.Range(q.StartDate, q.EndDate)
		if err != nil {
			return failed(fmt.Errorf("invalid date range: %w", err))
		}
	}

	spaces := q.Spaces
	if len(spaces) == 0 {
		all, err := s.fetcher.Spaces(ctx)
		if err != nil {
			return failed(fmt.Errorf("resolving spaces: %w", err))
		}
		for _, sp := range all {
			spaces = append(spaces, sp.Name)
		}
	}
	if len(spaces) == 0 {
		return s.envelope(q, ModeExact, nil, nil, nil)
	}

	mode := s.engine.EffectiveMode(ctx, q.Mode)
	opts := fetch.Options{
		Filter:            q.Filter,
		DateFilter:        dateFilter,
		IncludeSenderInfo: q.IncludeSenderInfo,
		// Semantic ranking tolerates a loose date window better than it
		// tolerates an empty candidate set.
		RelaxEmptyWindow: mode == ModeSemantic,
	}

	msgs, searched := s.fetcher.Collect(ctx, spaces, opts, collectFactor*max)

	scored := s.engine.Search(ctx, q.Text, msgs, mode)
	if len(scored) > max {
		scored = scored[:max]
	}
	return s.envelope(q, mode, scored, msgs, searched)
}

func (s *Service) envelope(q Query, mode Mode, scored []chat.ScoredMessage, candidates []chat.Message, searched []string) *Result {
	if scored == nil {
		scored = []chat.ScoredMessage{}
	}
	return &Result{
		Messages:     scored,
		MessageCount: len(scored),
		Source:       s.source,
		Metadata: &Metadata{
			Query:         q.Text,
			Mode:          string(mode),
			FoundCount:    len(scored),
			SearchedCount: len(candidates),
		},
		SpaceInfo:      &SpaceSummary{SearchedSpaces: searched},
		SearchComplete: true,
	}
}

func failed(err error) *Result {
	slog.Error("search failed", "error", err)
	return &Result{
		Messages:       []chat.ScoredMessage{},
		Source:         "google_chat",
		SearchComplete: false,
		Error:          err.Error(),
	}
}
