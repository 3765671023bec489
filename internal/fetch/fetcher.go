// Package fetch retrieves messages from one or many spaces with date
// filtering, pagination, and optional sender enrichment.
package fetch

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kitefield/chatgate/internal/chat"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000

	// enrichConcurrency bounds parallel profile lookups per page.
	enrichConcurrency = 4
)

// Options parameterizes message retrieval.
type Options struct {
	// Filter is an optional caller-supplied backend filter expression.
	Filter string
	// DateFilter is an optional createTime window from the datefilter
	// package. It is AND-combined with Filter.
	DateFilter string

	PageSize  int
	PageToken string
	// OrderBy defaults to newest-first.
	OrderBy string

	// IncludeSenderInfo resolves each message sender to a profile
	// snapshot, best-effort.
	IncludeSenderInfo bool

	// RelaxEmptyWindow refetches a space without its DateFilter when the
	// windowed fetch returns nothing. Only Collect honors it.
	RelaxEmptyWindow bool
}

// effectiveFilter AND-combines the caller filter with the date filter.
func (o Options) effectiveFilter() string {
	switch {
	case o.Filter != "" && o.DateFilter != "":
		return o.Filter + " AND " + o.DateFilter
	case o.Filter != "":
		return o.Filter
	default:
		return o.DateFilter
	}
}

// Fetcher retrieves messages through a ChatBackend.
type Fetcher struct {
	backend chat.ChatBackend
}

// New creates a fetcher over the given backend.
func New(backend chat.ChatBackend) *Fetcher {
	return &Fetcher{backend: backend}
}

// ListMessages returns one page of messages from a space. Backend failures
// propagate; profile-resolution failures never do, a stub profile is
// attached instead.
func (f *Fetcher) ListMessages(ctx context.Context, space string, opts Options) ([]chat.Message, string, error) {
	space, err := chat.NormalizeSpace(space)
	if err != nil {
		return nil, "", err
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = "createTime desc"
	}

	msgs, next, err := f.backend.ListMessages(ctx, space, chat.ListOptions{
		Filter:    opts.effectiveFilter(),
		PageSize:  pageSize,
		PageToken: opts.PageToken,
		OrderBy:   orderBy,
	})
	if err != nil {
		return nil, "", fmt.Errorf("list messages in %s: %w", space, err)
	}

	if opts.IncludeSenderInfo {
		f.enrichSenders(ctx, msgs)
	}
	return msgs, next, nil
}

// enrichSenders resolves sender profiles with bounded parallelism. A failed
// lookup attaches a stub profile carrying the raw id and a synthesized
// display name; it never fails the call.
func (f *Fetcher) enrichSenders(ctx context.Context, msgs []chat.Message) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i := range msgs {
		if msgs[i].Sender == nil || msgs[i].Sender.Name == "" {
			continue
		}
		g.Go(func() error {
			msgs[i].SenderInfo = f.resolveSender(gctx, msgs[i].Sender.Name)
			return nil
		})
	}
	_ = g.Wait()
}

func (f *Fetcher) resolveSender(ctx context.Context, ref string) *chat.UserProfile {
	id, err := chat.NormalizeUser(ref)
	if err != nil {
		slog.Warn("malformed sender reference", "sender", ref, "error", err)
		return &chat.UserProfile{ID: ref, DisplayName: "User " + ref}
	}
	profile, err := f.backend.UserProfile(ctx, id)
	if err != nil || profile == nil {
		slog.Warn("sender profile lookup failed; attaching stub",
			"sender", id, "error", err)
		return &chat.UserProfile{ID: id, DisplayName: "User " + id}
	}
	if profile.ID == "" {
		profile.ID = id
	}
	return profile
}

// CollectSpace pages through a single space until max messages are
// accumulated or the space is exhausted. Each message is annotated with the
// originating space.
func (f *Fetcher) CollectSpace(ctx context.Context, space string, opts Options, max int) ([]chat.Message, error) {
	space, err := chat.NormalizeSpace(space)
	if err != nil {
		return nil, err
	}
	info := f.spaceInfo(ctx, space)

	var out []chat.Message
	pageOpts := opts
	for {
		msgs, next, err := f.ListMessages(ctx, space, pageOpts)
		if err != nil {
			return out, err
		}
		for i := range msgs {
			msgs[i].SpaceInfo = info
			out = append(out, msgs[i])
			if max > 0 && len(out) >= max {
				return out, nil
			}
		}
		if next == "" {
			return out, nil
		}
		pageOpts.PageToken = next
	}
}

// Collect accumulates messages across spaces, at most max in total, and
// reports which spaces were actually searched. Spaces are visited in order
// with a cancellation checkpoint between them; a failing space is logged and
// skipped, never aborting the collection. When the cap is reached, remaining
// spaces are skipped.
func (f *Fetcher) Collect(ctx context.Context, spaces []string, opts Options, max int) ([]chat.Message, []string) {
	var (
		out      []chat.Message
		searched []string
	)
	for _, space := range spaces {
		if ctx.Err() != nil {
			slog.Warn("collection cancelled", "error", ctx.Err())
			return out, searched
		}
		remaining := 0
		if max > 0 {
			remaining = max - len(out)
			if remaining <= 0 {
				return out, searched
			}
		}
		msgs, err := f.CollectSpace(ctx, space, opts, remaining)
		if err != nil {
			slog.Warn("skipping space after fetch error", "space", space, "error", err)
			continue
		}
		if len(msgs) == 0 && opts.RelaxEmptyWindow && opts.DateFilter != "" {
			relaxed := opts
			relaxed.DateFilter = ""
			msgs, err = f.CollectSpace(ctx, space, relaxed, remaining)
			if err != nil {
				slog.Warn("skipping space after relaxed fetch error", "space", space, "error", err)
				continue
			}
			slog.Debug("date window relaxed", "space", space, "candidates", len(msgs))
		}
		searched = append(searched, space)
		out = append(out, msgs...)
	}
	return out, searched
}

// Spaces lists every space visible to the authenticated user.
func (f *Fetcher) Spaces(ctx context.Context) ([]chat.Space, error) {
	var out []chat.Space
	token := ""
	for {
		spaces, next, err := f.backend.ListSpaces(ctx, maxPageSize, token)
		if err != nil {
			return nil, fmt.Errorf("list spaces: %w", err)
		}
		out = append(out, spaces...)
		if next == "" {
			return out, nil
		}
		token = next
	}
}

// spaceInfo resolves space metadata, best-effort.
func (f *Fetcher) spaceInfo(ctx context.Context, space string) *chat.SpaceInfo {
	sp, err := f.backend.GetSpace(ctx, space)
	if err != nil || sp == nil {
		return &chat.SpaceInfo{Name: space}
	}
	return &chat.SpaceInfo{Name: sp.Name, DisplayName: sp.DisplayName}
}
