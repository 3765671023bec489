// Package tools registers the chat-operation tools a provider exposes
// through the gateway.
package tools

import (
	"context"
	"fmt"

	"github.com/kitefield/chatgate/internal/chat"
	"github.com/kitefield/chatgate/internal/datefilter"
	"github.com/kitefield/chatgate/internal/fetch"
	"github.com/kitefield/chatgate/internal/registry"
	"github.com/kitefield/chatgate/internal/search"
)

// Deps are the collaborators the tool handlers close over.
type Deps struct {
	Backend chat.ChatBackend
	Fetcher *fetch.Fetcher
	Search  *search.Service
}

// Register binds every chat tool onto the provider view. Registration through
// the view also lands each tool in the central registry under its composite
// key.
func Register(view *registry.ProviderView, deps Deps) {
	registerMessaging(view, deps)
	registerListing(view, deps)
	registerSearch(view, deps)
	registerProfile(view, deps)
}

func registerMessaging(view *registry.ProviderView, deps Deps) {
	view.Register("send_message",
		"Send a text message to a space, optionally threaded under a thread key.",
		[]registry.Param{
			{Name: "space", Type: "string", Description: "Space id or spaces/{id} resource name", Required: true},
			{Name: "text", Type: "string", Description: "Message text", Required: true},
			{Name: "thread_key", Type: "string", Description: "Thread key to reply under; a new thread is created when the key is unknown"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			space, err := argString(args, "space")
			if err != nil {
				return nil, err
			}
			text, err := argString(args, "text")
			if err != nil {
				return nil, err
			}
			threadKey, err := optString(args, "thread_key")
			if err != nil {
				return nil, err
			}
			return deps.Backend.CreateMessage(ctx, space, &chat.Message{Text: text}, threadKey)
		})

	view.Register("reply_to_thread",
		"Reply to an existing thread, identified by any message already in it.",
		[]registry.Param{
			{Name: "message_name", Type: "string", Description: "Qualified name of a message in the target thread", Required: true},
			{Name: "text", Type: "string", Description: "Reply text", Required: true},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			name, err := argString(args, "message_name")
			if err != nil {
				return nil, err
			}
			text, err := argString(args, "text")
			if err != nil {
				return nil, err
			}
			if err := chat.ValidateMessageName(name); err != nil {
				return nil, err
			}
			anchor, err := deps.Backend.GetMessage(ctx, name)
			if err != nil {
				return nil, err
			}
			if anchor.Thread == nil || anchor.Thread.Name == "" {
				return nil, fmt.Errorf("%w: message %s has no thread", chat.ErrInvalidArgument, name)
			}
			reply := &chat.Message{Text: text, Thread: anchor.Thread}
			return deps.Backend.CreateMessage(ctx, chat.SpaceOfMessage(name), reply, "")
		})

	view.Register("get_message",
		"Fetch a single message by its qualified resource name.",
		[]registry.Param{
			{Name: "message_name", Type: "string", Description: "spaces/{space}/messages/{message}", Required: true},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			name, err := argString(args, "message_name")
			if err != nil {
				return nil, err
			}
			return deps.Backend.GetMessage(ctx, name)
		})

	view.Register("update_message",
		"Replace the text of an existing message.",
		[]registry.Param{
			{Name: "message_name", Type: "string", Description: "spaces/{space}/messages/{message}", Required: true},
			{Name: "text", Type: "string", Description: "Replacement text", Required: true},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			name, err := argString(args, "message_name")
			if err != nil {
				return nil, err
			}
			text, err := argString(args, "text")
			if err != nil {
				return nil, err
			}
			return deps.Backend.UpdateMessage(ctx, name, text)
		})

	view.Register("delete_message",
		"Delete a message.",
		[]registry.Param{
			{Name: "message_name", Type: "string", Description: "spaces/{space}/messages/{message}", Required: true},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			name, err := argString(args, "message_name")
			if err != nil {
				return nil, err
			}
			if err := deps.Backend.DeleteMessage(ctx, name); err != nil {
				return nil, err
			}
			return map[string]any{"deleted": true, "message_name": name}, nil
		})

	view.Register("add_reaction",
		"Attach a unicode emoji reaction to a message.",
		[]registry.Param{
			{Name: "message_name", Type: "string", Description: "spaces/{space}/messages/{message}", Required: true},
			{Name: "emoji", Type: "string", Description: "Unicode emoji, e.g. 👍", Required: true},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			name, err := argString(args, "message_name")
			if err != nil {
				return nil, err
			}
			emoji, err := argString(args, "emoji")
			if err != nil {
				return nil, err
			}
			if err := deps.Backend.AddReaction(ctx, name, emoji); err != nil {
				return nil, err
			}
			return map[string]any{"reacted": true, "message_name": name, "emoji": emoji}, nil
		})
}

func registerListing(view *registry.ProviderView, deps Deps) {
	view.Register("list_spaces",
		"List every space the authenticated user belongs to.",
		nil,
		func(ctx context.Context, args map[string]any) (any, error) {
			spaces, err := deps.Fetcher.Spaces(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"spaces": spaces, "space_count": len(spaces)}, nil
		})

	view.Register("list_messages",
		"List messages in a space, optionally bounded by an absolute or relative date window.",
		[]registry.Param{
			{Name: "space", Type: "string", Description: "Space id or spaces/{id} resource name", Required: true},
			{Name: "start_date", Type: "string", Description: "Inclusive first day, YYYY-MM-DD"},
			{Name: "end_date", Type: "string", Description: "Inclusive last day, YYYY-MM-DD"},
			{Name: "days_window", Type: "integer", Description: "Relative window size in days, ending days_offset days ago"},
			{Name: "days_offset", Type: "integer", Description: "Days before today the relative window ends"},
			{Name: "filter", Type: "string", Description: "Extra backend filter expression"},
			{Name: "page_size", Type: "integer", Description: "Messages per page, at most 1000"},
			{Name: "page_token", Type: "string", Description: "Continuation token from a previous page"},
			{Name: "order_by", Type: "string", Description: "Sort order, default createTime desc"},
			{Name: "include_sender_info", Type: "boolean", Description: "Resolve sender profiles"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			space, err := argString(args, "space")
			if err != nil {
				return nil, err
			}
			opts, err := listOptions(args)
			if err != nil {
				return nil, err
			}
			msgs, next, err := deps.Fetcher.ListMessages(ctx, space, opts)
			if err != nil {
				return nil, err
			}
			if msgs == nil {
				msgs = []chat.Message{}
			}
			return map[string]any{
				"messages":        msgs,
				"message_count":   len(msgs),
				"next_page_token": next,
			}, nil
		})
}

// listOptions assembles fetch options from list_messages arguments. Absolute
// dates win over the relative window when both are supplied.
func listOptions(args map[string]any) (fetch.Options, error) {
	var opts fetch.Options
	var err error
	if opts.Filter, err = optString(args, "filter"); err != nil {
		return opts, err
	}
	if opts.PageToken, err = optString(args, "page_token"); err != nil {
		return opts, err
	}
	if opts.OrderBy, err = optString(args, "order_by"); err != nil {
		return opts, err
	}
	if opts.PageSize, err = optInt(args, "page_size", 0); err != nil {
		return opts, err
	}
	if opts.IncludeSenderInfo, err = optBool(args, "include_sender_info", false); err != nil {
		return opts, err
	}

	start, err := optString(args, "start_date")
	if err != nil {
		return opts, err
	}
	end, err := optString(args, "end_date")
	if err != nil {
		return opts, err
	}
	window, err := optInt(args, "days_window", 0)
	if err != nil {
		return opts, err
	}
	offset, err := optInt(args, "days_offset", 0)
	if err != nil {
		return opts, err
	}

	switch {
	case start != "" || end != "":
		opts.DateFilter, err = datefilter.Range(start, end)
	case window > 0:
		opts.DateFilter, err = datefilter.Relative(window, offset)
	}
	if err != nil {
		return opts, fmt.Errorf("%w: %v", chat.ErrInvalidArgument, err)
	}
	return opts, nil
}

func registerSearch(view *registry.ProviderView, deps Deps) {
	view.Register("search_messages",
		"Search messages across spaces using exact, regex, semantic, or hybrid matching.",
		[]registry.Param{
			{Name: "query", Type: "string", Description: "Search query", Required: true},
			{Name: "search_mode", Type: "string", Description: "exact, regex, semantic, or hybrid; defaults to the configured mode"},
			{Name: "spaces", Type: "array", Items: "string", Description: "Spaces to search; all visible spaces when omitted"},
			{Name: "max_results", Type: "integer", Description: "Result cap, default 50"},
			{Name: "start_date", Type: "string", Description: "Inclusive first day, YYYY-MM-DD"},
			{Name: "end_date", Type: "string", Description: "Inclusive last day, YYYY-MM-DD"},
			{Name: "filter", Type: "string", Description: "Extra backend filter expression"},
			{Name: "include_sender_info", Type: "boolean", Description: "Resolve sender profiles"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			text, err := argString(args, "query")
			if err != nil {
				return nil, err
			}
			mode, err := optString(args, "search_mode")
			if err != nil {
				return nil, err
			}
			spaces, err := optStrings(args, "spaces")
			if err != nil {
				return nil, err
			}
			maxResults, err := optInt(args, "max_results", 0)
			if err != nil {
				return nil, err
			}
			start, err := optString(args, "start_date")
			if err != nil {
				return nil, err
			}
			end, err := optString(args, "end_date")
			if err != nil {
				return nil, err
			}
			filter, err := optString(args, "filter")
			if err != nil {
				return nil, err
			}
			senderInfo, err := optBool(args, "include_sender_info", false)
			if err != nil {
				return nil, err
			}
			return deps.Search.Search(ctx, search.Query{
				Text:              text,
				Mode:              search.Mode(mode),
				Spaces:            spaces,
				MaxResults:        maxResults,
				StartDate:         start,
				EndDate:           end,
				Filter:            filter,
				IncludeSenderInfo: senderInfo,
			}), nil
		})
}

func registerProfile(view *registry.ProviderView, deps Deps) {
	view.Register("get_user_profile",
		"Resolve a user reference to a profile snapshot.",
		[]registry.Param{
			{Name: "user_id", Type: "string", Description: "users/{id}, people/{id}, or a bare id", Required: true},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			user, err := argString(args, "user_id")
			if err != nil {
				return nil, err
			}
			return deps.Backend.UserProfile(ctx, user)
		})
}
