package chat

import "context"

// ListOptions parameterizes a single page of message listing.
type ListOptions struct {
	Filter    string // backend filter expression, may be empty
	PageSize  int    // 0 means backend default
	PageToken string
	OrderBy   string // e.g. "createTime desc"
}

// ChatBackend is the capability a chat provider implements. The gateway core
// never talks to a provider's wire API except through this interface.
type ChatBackend interface {
	// ListSpaces returns one page of spaces the authenticated user belongs to.
	ListSpaces(ctx context.Context, pageSize int, pageToken string) ([]Space, string, error)

	// ListMessages returns one page of messages in a space, newest first
	// unless opts.OrderBy says otherwise.
	ListMessages(ctx context.Context, space string, opts ListOptions) ([]Message, string, error)

	// GetSpace resolves a space resource name to its metadata.
	GetSpace(ctx context.Context, name string) (*Space, error)

	GetMessage(ctx context.Context, name string) (*Message, error)

	// CreateMessage posts a message to a space. threadKey is optional; when
	// set the message is threaded under the matching thread.
	CreateMessage(ctx context.Context, space string, msg *Message, threadKey string) (*Message, error)

	// UpdateMessage replaces the text of an existing message.
	UpdateMessage(ctx context.Context, name, text string) (*Message, error)

	DeleteMessage(ctx context.Context, name string) error

	// AddReaction attaches a unicode emoji reaction to a message.
	AddReaction(ctx context.Context, message, emoji string) error

	// UserProfile resolves a user reference (any of users/{U}, people/{U},
	// or a raw id) to a profile snapshot.
	UserProfile(ctx context.Context, user string) (*UserProfile, error)
}
