// Package googlechat implements the ChatBackend capability over the Google
// Chat and People REST APIs.
package googlechat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kitefield/chatgate/internal/chat"
	"github.com/kitefield/chatgate/internal/token"
)

const (
	defaultChatBaseURL   = "https://chat.googleapis.com/v1"
	defaultPeopleBaseURL = "https://people.googleapis.com/v1"

	requestTimeout = 30 * time.Second
)

// ErrNotAuthenticated reports a call made without a usable credential.
var ErrNotAuthenticated = errors.New("not authenticated: run the auth flow first")

// Client talks to the Google Chat API with bearer tokens from a token store.
// It implements chat.ChatBackend.
type Client struct {
	chatBase   string
	peopleBase string
	http       *http.Client
	tokens     *token.Store
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURLs overrides the API endpoints, for tests.
func WithBaseURLs(chatBase, peopleBase string) Option {
	return func(c *Client) {
		c.chatBase = chatBase
		c.peopleBase = peopleBase
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client drawing credentials from tokens.
func New(tokens *token.Store, opts ...Option) *Client {
	c := &Client{
		chatBase:   defaultChatBaseURL,
		peopleBase: defaultPeopleBaseURL,
		http:       &http.Client{Timeout: requestTimeout},
		tokens:     tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiError is the Google API error envelope.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// do issues one authenticated request and decodes a JSON response into out
// (which may be nil for empty responses).
func (c *Client) do(ctx context.Context, op, method, rawURL string, query url.Values, body, out any) error {
	cred := c.tokens.Credential(ctx)
	if cred == nil {
		return chat.Backendf(op, ErrNotAuthenticated, "no valid credential")
	}

	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return chat.Backendf(op, err, "encode request")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return chat.Backendf(op, err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return chat.Backendf(op, err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var ae apiError
		if json.Unmarshal(data, &ae) == nil && ae.Error.Message != "" {
			return chat.Backendf(op, nil, "HTTP %d %s: %s",
				resp.StatusCode, ae.Error.Status, ae.Error.Message)
		}
		return chat.Backendf(op, nil, "HTTP %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return chat.Backendf(op, err, "decode response")
	}
	return nil
}

// ListSpaces returns one page of spaces the user belongs to.
func (c *Client) ListSpaces(ctx context.Context, pageSize int, pageToken string) ([]chat.Space, string, error) {
	q := url.Values{}
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	var resp struct {
		Spaces        []chat.Space `json:"spaces"`
		NextPageToken string       `json:"nextPageToken"`
	}
	if err := c.do(ctx, "spaces.list", http.MethodGet, c.chatBase+"/spaces", q, nil, &resp); err != nil {
		return nil, "", err
	}
	return resp.Spaces, resp.NextPageToken, nil
}

// ListMessages returns one page of messages in a space.
func (c *Client) ListMessages(ctx context.Context, space string, opts chat.ListOptions) ([]chat.Message, string, error) {
	space, err := chat.NormalizeSpace(space)
	if err != nil {
		return nil, "", err
	}
	q := url.Values{}
	if opts.Filter != "" {
		q.Set("filter", opts.Filter)
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.PageToken != "" {
		q.Set("pageToken", opts.PageToken)
	}
	if opts.OrderBy != "" {
		q.Set("orderBy", opts.OrderBy)
	}
	var resp struct {
		Messages      []chat.Message `json:"messages"`
		NextPageToken string         `json:"nextPageToken"`
	}
	endpoint := fmt.Sprintf("%s/%s/messages", c.chatBase, space)
	if err := c.do(ctx, "messages.list", http.MethodGet, endpoint, q, nil, &resp); err != nil {
		return nil, "", err
	}
	return resp.Messages, resp.NextPageToken, nil
}

// GetSpace resolves space metadata.
func (c *Client) GetSpace(ctx context.Context, name string) (*chat.Space, error) {
	name, err := chat.NormalizeSpace(name)
	if err != nil {
		return nil, err
	}
	var sp chat.Space
	if err := c.do(ctx, "spaces.get", http.MethodGet, c.chatBase+"/"+name, nil, nil, &sp); err != nil {
		return nil, err
	}
	return &sp, nil
}

// GetMessage fetches one message by fully qualified name.
func (c *Client) GetMessage(ctx context.Context, name string) (*chat.Message, error) {
	if err := chat.ValidateMessageName(name); err != nil {
		return nil, err
	}
	var m chat.Message
	if err := c.do(ctx, "messages.get", http.MethodGet, c.chatBase+"/"+name, nil, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMessage posts a message. A non-empty threadKey threads the message,
// falling back to a new thread when the key is unknown.
func (c *Client) CreateMessage(ctx context.Context, space string, msg *chat.Message, threadKey string) (*chat.Message, error) {
	space, err := chat.NormalizeSpace(space)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.Text == "" {
		return nil, fmt.Errorf("%w: message text is required", chat.ErrInvalidArgument)
	}

	body := map[string]any{"text": msg.Text}
	q := url.Values{}
	if threadKey != "" {
		body["thread"] = map[string]string{"threadKey": threadKey}
		q.Set("messageReplyOption", "REPLY_MESSAGE_FALLBACK_TO_NEW_THREAD")
	} else if msg.Thread != nil && msg.Thread.Name != "" {
		body["thread"] = map[string]string{"name": msg.Thread.Name}
		q.Set("messageReplyOption", "REPLY_MESSAGE_FALLBACK_TO_NEW_THREAD")
	}

	var created chat.Message
	endpoint := fmt.Sprintf("%s/%s/messages", c.chatBase, space)
	if err := c.do(ctx, "messages.create", http.MethodPost, endpoint, q, body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateMessage replaces a message's text.
func (c *Client) UpdateMessage(ctx context.Context, name, text string) (*chat.Message, error) {
	if err := chat.ValidateMessageName(name); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("%w: replacement text is required", chat.ErrInvalidArgument)
	}
	q := url.Values{"updateMask": {"text"}}
	var updated chat.Message
	err := c.do(ctx, "messages.update", http.MethodPatch, c.chatBase+"/"+name, q,
		map[string]string{"text": text}, &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, name string) error {
	if err := chat.ValidateMessageName(name); err != nil {
		return err
	}
	return c.do(ctx, "messages.delete", http.MethodDelete, c.chatBase+"/"+name, nil, nil, nil)
}

// AddReaction attaches a unicode emoji reaction to a message.
func (c *Client) AddReaction(ctx context.Context, message, emoji string) error {
	if err := chat.ValidateMessageName(message); err != nil {
		return err
	}
	if emoji == "" {
		return fmt.Errorf("%w: emoji is required", chat.ErrInvalidArgument)
	}
	body := map[string]any{"emoji": map[string]string{"unicode": emoji}}
	endpoint := fmt.Sprintf("%s/%s/reactions", c.chatBase, message)
	return c.do(ctx, "reactions.create", http.MethodPost, endpoint, nil, body, nil)
}

// person is the People API response shape for the fields we request.
type person struct {
	Names []struct {
		DisplayName string `json:"displayName"`
		GivenName   string `json:"givenName"`
		FamilyName  string `json:"familyName"`
	} `json:"names"`
	EmailAddresses []struct {
		Value string `json:"value"`
	} `json:"emailAddresses"`
	Photos []struct {
		URL string `json:"url"`
	} `json:"photos"`
}

// UserProfile resolves a user reference to a profile snapshot via the People
// API.
func (c *Client) UserProfile(ctx context.Context, user string) (*chat.UserProfile, error) {
	id, err := chat.NormalizeUser(user)
	if err != nil {
		return nil, err
	}
	q := url.Values{"personFields": {"names,emailAddresses,photos"}}
	var p person
	endpoint := fmt.Sprintf("%s/people/%s", c.peopleBase, id)
	if err := c.do(ctx, "people.get", http.MethodGet, endpoint, q, nil, &p); err != nil {
		return nil, err
	}

	profile := &chat.UserProfile{ID: id}
	if len(p.Names) > 0 {
		profile.DisplayName = p.Names[0].DisplayName
		profile.GivenName = p.Names[0].GivenName
		profile.FamilyName = p.Names[0].FamilyName
	}
	if len(p.EmailAddresses) > 0 {
		profile.Email = p.EmailAddresses[0].Value
	}
	if len(p.Photos) > 0 {
		profile.PhotoURL = p.Photos[0].URL
	}
	return profile, nil
}
