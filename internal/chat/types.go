// Package chat defines the provider-neutral data model and the ChatBackend
// capability the rest of the gateway is built against.
package chat

// Message is a transient snapshot of a backend message. The backend owns the
// message; the gateway never mutates a snapshot after fetch, except to attach
// the SenderInfo and SpaceInfo enrichments.
type Message struct {
	Name        string       `json:"name"`
	Text        string       `json:"text,omitempty"`
	CreateTime  string       `json:"createTime,omitempty"`
	Sender      *User        `json:"sender,omitempty"`
	Thread      *Thread      `json:"thread,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`

	// Enrichments attached by the fetcher, never present on the wire.
	SenderInfo *UserProfile `json:"sender_info,omitempty"`
	SpaceInfo  *SpaceInfo   `json:"space_info,omitempty"`
}

// User is an opaque user reference as the backend reports it.
type User struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Thread identifies a sub-conversation independently of any message.
type Thread struct {
	Name string `json:"name,omitempty"`
}

// Annotation is a structured marker inside a message, such as a user mention.
type Annotation struct {
	Type        string       `json:"type,omitempty"`
	StartIndex  int          `json:"startIndex,omitempty"`
	Length      int          `json:"length,omitempty"`
	UserMention *UserMention `json:"userMention,omitempty"`
}

// UserMention carries the referenced user of a mention annotation.
type UserMention struct {
	User *User  `json:"user,omitempty"`
	Type string `json:"type,omitempty"`
}

// Space is a chat container (room, direct message, or group DM).
type Space struct {
	Name        string `json:"name"`
	SpaceType   string `json:"spaceType,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// SpaceInfo is the identity enrichment attached to messages collected across
// multiple spaces.
type SpaceInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
}

// UserProfile is a profile snapshot resolved from a user reference. All
// fields are optional; a stub profile carries only ID and DisplayName.
type UserProfile struct {
	ID          string `json:"id,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	GivenName   string `json:"given_name,omitempty"`
	FamilyName  string `json:"family_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// ScoredMessage pairs a ranking score with a message. Result lists are sorted
// by score descending with ties kept in insertion order.
type ScoredMessage struct {
	Score   float64 `json:"score"`
	Message Message `json:"message"`
}
