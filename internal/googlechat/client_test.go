package googlechat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kitefield/chatgate/internal/chat"
	"github.com/kitefield/chatgate/internal/token"
)

func testTokens(t *testing.T) *token.Store {
	t.Helper()
	s := token.NewStore(filepath.Join(t.TempDir(), "token.json"), nil)
	if err := s.Save(&token.Credential{AccessToken: "test-token"}); err != nil {
		t.Fatalf("seed token store: %v", err)
	}
	return s
}

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(testTokens(t), WithBaseURLs(srv.URL+"/v1", srv.URL+"/people/v1"))
	return c, srv
}

func TestListMessagesRequestShape(t *testing.T) {
	var gotPath, gotAuth string
	var gotQuery map[string][]string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]any{
				{"name": "spaces/AAA/messages/1", "text": "hi"},
			},
			"nextPageToken": "tok2",
		})
	}))

	msgs, next, err := c.ListMessages(context.Background(), "AAA", chat.ListOptions{
		Filter:   `createTime > "2024-05-01T00:00:00Z"`,
		PageSize: 50,
		OrderBy:  "createTime desc",
	})
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if gotPath != "/v1/spaces/AAA/messages" {
		t.Errorf("path = %q, want /v1/spaces/AAA/messages", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("authorization = %q, want bearer token", gotAuth)
	}
	if got := gotQuery["filter"]; len(got) != 1 || got[0] != `createTime > "2024-05-01T00:00:00Z"` {
		t.Errorf("filter = %v, want the date expression", got)
	}
	if got := gotQuery["pageSize"]; len(got) != 1 || got[0] != "50" {
		t.Errorf("pageSize = %v, want 50", got)
	}
	if len(msgs) != 1 || msgs[0].Name != "spaces/AAA/messages/1" {
		t.Errorf("messages = %+v", msgs)
	}
	if next != "tok2" {
		t.Errorf("next token = %q, want tok2", next)
	}
}

func TestAPIErrorMapsToBackendError(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code": 403, "status": "PERMISSION_DENIED", "message": "no access",
			},
		})
	}))

	_, _, err := c.ListMessages(context.Background(), "spaces/AAA", chat.ListOptions{})
	var be *chat.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("err = %T %v, want *chat.BackendError", err, err)
	}
	if be.Op != "messages.list" {
		t.Errorf("op = %q, want messages.list", be.Op)
	}
	for _, want := range []string{"403", "PERMISSION_DENIED", "no access"} {
		if !strings.Contains(be.Reason, want) {
			t.Errorf("reason %q missing %q", be.Reason, want)
		}
	}
}

func TestNotAuthenticated(t *testing.T) {
	empty := token.NewStore(filepath.Join(t.TempDir(), "token.json"), nil)
	c := New(empty)

	_, _, err := c.ListMessages(context.Background(), "spaces/AAA", chat.ListOptions{})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestCreateMessageThreading(t *testing.T) {
	var gotBody map[string]any
	var gotReplyOption string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		gotReplyOption = r.URL.Query().Get("messageReplyOption")
		json.NewEncoder(w).Encode(map[string]any{
			"name": "spaces/AAA/messages/NEW", "text": gotBody["text"],
		})
	}))

	created, err := c.CreateMessage(context.Background(), "AAA",
		&chat.Message{Text: "hello"}, "weekly-sync")
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if created.Name != "spaces/AAA/messages/NEW" {
		t.Errorf("created name = %q", created.Name)
	}
	thread, _ := gotBody["thread"].(map[string]any)
	if thread == nil || thread["threadKey"] != "weekly-sync" {
		t.Errorf("thread body = %v, want threadKey weekly-sync", gotBody["thread"])
	}
	if gotReplyOption != "REPLY_MESSAGE_FALLBACK_TO_NEW_THREAD" {
		t.Errorf("messageReplyOption = %q", gotReplyOption)
	}
}

func TestCreateMessageRequiresText(t *testing.T) {
	c := New(testTokens(t))
	_, err := c.CreateMessage(context.Background(), "AAA", &chat.Message{}, "")
	if !errors.Is(err, chat.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestMessageOperationsRejectBareIDs(t *testing.T) {
	c := New(testTokens(t))
	ctx := context.Background()

	if _, err := c.GetMessage(ctx, "12345"); !errors.Is(err, chat.ErrInvalidArgument) {
		t.Errorf("GetMessage(bare id) err = %v, want ErrInvalidArgument", err)
	}
	if _, err := c.UpdateMessage(ctx, "12345", "x"); !errors.Is(err, chat.ErrInvalidArgument) {
		t.Errorf("UpdateMessage(bare id) err = %v, want ErrInvalidArgument", err)
	}
	if err := c.DeleteMessage(ctx, "12345"); !errors.Is(err, chat.ErrInvalidArgument) {
		t.Errorf("DeleteMessage(bare id) err = %v, want ErrInvalidArgument", err)
	}
	if err := c.AddReaction(ctx, "12345", "👍"); !errors.Is(err, chat.ErrInvalidArgument) {
		t.Errorf("AddReaction(bare id) err = %v, want ErrInvalidArgument", err)
	}
}

func TestUpdateMessageSendsMask(t *testing.T) {
	var gotMask, gotMethod string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMask = r.URL.Query().Get("updateMask")
		gotMethod = r.Method
		json.NewEncoder(w).Encode(map[string]any{
			"name": "spaces/AAA/messages/1", "text": "edited",
		})
	}))

	updated, err := c.UpdateMessage(context.Background(), "spaces/AAA/messages/1", "edited")
	if err != nil {
		t.Fatalf("UpdateMessage: %v", err)
	}
	if gotMethod != http.MethodPatch || gotMask != "text" {
		t.Errorf("request = %s updateMask=%q, want PATCH with text mask", gotMethod, gotMask)
	}
	if updated.Text != "edited" {
		t.Errorf("updated text = %q", updated.Text)
	}
}

func TestAddReactionBody(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte("{}"))
	}))

	if err := c.AddReaction(context.Background(), "spaces/AAA/messages/1", "🎉"); err != nil {
		t.Fatalf("AddReaction: %v", err)
	}
	if gotPath != "/v1/spaces/AAA/messages/1/reactions" {
		t.Errorf("path = %q", gotPath)
	}
	emoji, _ := gotBody["emoji"].(map[string]any)
	if emoji == nil || emoji["unicode"] != "🎉" {
		t.Errorf("body = %v, want unicode emoji", gotBody)
	}
}

func TestUserProfileMapping(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/people/v1/people/U123" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("personFields"); got != "names,emailAddresses,photos" {
			t.Errorf("personFields = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"names": []map[string]any{
				{"displayName": "Ada Lovelace", "givenName": "Ada", "familyName": "Lovelace"},
			},
			"emailAddresses": []map[string]any{{"value": "ada@example.com"}},
			"photos":         []map[string]any{{"url": "https://example.com/ada.png"}},
		})
	}))

	p, err := c.UserProfile(context.Background(), "users/U123")
	if err != nil {
		t.Fatalf("UserProfile: %v", err)
	}
	want := chat.UserProfile{
		ID: "U123", Email: "ada@example.com", DisplayName: "Ada Lovelace",
		GivenName: "Ada", FamilyName: "Lovelace", PhotoURL: "https://example.com/ada.png",
	}
	if *p != want {
		t.Errorf("profile = %+v, want %+v", *p, want)
	}
}
