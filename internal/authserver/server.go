// Package authserver implements the long-running local OAuth authorization
// service: the authorization-code flow, status introspection, and manual
// refresh.
package authserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/kitefield/chatgate/internal/token"
)

// Flow is the subset of oauth2.Config the server drives. Tests substitute a
// fake; production passes *oauth2.Config directly.
type Flow interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// Server is the local HTTP authorization service.
type Server struct {
	addr   string
	flow   Flow
	tokens *token.Store
	scopes []string
	states *stateStore
}

// New creates an auth server bound to addr.
func New(addr string, flow Flow, tokens *token.Store, scopes []string) *Server {
	return &Server{
		addr:   addr,
		flow:   flow,
		tokens: tokens,
		scopes: scopes,
		states: newStateStore(),
	}
}

// Handler returns the HTTP handler with all auth routes mounted.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth", s.handleAuth)
	mux.HandleFunc("GET /auth/callback", s.handleCallback)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully: the
// listener stops accepting and in-flight requests drain.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("auth server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("auth server shutdown: %w", err)
	}
	slog.Info("auth server stopped")
	return nil
}

// handleAuth starts an authorization flow, or reports that a valid
// credential already exists.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	if cred := s.tokens.Credential(r.Context()); cred.Valid() {
		writeJSON(w, http.StatusOK, statusResponse{
			Status:  "already_authenticated",
			Message: "a valid credential already exists",
		})
		return
	}

	callback := r.URL.Query().Get("callback_url")
	state, err := s.states.create(callback)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Offline access and forced consent so the provider always issues a
	// refresh token.
	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.ApprovalForce}
	if callback != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", callback))
	}

	url := s.flow.AuthCodeURL(state, opts...)
	slog.Info("starting authorization flow", "state", state)
	http.Redirect(w, r, url, http.StatusFound)
}

// handleCallback resolves the pending flow and exchanges the code for a
// credential.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errMsg := q.Get("error"); errMsg != "" {
		writeError(w, http.StatusBadRequest, "authorization denied: "+errMsg)
		return
	}

	entry, ok := s.states.consume(q.Get("state"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid or expired oauth state")
		return
	}

	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	var opts []oauth2.AuthCodeOption
	if entry.CallbackURL != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", entry.CallbackURL))
	}
	tok, err := s.flow.Exchange(r.Context(), code, opts...)
	if err != nil {
		writeError(w, http.StatusBadGateway, "code exchange failed: "+err.Error())
		return
	}
	if tok.RefreshToken == "" {
		writeError(w, http.StatusBadGateway,
			"provider did not issue a refresh token; revoke access and authorize again")
		return
	}

	cred := token.FromOAuth2(tok)
	cred.Scopes = s.scopes
	if err := s.tokens.Save(cred); err != nil {
		writeError(w, http.StatusInternalServerError, "persist credential: "+err.Error())
		return
	}

	slog.Info("authorization complete", "expiry", cred.Expiry)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "authenticated",
		"message": "authorization complete; you can close this window",
		"expiry":  cred.Expiry,
	})
}

// handleStatus reports the current credential state without refreshing.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cred := s.tokens.Peek()
	switch {
	case cred == nil:
		writeJSON(w, http.StatusOK, map[string]any{"status": "not_authenticated"})
	case cred.Valid():
		writeJSON(w, http.StatusOK, map[string]any{
			"status":            "authenticated",
			"expiry":            cred.Expiry,
			"has_refresh_token": cred.RefreshToken != "",
		})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":            "expired",
			"expiry":            cred.Expiry,
			"has_refresh_token": cred.RefreshToken != "",
		})
	}
}

// handleRefresh forces a token refresh.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.tokens.Refresh(r.Context()); err != nil {
		if errors.Is(err, token.ErrNoRefreshToken) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "refresh failed: "+err.Error())
		return
	}
	cred := s.tokens.Peek()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "refreshed",
		"expiry": cred.Expiry,
	})
}
