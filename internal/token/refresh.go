package token

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// OAuth2Refresher refreshes credentials through an oauth2.Config token
// source.
type OAuth2Refresher struct {
	Config *oauth2.Config
}

// Refresh exchanges the refresh token for a new access token.
func (r *OAuth2Refresher) Refresh(ctx context.Context, cred *Credential) (*Credential, error) {
	if cred == nil || cred.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	src := r.Config.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	fresh := FromOAuth2(tok)
	fresh.Scopes = cred.Scopes
	return fresh, nil
}

// FromOAuth2 converts an oauth2 token into the persisted credential form.
func FromOAuth2(tok *oauth2.Token) *Credential {
	return &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
}
