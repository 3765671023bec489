// Package provider assembles one configured provider into a runnable
// runtime: credentials, backend client, search stack, and tool surface.
package provider

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/kitefield/chatgate/internal/authserver"
	"github.com/kitefield/chatgate/internal/chat"
	"github.com/kitefield/chatgate/internal/config"
	"github.com/kitefield/chatgate/internal/embedding"
	"github.com/kitefield/chatgate/internal/fetch"
	"github.com/kitefield/chatgate/internal/googlechat"
	"github.com/kitefield/chatgate/internal/registry"
	"github.com/kitefield/chatgate/internal/search"
	"github.com/kitefield/chatgate/internal/token"
	"github.com/kitefield/chatgate/internal/tools"
)

// Google OAuth 2.0 endpoints.
var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// defaultScopes cover message CRUD, space listing, and profile lookup.
var defaultScopes = []string{
	"https://www.googleapis.com/auth/chat.messages",
	"https://www.googleapis.com/auth/chat.spaces.readonly",
	"https://www.googleapis.com/auth/userinfo.profile",
}

const defaultAuthPort = 8000

// Runtime is a fully wired provider.
type Runtime struct {
	Name    string
	Config  *config.Provider
	OAuth   *oauth2.Config
	Tokens  *token.Store
	Backend chat.ChatBackend
	Fetcher *fetch.Fetcher
	Engine  *search.Engine
	Search  *search.Service
}

// Load resolves a provider record into a runtime. All configuration paths
// are read eagerly so a broken setup fails here, not on the first tool call.
func Load(store *config.Store, name string) (*Runtime, error) {
	p, err := store.Provider(name)
	if err != nil {
		return nil, err
	}
	if p.ClientID == "" {
		return nil, fmt.Errorf("provider %q: client_id is required", name)
	}
	if p.TokenPath == "" {
		return nil, fmt.Errorf("provider %q: token_path is required", name)
	}

	scopes := p.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}
	oauthCfg := &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.Secret(),
		Endpoint:     googleEndpoint,
		RedirectURL:  p.CallbackURL,
		Scopes:       scopes,
	}

	tokens := token.NewStore(p.TokenPath, &token.OAuth2Refresher{Config: oauthCfg})
	backend := googlechat.New(tokens)
	fetcher := fetch.New(backend)

	searchCfg, err := loadSearchConfig(p)
	if err != nil {
		return nil, err
	}
	engine := search.NewEngine(searchCfg, newEmbedder(searchCfg))

	return &Runtime{
		Name:    name,
		Config:  p,
		OAuth:   oauthCfg,
		Tokens:  tokens,
		Backend: backend,
		Fetcher: fetcher,
		Engine:  engine,
		Search:  search.NewService(fetcher, engine),
	}, nil
}

func loadSearchConfig(p *config.Provider) (*search.Config, error) {
	if p.SearchConfigPath == "" {
		return search.DefaultConfig(), nil
	}
	cfg, err := search.LoadConfig(p.SearchConfigPath)
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", p.Name, err)
	}
	return cfg, nil
}

// newEmbedder builds the embedding provider the semantic mode config asks
// for, or nil when semantic search is disabled.
func newEmbedder(cfg *search.Config) embedding.Provider {
	mc := cfg.Mode(string(search.ModeSemantic))
	if mc == nil || !mc.Enabled {
		return nil
	}
	model := mc.Options.Model
	if model == "" {
		model = embedding.DefaultModel
	}
	return embedding.NewOpenAI(model, mc.Options.CacheSize)
}

// RegisterTools binds the runtime's tool surface into the central registry
// and returns the provider view the gateway serves from.
func (rt *Runtime) RegisterTools(reg *registry.Registry) *registry.ProviderView {
	view := reg.Provider(rt.Name)
	tools.Register(view, tools.Deps{
		Backend: rt.Backend,
		Fetcher: rt.Fetcher,
		Search:  rt.Search,
	})
	for _, d := range view.Tools() {
		slog.Info("tool registered",
			"tool", d.Name, "composite_key", d.CompositeKey())
	}
	return view
}

// RequireCredential asserts a token file exists before serving. The gateway
// refuses to start unauthenticated so failures surface at startup instead of
// on every tool call.
func (rt *Runtime) RequireCredential() error {
	if _, err := os.Stat(rt.Tokens.Path()); err != nil {
		return fmt.Errorf("no token file at %s: run with -local-auth first", rt.Tokens.Path())
	}
	if rt.Tokens.Peek() == nil {
		return fmt.Errorf("token file at %s is unreadable: re-run with -local-auth", rt.Tokens.Path())
	}
	return nil
}

// AuthServer builds the local OAuth server for this provider. An empty host
// defaults to localhost; a zero port falls back to the provider's configured
// port, then the default.
func (rt *Runtime) AuthServer(host string, port int) *authserver.Server {
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = rt.Config.Port
	}
	if port == 0 {
		port = defaultAuthPort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	return authserver.New(addr, rt.OAuth, rt.Tokens, rt.OAuth.Scopes)
}
