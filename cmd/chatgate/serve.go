package main

import (
	"context"
	"log/slog"

	"github.com/kitefield/chatgate/internal/config"
	"github.com/kitefield/chatgate/internal/gateway"
	"github.com/kitefield/chatgate/internal/provider"
	"github.com/kitefield/chatgate/internal/registry"
)

// serve runs the tool gateway over stdio for one provider.
func serve(ctx context.Context, store *config.Store, opts options) error {
	rt, err := provider.Load(store, opts.provider)
	if err != nil {
		return err
	}
	if err := rt.RequireCredential(); err != nil {
		return err
	}

	reg := registry.New()
	view := rt.RegisterTools(reg)

	slog.Info("serving tools over stdio",
		"provider", rt.Name,
		"tools", len(view.Tools()),
		"search_mode", rt.Engine.Config().Search.DefaultMode)

	srv := gateway.NewServer(view, gateway.ServerInfo{
		Name:    "chatgate",
		Version: version,
	})
	return srv.RunStdio(ctx)
}

// runAuth runs the local OAuth authorization server for one provider.
func runAuth(ctx context.Context, store *config.Store, opts options) error {
	rt, err := provider.Load(store, opts.provider)
	if err != nil {
		return err
	}
	srv := rt.AuthServer(opts.host, opts.port)
	return srv.Run(ctx)
}
