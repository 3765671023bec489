// chatgate exposes chat-operation tools to an agent runtime over a JSON-RPC
// tool-invocation protocol, one configured provider at a time.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/kitefield/chatgate/internal/config"
)

const version = "0.1.0"

type options struct {
	configPath    string
	provider      string
	localAuth     bool
	host          string
	port          int
	debug         bool
	listProviders bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chatgate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	flag.StringVar(&opts.configPath, "config", defaultConfigPath(), "path to the providers config file")
	flag.StringVar(&opts.provider, "provider", "", "provider to serve or authenticate")
	flag.BoolVar(&opts.localAuth, "local-auth", false, "run the local OAuth server instead of serving tools")
	flag.StringVar(&opts.host, "host", "localhost", "auth server bind host")
	flag.IntVar(&opts.port, "port", 0, "auth server port (default: provider config, then 8000)")
	flag.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flag.BoolVar(&opts.listProviders, "list-providers", false, "list configured providers and exit")
	flag.Parse()

	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}
	// Stdout carries the protocol stream; logs go to stderr.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer cancel()

	store := config.NewStore(opts.configPath)
	if err := store.Load(); err != nil {
		return err
	}

	if opts.listProviders {
		return listProviders(store)
	}
	if opts.provider == "" {
		return fmt.Errorf("-provider is required (or use -list-providers)")
	}
	if opts.localAuth {
		return runAuth(ctx, store, opts)
	}
	return serve(ctx, store, opts)
}

func defaultConfigPath() string {
	if p := os.Getenv("CHATGATE_CONFIG"); p != "" {
		return p
	}
	return "providers.yaml"
}

func listProviders(store *config.Store) error {
	names, err := store.ProviderNames()
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		p, err := store.Provider(name)
		if err != nil {
			return err
		}
		if p.Description != "" {
			fmt.Printf("%s\t%s\n", name, p.Description)
		} else {
			fmt.Println(name)
		}
	}
	return nil
}
