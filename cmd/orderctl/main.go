// Command orderctl is the operator CLI for the order store.
//
//	orderctl list [-status S] [-q TEXT] [-limit N] [-offset N]
//	orderctl stats
//	orderctl show ORDER_ID
//	orderctl set-status ORDER_ID STATUS
//	orderctl delete -yes ORDER_ID
//	orderctl token -user ID -email E [-role ADMIN] [-ttl 1h]
//	orderctl events [-group G]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/meditationastro/medinow-sub000/internal/config"
	"github.com/meditationastro/medinow-sub000/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_DIR"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	// Logs go to stderr so tables on stdout stay clean.
	logger := logging.New(cfg.LogLevel, true).Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "orderctl %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "token":
		return runToken(cfg, args, out)
	case "events":
		return runEvents(ctx, cfg, logger, args, out)
	case "list", "stats", "show", "set-status", "delete":
		app, closeFn, err := openApp(cfg, logger, out)
		if err != nil {
			return err
		}
		defer closeFn()
		return app.dispatch(ctx, cmd, args)
	case "help", "-h", "--help":
		usage(out)
		return nil
	default:
		usage(os.Stderr)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `usage: orderctl <command> [flags]

commands:
  list        list orders, newest first
  stats       order totals and revenue
  show        one order with items and status history
  set-status  override an order's status
  delete      delete an order (requires -yes)
  token       mint an access token for API calls
  events      tail the order event topic`)
}
