// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"
	"slices"

	"github.com/awnumar/memguard"
	"github.com/urfave/cli/v3"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// run executes the CLI. Signals are left to the commands: the server drains
// in-flight requests on SIGINT/SIGTERM before enclave keys are purged.
func run(ctx context.Context, args []string) error {
	defer memguard.Purge()

	cmd := &cli.Command{
		Name:     "app",
		Usage:    "Versioned envelope encryption service",
		Version:  version,
		Commands: slices.Concat(
			inCategory("server", getSystemCommands(version)),
			inCategory("keys", getKeyCommands()),
			inCategory("envelopes", getEnvelopeCommands()),
		),
	}
	return cmd.Run(ctx, args)
}

// inCategory groups cmds under one heading in the help output.
func inCategory(category string, cmds []*cli.Command) []*cli.Command {
	for _, cmd := range cmds {
		cmd.Category = category
	}
	return cmds
}

func main() {
	if err := run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
