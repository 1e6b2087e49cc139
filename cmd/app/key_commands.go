package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/envelope/cmd/app/commands"
	"github.com/allisson/envelope/internal/app"
	"github.com/allisson/envelope/internal/config"
	keyringUseCase "github.com/allisson/envelope/internal/keyring/usecase"
)

var kmsFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "kms-provider",
		Value:    "",
		Required: true,
		Usage:    "KMS provider (localsecrets, gcpkms, awskms, azurekeyvault, hashivault)",
	},
	&cli.StringFlag{
		Name:     "kms-key-uri",
		Value:    "",
		Required: true,
		Usage:    "KMS key URI (e.g., base64key://, gcpkms://projects/.../cryptoKeys/...)",
	},
}

var formatFlag = &cli.StringFlag{
	Name:    "format",
	Aliases: []string{"f"},
	Value:   "text",
	Usage:   "Output format: 'text' or 'json'",
}

// withKeyUseCase runs fn with the key registry of a fresh container.
func withKeyUseCase(
	ctx context.Context,
	fn func(container *app.Container, keyUseCase keyringUseCase.KeyUseCase) error,
) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	container := app.NewContainer(cfg)
	defer func() { _ = container.Shutdown(ctx) }()

	keyUseCase, err := container.KeyUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize key registry: %w", err)
	}
	return fn(container, keyUseCase)
}

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-master-key",
			Usage: "Generate a new KMS-sealed master key for a database key store",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:    "id",
					Aliases: []string{"i"},
					Value:   "",
					Usage:   "Master key ID (e.g., prod-master-key-2025)",
				},
			}, kmsFlags...),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunCreateMasterKey(
					ctx,
					container.KMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("kms-provider"),
					cmd.String("kms-key-uri"),
				)
			},
		},
		{
			Name:  "rotate-master-key",
			Usage: "Generate a new master key and append it to MASTER_KEYS as the active key",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:    "id",
					Aliases: []string{"i"},
					Value:   "",
					Usage:   "New master key ID (e.g., prod-master-key-2026)",
				},
			}, kmsFlags...),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunRotateMasterKey(
					ctx,
					container.KMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("kms-provider"),
					cmd.String("kms-key-uri"),
					os.Getenv("MASTER_KEYS"),
					os.Getenv("ACTIVE_MASTER_KEY_ID"),
				)
			},
		},
		{
			Name:  "create-key",
			Usage: "Create the data key for a version (no-op if it exists)",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "version",
					Aliases:  []string{"v"},
					Required: true,
					Usage:    "Key version (1-64 characters from A-Z a-z 0-9 . _ -)",
				},
				formatFlag,
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyUseCase(ctx, func(container *app.Container, keyUseCase keyringUseCase.KeyUseCase) error {
					return commands.RunCreateKey(
						ctx,
						keyUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("version"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "rotate-key",
			Usage: "Create a new data key version for new encryptions",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "version",
					Aliases: []string{"v"},
					Value:   "",
					Usage:   "New key version (defaults to a UTC timestamp)",
				},
				formatFlag,
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyUseCase(ctx, func(container *app.Container, keyUseCase keyringUseCase.KeyUseCase) error {
					return commands.RunRotateKey(
						ctx,
						keyUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("version"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "list-keys",
			Usage: "List data key versions and their metadata",
			Flags: []cli.Flag{formatFlag},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyUseCase(ctx, func(_ *app.Container, keyUseCase keyringUseCase.KeyUseCase) error {
					return commands.RunListKeys(ctx, keyUseCase, commands.DefaultIO().Writer, cmd.String("format"))
				})
			},
		},
		{
			Name:  "rewrap-keys",
			Usage: "Re-wrap data keys under the active master key",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "batch-size",
					Aliases: []string{"b"},
					Value:   100,
					Usage:   "Number of data keys to re-wrap per transaction",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyUseCase(ctx, func(container *app.Container, keyUseCase keyringUseCase.KeyUseCase) error {
					return commands.RunRewrapKeys(
						ctx,
						keyUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						int(cmd.Int("batch-size")),
					)
				})
			},
		},
	}
}
