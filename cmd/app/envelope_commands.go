package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/allisson/envelope/cmd/app/commands"
	"github.com/allisson/envelope/internal/app"
	"github.com/allisson/envelope/internal/config"
	envelopeUseCase "github.com/allisson/envelope/internal/envelope/usecase"
)

var inputFlag = &cli.StringFlag{
	Name:    "input",
	Aliases: []string{"in"},
	Value:   "-",
	Usage:   "Input file ('-' reads stdin)",
}

// withEnvelopeUseCase runs fn with the envelope service of a fresh container.
func withEnvelopeUseCase(
	ctx context.Context,
	fn func(container *app.Container, cfg *config.Config, useCase envelopeUseCase.EnvelopeUseCase) error,
) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	container := app.NewContainer(cfg)
	defer func() { _ = container.Shutdown(ctx) }()

	useCase, err := container.EnvelopeUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize envelope service: %w", err)
	}
	return fn(container, cfg, useCase)
}

func getEnvelopeCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "encrypt",
			Usage: "Encrypt input into an envelope",
			Flags: []cli.Flag{
				inputFlag,
				&cli.StringFlag{
					Name:    "key-version",
					Aliases: []string{"k"},
					Value:   "",
					Usage:   "Existing key version to encrypt with (defaults to the current key)",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "json",
					Usage:   "Envelope encoding: 'json' or 'token'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withEnvelopeUseCase(ctx, func(_ *app.Container, _ *config.Config, useCase envelopeUseCase.EnvelopeUseCase) error {
					streams := commands.DefaultIO()
					reader, closeInput, err := commands.OpenInput(cmd.String("input"), streams.Reader)
					if err != nil {
						return err
					}
					defer closeInput()

					return commands.RunEncrypt(
						ctx,
						useCase,
						reader,
						streams.Writer,
						cmd.String("key-version"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "decrypt",
			Usage: "Decrypt an envelope (JSON or token) and write the plaintext",
			Flags: []cli.Flag{inputFlag},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withEnvelopeUseCase(ctx, func(_ *app.Container, _ *config.Config, useCase envelopeUseCase.EnvelopeUseCase) error {
					streams := commands.DefaultIO()
					reader, closeInput, err := commands.OpenInput(cmd.String("input"), streams.Reader)
					if err != nil {
						return err
					}
					defer closeInput()

					return commands.RunDecrypt(ctx, useCase, reader, streams.Writer)
				})
			},
		},
		{
			Name:  "re-encrypt",
			Usage: "Migrate newline-delimited envelopes to a key version",
			Flags: []cli.Flag{
				inputFlag,
				&cli.StringFlag{
					Name:     "key-version",
					Aliases:  []string{"k"},
					Required: true,
					Usage:    "Target key version (must already exist, see create-key)",
				},
				&cli.IntFlag{
					Name:    "batch-size",
					Aliases: []string{"b"},
					Value:   100,
					Usage:   "Number of envelopes per batch (capped by BATCH_MAX_SIZE)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withEnvelopeUseCase(ctx, func(container *app.Container, cfg *config.Config, useCase envelopeUseCase.EnvelopeUseCase) error {
					streams := commands.DefaultIO()
					reader, closeInput, err := commands.OpenInput(cmd.String("input"), streams.Reader)
					if err != nil {
						return err
					}
					defer closeInput()
					streams.Reader = reader

					batchSize := int(cmd.Int("batch-size"))
					if cfg.BatchMaxSize > 0 && batchSize > cfg.BatchMaxSize {
						batchSize = cfg.BatchMaxSize
					}

					return commands.RunReEncrypt(
						ctx,
						useCase,
						container.Logger(),
						streams,
						cmd.String("key-version"),
						batchSize,
					)
				})
			},
		},
	}
}
