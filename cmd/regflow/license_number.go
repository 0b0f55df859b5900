package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/regflow/pkg/cmd"
	"github.com/dukex/regflow/pkg/config"
	"github.com/dukex/regflow/pkg/licensenumber"
	"github.com/dukex/regflow/pkg/log"
	"github.com/dukex/regflow/pkg/protocol"
	"github.com/dukex/regflow/pkg/sequence"
	cli "github.com/urfave/cli/v3"
)

func NewLicenseNumberCommand() *cli.Command {
	return &cli.Command{
		Name:  "license-number",
		Usage: "Issue a license number for a record",
		Flags: []cli.Flag{
			settingsFileFlag(),
			&cli.StringFlag{
				Name:     "record",
				Usage:    "Record as a JSON object, or @path to read it from a file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL holding the shared license sequences",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database URL holding the license sequences, used when no Redis URL is set",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("regflow").With("action", "license-number")

			if command.String("settings-file") == "" {
				return errors.New("--settings-file is required")
			}

			cfg, err := config.NewLoader(cmd.NewRegistry(logger), logger).LoadFiles(command.String("settings-file"))
			if err != nil {
				return err
			}

			record, err := parseRecord(command.String("record"))
			if err != nil {
				return err
			}

			sequencer, closeSequencer, err := newSequencer(ctx, logger, command.String("redis-url"), command.String("database-url"))
			if err != nil {
				return err
			}
			defer closeSequencer()

			number, err := licensenumber.NewIssuer(sequencer, logger).Issue(ctx, cfg.LicenseNumberFormats, record)
			if err != nil {
				return err
			}

			fmt.Fprintln(command.Root().Writer, number)

			return nil
		},
	}
}

// newSequencer prefers Redis, then the database, then process memory.
//
//nolint:ireturn
func newSequencer(ctx context.Context, logger *slog.Logger, redisURL, databaseURL string) (protocol.Sequencer, func(), error) {
	switch {
	case redisURL != "":
		client, err := sequence.NewRedisClient(ctx, redisURL)
		if err != nil {
			return nil, nil, err
		}

		return sequence.NewRedisSequencer(client), func() {
			if err := client.Close(); err != nil {
				logger.Error("Failed to close redis client", "error", err)
			}
		}, nil
	case databaseURL != "":
		store, err := cmd.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, nil, err
		}

		return store.Sequencer(), func() {
			if err := store.Close(ctx); err != nil {
				logger.Error("Failed to close persistence", "error", err)
			}
		}, nil
	default:
		logger.Warn("No Redis or database URL set, license sequences start from 1")

		return sequence.NewMemorySequencer(), func() {}, nil
	}
}
