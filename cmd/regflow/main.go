package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/regflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	if err := NewApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func NewApp() *cli.Command {
	return &cli.Command{
		Name:                  "regflow",
		Usage:                 "Criteria-gated workflow actions for license applications",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"), command.String("log-format"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			NewValidateCommand(),
			NewEvaluateCommand(),
			NewLicenseNumberCommand(),
			NewWorkerCommand(),
		},
	}
}

func stagesFileFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "stages-file",
		Usage:   "YAML or JSON file with the stage definitions",
		Sources: cli.EnvVars("STAGES_FILE"),
	}
}

func settingsFileFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "settings-file",
		Usage:   "YAML or JSON file with payment purposes, license number formats and email templates",
		Sources: cli.EnvVars("SETTINGS_FILE"),
	}
}
