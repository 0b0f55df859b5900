package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dukex/regflow/pkg/cmd"
	"github.com/dukex/regflow/pkg/config"
	"github.com/dukex/regflow/pkg/log"
	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate stage definitions and payment settings",
		Flags: []cli.Flag{
			stagesFileFlag(),
			settingsFileFlag(),
		},
		Action: func(_ context.Context, command *cli.Command) error {
			logger := log.WithModule("regflow").With("action", "validate")

			paths := []string{command.String("stages-file"), command.String("settings-file")}
			if paths[0] == "" && paths[1] == "" {
				return errors.New("at least one of --stages-file or --settings-file is required")
			}

			loader := config.NewLoader(cmd.NewRegistry(logger), logger)

			cfg, err := loader.LoadFiles(paths...)
			if err != nil {
				return err
			}

			return report(command.Root().Writer, cfg)
		},
	}
}

func report(w io.Writer, cfg *config.Config) error {
	var stages *workflow.StageSet

	if len(cfg.Stages) > 0 {
		var err error

		stages, err = workflow.NewStageSet(cfg.Stages)
		if err != nil {
			return err
		}
	}

	// payment purposes are only checked when the settings are part of the run
	var unknown []error

	if len(cfg.PaymentPurposes) > 0 {
		for _, stage := range cfg.Stages {
			for i, action := range stage.Actions {
				paymentConfig, ok := action.Config.(models.PaymentConfig)
				if !ok {
					continue
				}

				if _, defined := cfg.PaymentPurposes[paymentConfig.PaymentPurpose]; !defined {
					unknown = append(unknown, fmt.Errorf("stage %q action %d: %w",
						stage.Name, i, &models.UnknownPaymentPurposeError{Purpose: paymentConfig.PaymentPurpose}))
				}
			}
		}
	}

	if stages != nil {
		fmt.Fprintf(w, "Stages: %d\n", len(stages.Names()))

		for _, name := range stages.Names() {
			stage, _ := stages.Stage(name)
			fmt.Fprintf(w, "  %s -> %v (%d actions)\n", name, stage.AllowedTransitions, len(stage.Actions))
		}

		fmt.Fprintf(w, "Terminal stages: %v\n", stages.Terminal())
	}

	fmt.Fprintf(w, "Payment purposes: %d\n", len(cfg.PaymentPurposes))
	fmt.Fprintf(w, "License number formats: %d\n", len(cfg.LicenseNumberFormats))
	fmt.Fprintf(w, "Email templates: %d\n", len(cfg.EmailTemplates))

	if len(unknown) > 0 {
		return errors.Join(unknown...)
	}

	fmt.Fprintln(w, "Configuration is valid")

	return nil
}
