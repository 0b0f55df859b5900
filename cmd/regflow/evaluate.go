package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dukex/regflow/pkg/criteria"
	"github.com/dukex/regflow/pkg/models"
	cli "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func NewEvaluateCommand() *cli.Command {
	return &cli.Command{
		Name:  "evaluate",
		Usage: "Evaluate a criterion list against a record",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "criteria",
				Usage:    "Criterion list as JSON or YAML, or @path to read it from a file",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "record",
				Usage:    "Record as a JSON object, or @path to read it from a file",
				Required: true,
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			criteriaList, err := parseCriteria(command.String("criteria"))
			if err != nil {
				return err
			}

			record, err := parseRecord(command.String("record"))
			if err != nil {
				return err
			}

			w := command.Root().Writer

			for _, criterion := range criteriaList {
				matched, err := criteria.MatchesOne(record, criterion)
				if err != nil {
					return err
				}

				fmt.Fprintf(w, "%s %s %v: %t\n", criterion.Field, criterion.Operator, []any(criterion.Value), matched)
			}

			matched, err := criteria.Matches(record, criteriaList)
			if err != nil {
				return err
			}

			if matched {
				fmt.Fprintln(w, "MATCH")
			} else {
				fmt.Fprintln(w, "NO MATCH")
			}

			return nil
		},
	}
}

// readArgument returns the content of the file named after a leading "@", or the value itself.
func readArgument(value string) ([]byte, error) {
	if len(value) > 1 && value[0] == '@' {
		data, err := os.ReadFile(value[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", value[1:], err)
		}

		return data, nil
	}

	return []byte(value), nil
}

func parseCriteria(value string) ([]models.Criterion, error) {
	data, err := readArgument(value)
	if err != nil {
		return nil, err
	}

	var criteriaList []models.Criterion
	if err := yaml.Unmarshal(data, &criteriaList); err != nil {
		return nil, fmt.Errorf("failed to parse criteria: %v: %w", err, models.ErrConfiguration)
	}

	invalid := &models.ValidationErrors{Subject: "criteria"}

	for i, criterion := range criteriaList {
		for _, validationErr := range criterion.Validate() {
			validationErr.Field = fmt.Sprintf("criteria[%d].%s", i, validationErr.Field)
			invalid.Errors = append(invalid.Errors, validationErr)
		}
	}

	if len(invalid.Errors) > 0 {
		return nil, invalid
	}

	return criteriaList, nil
}

// parseRecord decodes a JSON (or YAML) object. Dates stay strings and are normalized
// by the evaluator.
func parseRecord(value string) (models.Record, error) {
	data, err := readArgument(value)
	if err != nil {
		return nil, err
	}

	var record models.Record
	if err := yaml.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}

	if record == nil {
		return nil, errors.New("record must be an object")
	}

	return record, nil
}
