package workflow

import (
	"fmt"

	"github.com/dukex/regflow/pkg/models"
)

// StageSet is a validated, read-only collection of stage definitions.
type StageSet struct {
	stages map[string]models.StageDefinition
	order  []string
}

// NewStageSet validates every stage and its actions, rejects duplicate names and
// rejects transitions to stages that are not part of the set.
func NewStageSet(stages []models.StageDefinition) (*StageSet, error) {
	set := &StageSet{
		stages: make(map[string]models.StageDefinition, len(stages)),
		order:  make([]string, 0, len(stages)),
	}

	for _, stage := range stages {
		if err := stage.Check(); err != nil {
			return nil, err
		}

		if _, exists := set.stages[stage.Name]; exists {
			return nil, fmt.Errorf("duplicate stage %q: %w", stage.Name, models.ErrConfiguration)
		}

		set.stages[stage.Name] = stage
		set.order = append(set.order, stage.Name)
	}

	for _, name := range set.order {
		for _, target := range set.stages[name].AllowedTransitions {
			if _, exists := set.stages[target]; !exists {
				return nil, fmt.Errorf("stage %q allows transition to undeclared stage %q: %w",
					name, target, models.ErrConfiguration)
			}
		}
	}

	return set, nil
}

// StageSetFromList builds a stage set from configuration data.
func StageSetFromList(raw []any) (*StageSet, error) {
	stages := make([]models.StageDefinition, 0, len(raw))

	for i, item := range raw {
		stageMap, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("stage %d must be an object: %w", i, models.ErrConfiguration)
		}

		stage, err := models.StageDefinitionFromMap(stageMap)
		if err != nil {
			return nil, err
		}

		stages = append(stages, stage)
	}

	return NewStageSet(stages)
}

func (s *StageSet) Stage(name string) (models.StageDefinition, bool) {
	stage, ok := s.stages[name]

	return stage, ok
}

// Names returns stage names in configuration order.
func (s *StageSet) Names() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)

	return names
}

// Terminal returns the names of stages without allowed transitions.
func (s *StageSet) Terminal() []string {
	var terminal []string

	for _, name := range s.order {
		if s.stages[name].IsTerminal() {
			terminal = append(terminal, name)
		}
	}

	return terminal
}
