package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const sequencesFile = "license_sequences.json"

// SequenceRepository keeps every counter in one JSON object.
type SequenceRepository struct {
	store *Persistence
}

func (r *SequenceRepository) Next(ctx context.Context, key string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	counters := make(map[string]int64)

	body, err := r.store.read(ctx, sequencesFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, err
	}

	if err == nil {
		if err := json.Unmarshal(body, &counters); err != nil {
			return 0, fmt.Errorf("failed to unmarshal sequences: %w", err)
		}
	}

	counters[key]++

	data, err := json.MarshalIndent(counters, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal sequences: %w", err)
	}

	if err := r.store.write(ctx, sequencesFile, data); err != nil {
		return 0, fmt.Errorf("failed to advance sequence %q: %w", key, err)
	}

	return counters[key], nil
}
