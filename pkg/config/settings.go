package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dukex/regflow/pkg/models"
)

// StaticSettings serves payment purposes loaded once.
type StaticSettings map[string]models.PaymentPurpose

func (s StaticSettings) PaymentPurposes(_ context.Context) (map[string]models.PaymentPurpose, error) {
	return s, nil
}

// FileSettings serves the payment purposes of a settings file and reloads them when
// the file's modification time changes. A reload that fails keeps nothing cached.
type FileSettings struct {
	loader *Loader
	path   string

	mu       sync.Mutex
	modTime  time.Time
	purposes map[string]models.PaymentPurpose
}

func NewFileSettings(loader *Loader, path string) *FileSettings {
	return &FileSettings{loader: loader, path: path}
}

func (s *FileSettings) PaymentPurposes(_ context.Context) (map[string]models.PaymentPurpose, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat settings file %s: %w", s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.purposes != nil && info.ModTime().Equal(s.modTime) {
		return s.purposes, nil
	}

	cfg, err := s.loader.LoadFiles(s.path)
	if err != nil {
		s.purposes = nil

		return nil, err
	}

	s.purposes = cfg.PaymentPurposes
	s.modTime = info.ModTime()

	return s.purposes, nil
}
