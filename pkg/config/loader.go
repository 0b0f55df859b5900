// Package config loads stage definitions, payment settings, license number formats and
// email templates from YAML or JSON files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/dukex/regflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// SchemaSource returns the config schema of an action config type.
type SchemaSource interface {
	Schema(configType models.ConfigType) (map[string]any, bool)
}

// Config is the merged content of one or more configuration files.
type Config struct {
	Stages               []models.StageDefinition
	PaymentPurposes      map[string]models.PaymentPurpose
	LicenseNumberFormats []models.LicenseNumberFormat
	EmailTemplates       map[string]string
}

type Loader struct {
	schemas SchemaSource
	logger  *slog.Logger
}

// NewLoader returns a loader checking action configs against schemas. A nil
// SchemaSource skips that check; the typed validation still runs.
func NewLoader(schemas SchemaSource, logger *slog.Logger) *Loader {
	return &Loader{schemas: schemas, logger: logger.With("module", "config_loader")}
}

// LoadFiles loads and merges every file. Loading fails as a whole when any file,
// stage, purpose, format or embedded action is invalid.
func (l *Loader) LoadFiles(paths ...string) (*Config, error) {
	merged := &Config{
		PaymentPurposes: make(map[string]models.PaymentPurpose),
		EmailTemplates:  make(map[string]string),
	}

	for _, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		cfg, err := l.Parse(path, data)
		if err != nil {
			return nil, err
		}

		if err := merged.merge(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		l.logger.Info("configuration loaded",
			"file", path,
			"stages", len(cfg.Stages),
			"payment_purposes", len(cfg.PaymentPurposes),
			"license_number_formats", len(cfg.LicenseNumberFormats),
		)
	}

	return merged, nil
}

// Parse decodes one YAML or JSON document named name.
func (l *Loader) Parse(name string, data []byte) (*Config, error) {
	var document map[string]any

	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %v: %w", name, err, models.ErrConfiguration)
	}

	if document == nil {
		document = map[string]any{}
	}

	if err := validateSchema(name, documentSchema(), document, ""); err != nil {
		return nil, err
	}

	if err := l.validateActionConfigs(name, document); err != nil {
		return nil, err
	}

	cfg, err := decode(document)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return cfg, nil
}

// Check validates every stage, purpose and format. All failures are reported together.
func (c *Config) Check() error {
	var errs []error

	for _, stage := range c.Stages {
		errs = append(errs, stage.Check())
	}

	for _, name := range sortedKeys(c.PaymentPurposes) {
		errs = append(errs, c.PaymentPurposes[name].Check())
	}

	for _, format := range c.LicenseNumberFormats {
		errs = append(errs, format.Check())
	}

	return errors.Join(errs...)
}

func (c *Config) merge(other *Config) error {
	c.Stages = append(c.Stages, other.Stages...)
	c.LicenseNumberFormats = append(c.LicenseNumberFormats, other.LicenseNumberFormats...)

	for name, purpose := range other.PaymentPurposes {
		if _, exists := c.PaymentPurposes[name]; exists {
			return fmt.Errorf("payment purpose %q is defined twice: %w", name, models.ErrConfiguration)
		}

		c.PaymentPurposes[name] = purpose
	}

	for name, body := range other.EmailTemplates {
		c.EmailTemplates[name] = body
	}

	return nil
}

func (l *Loader) validateActionConfigs(name string, document map[string]any) error {
	if l.schemas == nil {
		return nil
	}

	var errs []error

	check := func(path string, actions any) {
		list, _ := actions.([]any)
		for i, item := range list {
			action, _ := item.(map[string]any)
			configType, _ := action["config_type"].(string)

			schema, ok := l.schemas.Schema(models.ConfigType(configType))
			if !ok {
				continue
			}

			errs = append(errs, validateSchema(name, schema, action["config"], fmt.Sprintf("%s.%d.config.", path, i)))
		}
	}

	stages, _ := document["stages"].([]any)
	for i, item := range stages {
		stage, _ := item.(map[string]any)
		check(fmt.Sprintf("stages.%d.actions", i), stage["actions"])
	}

	purposes, _ := document["payment_purposes"].(map[string]any)
	for _, purposeName := range sortedKeys(purposes) {
		purpose, _ := purposes[purposeName].(map[string]any)
		check(fmt.Sprintf("payment_purposes.%s.on_payment_completed_actions", purposeName), purpose["on_payment_completed_actions"])
	}

	return errors.Join(errs...)
}

func validateSchema(name string, schema map[string]any, data any, prefix string) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("failed to validate %s: %v: %w", name, err, models.ErrConfiguration)
	}

	if result.Valid() {
		return nil
	}

	validationErrs := &models.ValidationErrors{Subject: name}

	for _, resultErr := range result.Errors() {
		field := resultErr.Field()
		switch {
		case prefix == "":
		case field == "(root)":
			field = strings.TrimSuffix(prefix, ".")
		default:
			field = prefix + field
		}

		validationErrs.Errors = append(validationErrs.Errors, models.ValidationError{
			Field:   field,
			Message: resultErr.Description(),
		})
	}

	return validationErrs
}

func decode(document map[string]any) (*Config, error) {
	cfg := &Config{
		PaymentPurposes: make(map[string]models.PaymentPurpose),
		EmailTemplates:  make(map[string]string),
	}

	stages, _ := document["stages"].([]any)
	for _, item := range stages {
		stage, err := models.StageDefinitionFromMap(item.(map[string]any))
		if err != nil {
			return nil, err
		}

		cfg.Stages = append(cfg.Stages, stage)
	}

	purposes, _ := document["payment_purposes"].(map[string]any)
	for name, item := range purposes {
		raw, _ := item.(map[string]any)

		purpose, err := models.PaymentPurposeFromMap(name, raw)
		if err != nil {
			return nil, err
		}

		cfg.PaymentPurposes[name] = purpose
	}

	formats, _ := document["license_number_formats"].([]any)
	for _, item := range formats {
		format, err := models.LicenseNumberFormatFromMap(item.(map[string]any))
		if err != nil {
			return nil, err
		}

		cfg.LicenseNumberFormats = append(cfg.LicenseNumberFormats, format)
	}

	templates, _ := document["email_templates"].(map[string]any)
	for name, body := range templates {
		cfg.EmailTemplates[name], _ = body.(string)
	}

	return cfg, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
