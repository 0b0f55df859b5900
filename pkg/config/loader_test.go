package config_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/regflow/pkg/cmd"
	"github.com/dukex/regflow/pkg/config"
	"github.com/dukex/regflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stagesYAML = `
stages:
  - name: Submitted
    allowed_transitions: [Pending Payment, Rejected]
  - name: Pending Payment
    allowed_transitions: [Approved]
    actions:
      - type: Invoice
        config_type: payment
        config:
          payment_purpose: registration
  - name: Approved
    required_fields: [license_number]
    actions:
      - type: Approval email
        config_type: email
        config:
          template: approved
          subject: "License {{ .license_number }} issued"
        criteria:
          - field: category
            operator: in
            value: [doctor, dentist]
      - type: Sync CPD
        config_type: internal_api_call
        config:
          endpoint: /api/cpd/sync
          method: POST
  - name: Rejected
`

const settingsJSON = `{
  "payment_purposes": {
    "registration": {
      "line_item_rules": [
        {"name": "Registration fee", "amount": 300},
        {"name": "Specialist fee", "amount": 150, "criteria": [{"field": "specialist", "operator": "=", "value": true}]}
      ]
    },
    "renewal": {
      "line_item_rules": [{"name": "Renewal fee", "amount": 450}],
      "on_payment_completed_actions": [
        {"type": "Renew", "config_type": "portal_edit", "config": {"field": "renewed", "value": true}, "criteria": []}
      ]
    }
  },
  "license_number_formats": [
    {"format": "MDC/PN/{number:5}", "sequence_key": "practitioners", "criteria": [{"field": "category", "operator": "=", "value": "doctor"}]},
    {"format": "GEN/{number}"}
  ],
  "email_templates": {"approved": "Dear {{ .name }}, your license is ready."}
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func newLoader() *config.Loader {
	return config.NewLoader(cmd.NewRegistry(slog.Default()), slog.Default())
}

func TestLoader_LoadFiles(t *testing.T) {
	t.Parallel()

	cfg, err := newLoader().LoadFiles(
		writeFile(t, "stages.yaml", stagesYAML),
		writeFile(t, "settings.json", settingsJSON),
	)
	require.NoError(t, err)

	require.Len(t, cfg.Stages, 4)
	assert.Equal(t, []string{"Pending Payment", "Rejected"}, cfg.Stages[0].AllowedTransitions)
	assert.True(t, cfg.Stages[3].IsTerminal())

	approved := cfg.Stages[2]
	require.Len(t, approved.Actions, 2)
	assert.Equal(t, models.Values{"doctor", "dentist"}, approved.Actions[0].Criteria[0].Value)
	assert.Equal(t, models.APICallConfig{Internal: true, Endpoint: "/api/cpd/sync", Method: "POST"}, approved.Actions[1].Config)

	require.Contains(t, cfg.PaymentPurposes, "renewal")
	assert.Len(t, cfg.PaymentPurposes["renewal"].OnPaymentCompletedActions, 1)
	assert.Len(t, cfg.PaymentPurposes["registration"].LineItemRules, 2)

	require.Len(t, cfg.LicenseNumberFormats, 2)
	assert.Equal(t, "practitioners", cfg.LicenseNumberFormats[0].SequenceKey)
	assert.Equal(t, "Dear {{ .name }}, your license is ready.", cfg.EmailTemplates["approved"])
}

func TestLoader_Parse_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		document      string
		expectedField string
	}{
		{
			name: "email action without subject",
			document: `
stages:
  - name: Approved
    actions:
      - config_type: email
        config: {template: approved}
`,
			expectedField: "stages.0.actions.0.config",
		},
		{
			name: "api call with unknown config key",
			document: `
stages:
  - name: Approved
    actions:
      - config_type: api_call
        config: {endpoint: "https://cpd.example.org", method: POST, retries: 3}
`,
			expectedField: "stages.0.actions.0.config",
		},
		{
			name: "unknown config type",
			document: `
stages:
  - name: Approved
    actions:
      - config_type: sms
        config: {to: x}
`,
			expectedField: "stages.0.actions.0.config_type",
		},
		{
			name: "format without placeholder",
			document: `
license_number_formats:
  - format: MDC/PN/
`,
			expectedField: "license_number_formats.0.format",
		},
		{
			name:          "unknown section",
			document:      `workflows: []`,
			expectedField: "(root)",
		},
		{
			name: "payment completion action without purpose",
			document: `
payment_purposes:
  renewal:
    on_payment_completed_actions:
      - config_type: payment
        config: {}
`,
			expectedField: "payment_purposes.renewal.on_payment_completed_actions.0.config",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := newLoader().Parse("test.yaml", []byte(testCase.document))
			require.Error(t, err)
			assert.True(t, models.IsConfigurationError(err))

			var validationErrs *models.ValidationErrors
			require.ErrorAs(t, err, &validationErrs)

			fields := make([]string, 0, len(validationErrs.Errors))
			for _, validationErr := range validationErrs.Errors {
				fields = append(fields, validationErr.Field)
			}

			assert.Contains(t, fields, testCase.expectedField)
		})
	}
}

func TestLoader_Parse_TypedValidationWithoutSchemas(t *testing.T) {
	t.Parallel()

	loader := config.NewLoader(nil, slog.Default())

	_, err := loader.Parse("stages.yaml", []byte(`
stages:
  - name: Approved
    actions:
      - config_type: email
        config: {template: approved}
`))
	require.Error(t, err)

	var validationErrs *models.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
	assert.Equal(t, "actions[0].config.subject", validationErrs.Errors[0].Field)
}

func TestLoader_Parse_RejectsInvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := newLoader().Parse("stages.yaml", []byte(`
stages:
  - name: Renewed
    actions:
      - config_type: payment
        config: {payment_purpose: renewal}
      - config_type: email
        config: {template: receipt, subject: Receipt}
        criteria:
          - {field: license, operator: regex, value: "(unclosed"}
`))
	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))

	var invalidPattern *models.InvalidPatternError
	require.ErrorAs(t, err, &invalidPattern)
	assert.Equal(t, "(unclosed", invalidPattern.Pattern)

	var validationErrs *models.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
	assert.Equal(t, "actions[1].criteria[0].value", validationErrs.Errors[0].Field)
}

func TestLoader_Parse_InvalidSyntax(t *testing.T) {
	t.Parallel()

	_, err := newLoader().Parse("broken.yaml", []byte("stages: [\n"))
	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
}

func TestLoader_LoadFiles_DuplicatePurpose(t *testing.T) {
	t.Parallel()

	settings := writeFile(t, "settings.json", settingsJSON)

	_, err := newLoader().LoadFiles(settings, settings)
	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
}

func TestFileSettings_ReloadsOnChange(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "settings.yaml", `
payment_purposes:
  renewal:
    line_item_rules: [{name: Renewal fee, amount: 450}]
`)

	settings := config.NewFileSettings(newLoader(), path)

	purposes, err := settings.PaymentPurposes(context.Background())
	require.NoError(t, err)
	assert.Contains(t, purposes, "renewal")
	assert.NotContains(t, purposes, "exam")

	require.NoError(t, os.WriteFile(path, []byte(`
payment_purposes:
  renewal:
    line_item_rules: [{name: Renewal fee, amount: 450}]
  exam:
    line_item_rules: [{name: Exam fee, amount: 200}]
`), 0600))

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	purposes, err = settings.PaymentPurposes(context.Background())
	require.NoError(t, err)
	assert.Contains(t, purposes, "exam")
}

func TestStaticSettings(t *testing.T) {
	t.Parallel()

	settings := config.StaticSettings{"renewal": {Name: "renewal"}}

	purposes, err := settings.PaymentPurposes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "renewal", purposes["renewal"].Name)
}
