package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/regflow/pkg/metrics"
	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/otelhelper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStages = `
stages:
  - name: Submitted
    allowed_transitions: [Pending Payment]
  - name: Pending Payment
    allowed_transitions: [Approved]
    actions:
      - type: Invoice
        config_type: payment
        config: {payment_purpose: registration}
  - name: Approved
    actions:
      - type: Approval email
        config_type: email
        config: {template: approved, subject: Approved}
`

const testSettings = `
payment_purposes:
  registration:
    line_item_rules:
      - {name: Registration fee, amount: 300}
    on_payment_completed_actions:
      - type: Notify registrar
        config_type: admin_email
        config: {admin_email: registrar@mdc.gov, subject: Paid}
license_number_formats:
  - format: "MDC/PN/{number:5}"
    sequence_key: doctors
    criteria:
      - {field: category, operator: "=", value: doctor}
email_templates:
  approved: "Welcome {{ .name }}"
`

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	app := NewApp()
	app.Writer = &out

	err := app.Run(context.Background(), append([]string{"regflow"}, args...))

	return out.String(), err
}

func TestEvaluateCommand(t *testing.T) {
	t.Parallel()

	out, err := run(t, "evaluate",
		"--criteria", `[{"field": "cpd_total", "operator": ">=", "value": 20}]`,
		"--record", `{"cpd_total": 25}`,
	)
	require.NoError(t, err)
	assert.Equal(t, "cpd_total >= [20]: true\nMATCH\n", out)

	out, err = run(t, "evaluate",
		"--criteria", "[{field: category, operator: in, value: [nurse, midwife]}]",
		"--record", "@"+writeTestFile(t, "record.json", `{"category": "doctor"}`),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "NO MATCH")
}

func TestEvaluateCommand_InvalidCriteria(t *testing.T) {
	t.Parallel()

	_, err := run(t, "evaluate",
		"--criteria", `[{"field": "cpd_total", "operator": "between", "value": [1, 2]}]`,
		"--record", `{"cpd_total": 25}`,
	)
	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
}

func TestValidateCommand(t *testing.T) {
	t.Parallel()

	out, err := run(t, "validate",
		"--stages-file", writeTestFile(t, "stages.yaml", testStages),
		"--settings-file", writeTestFile(t, "settings.yaml", testSettings),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Stages: 3")
	assert.Contains(t, out, "Terminal stages: [Approved]")
	assert.Contains(t, out, "Configuration is valid")
}

func TestValidateCommand_UnknownPaymentPurpose(t *testing.T) {
	t.Parallel()

	settings := writeTestFile(t, "settings.yaml", `
payment_purposes:
  renewal:
    line_item_rules: [{name: Renewal fee, amount: 450}]
`)

	_, err := run(t, "validate",
		"--stages-file", writeTestFile(t, "stages.yaml", testStages),
		"--settings-file", settings,
	)
	require.Error(t, err)

	var unknown *models.UnknownPaymentPurposeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "registration", unknown.Purpose)
}

func TestLicenseNumberCommand_MemorySequence(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("DATABASE_URL", "")

	out, err := run(t, "license-number",
		"--settings-file", writeTestFile(t, "settings.yaml", testSettings),
		"--record", `{"category": "doctor"}`,
	)
	require.NoError(t, err)
	assert.Equal(t, "MDC/PN/00001\n", out)

	_, err = run(t, "license-number",
		"--settings-file", writeTestFile(t, "settings.yaml", testSettings),
		"--record", `{"category": "nurse"}`,
	)

	var noMatch *models.NoMatchingFormatError
	require.ErrorAs(t, err, &noMatch)
}

func TestLicenseNumberCommand_DatabaseSequence(t *testing.T) {
	t.Setenv("REDIS_URL", "")

	settings := writeTestFile(t, "settings.yaml", testSettings)
	dataDir := t.TempDir()

	for _, expected := range []string{"MDC/PN/00001\n", "MDC/PN/00002\n"} {
		out, err := run(t, "license-number",
			"--settings-file", settings,
			"--database-url", dataDir,
			"--record", `{"category": "doctor"}`,
		)
		require.NoError(t, err)
		assert.Equal(t, expected, out)
	}
}

func TestBuildWorker(t *testing.T) {
	t.Parallel()

	engine, bus, closeAll, err := buildWorker(context.Background(), slog.Default(), workerSettings{
		databaseURL:  t.TempDir(),
		eventBus:     "gochannel",
		stagesFile:   writeTestFile(t, "stages.yaml", testStages),
		settingsFile: writeTestFile(t, "settings.yaml", testSettings),
	}, otelhelper.NoopTracer(), metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)
	require.NotNil(t, engine)
	require.NotNil(t, bus)

	require.NoError(t, engine.Subscribe(bus))

	closeAll()
}

func TestBuildWorker_RequiresSettings(t *testing.T) {
	t.Parallel()

	_, _, _, err := buildWorker(context.Background(), slog.Default(), workerSettings{
		databaseURL: t.TempDir(),
		eventBus:    "gochannel",
	}, otelhelper.NoopTracer(), nil)
	require.Error(t, err)
}
