package cmd_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dukex/regflow/pkg/cmd"
	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_RegistersEveryConfigType(t *testing.T) {
	t.Parallel()

	reg := cmd.NewRegistry(slog.Default())

	for _, configType := range []models.ConfigType{
		models.ConfigTypeEmail,
		models.ConfigTypeAdminEmail,
		models.ConfigTypeAPICall,
		models.ConfigTypeInternalAPICall,
		models.ConfigTypePayment,
		models.ConfigTypePortalEdit,
	} {
		schema, ok := reg.Schema(configType)
		assert.True(t, ok, "%s", configType)
		assert.Equal(t, "object", schema["type"])
	}
}

func TestNewEventBus(t *testing.T) {
	t.Parallel()

	bus, err := cmd.NewEventBus("gochannel", "", "regflow", slog.Default())
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	_, err = cmd.NewEventBus("kafka", "", "regflow", slog.Default())
	require.Error(t, err)

	_, err = cmd.NewEventBus("nats", "", "regflow", slog.Default())
	require.Error(t, err)
}

func TestNewPersistence_File(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	p, err := cmd.NewPersistence(context.Background(), slog.Default(), "file://"+root)
	require.NoError(t, err)
	assert.IsType(t, &file.Persistence{}, p)
	require.NoError(t, p.HealthCheck(context.Background()))

	p, err = cmd.NewPersistence(context.Background(), slog.Default(), root)
	require.NoError(t, err)
	assert.IsType(t, &file.Persistence{}, p)
}
