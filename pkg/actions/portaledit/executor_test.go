package portaledit_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/dukex/regflow/pkg/actions/portaledit"
	"github.com/dukex/regflow/pkg/mocks"
	"github.com/dukex/regflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestExecutor_Execute_PassesConfigThrough(t *testing.T) {
	t.Parallel()

	config := map[string]any{"field": "in_good_standing", "value": true}
	record := models.Record{"id": "app-9"}

	portal := &mocks.MockPortalEditApplier{}
	portal.On("Apply", mock.Anything, config, record).Return(nil).Once()

	_, err := portaledit.NewExecutor(portal).Execute(context.Background(), models.ActionSpec{
		ConfigType: models.ConfigTypePortalEdit,
		Config:     models.PortalEditConfig{Values: config},
	}, record, slog.Default())
	require.NoError(t, err)

	portal.AssertExpectations(t)
}

func TestExecutor_Execute_Failure(t *testing.T) {
	t.Parallel()

	portal := &mocks.MockPortalEditApplier{}
	portal.On("Apply", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("portal offline"))

	_, err := portaledit.NewExecutor(portal).Execute(context.Background(), models.ActionSpec{
		ConfigType: models.ConfigTypePortalEdit,
		Config:     models.PortalEditConfig{Values: map[string]any{"field": "x"}},
	}, models.Record{}, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "portal offline")
}
