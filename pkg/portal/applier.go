// Package portal applies portal_edit actions by posting them to the licensing
// backend's internal portal endpoint.
package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/protocol"
)

const DefaultEndpoint = "/api/portal/edits"

// ErrRejected is returned when the portal answers with a 4xx or 5xx status.
var ErrRejected = errors.New("portal edit rejected")

type HTTPApplier struct {
	caller   protocol.HTTPCaller
	endpoint string
}

func NewHTTPApplier(caller protocol.HTTPCaller, endpoint string) *HTTPApplier {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return &HTTPApplier{caller: caller, endpoint: endpoint}
}

func (a *HTTPApplier) Apply(ctx context.Context, config map[string]any, record models.Record) error {
	response, err := a.caller.Call(ctx, protocol.HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: a.endpoint,
		Body:     map[string]any{"config": config, "record": record},
		Internal: true,
	})
	if err != nil {
		return fmt.Errorf("portal edit: %w", err)
	}

	if response.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("portal edit returned %d: %w", response.StatusCode, ErrRejected)
	}

	return nil
}
