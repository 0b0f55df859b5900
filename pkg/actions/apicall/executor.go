// Package apicall performs the HTTP calls of api_call and internal_api_call actions.
package apicall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukex/regflow/pkg/models"
	"github.com/dukex/regflow/pkg/protocol"
	"github.com/dukex/regflow/pkg/template"
	"github.com/jmespath/go-jmespath"
)

// ErrUnexpectedStatus is returned for responses with a 4xx or 5xx status.
var ErrUnexpectedStatus = errors.New("unexpected response status")

type Executor struct {
	caller   protocol.HTTPCaller
	internal bool
}

func NewExecutor(caller protocol.HTTPCaller, internal bool) *Executor {
	return &Executor{caller: caller, internal: internal}
}

func (e *Executor) ConfigType() models.ConfigType {
	if e.internal {
		return models.ConfigTypeInternalAPICall
	}

	return models.ConfigTypeAPICall
}

func (e *Executor) Execute(
	ctx context.Context,
	action models.ActionSpec,
	record models.Record,
	logger *slog.Logger,
) (any, error) {
	config, ok := action.Config.(models.APICallConfig)
	if !ok {
		return nil, fmt.Errorf("expected api call config, got %T: %w", action.Config, models.ErrConfiguration)
	}

	request, err := e.buildRequest(config, record)
	if err != nil {
		return nil, err
	}

	logger.DebugContext(ctx, "calling endpoint", "method", request.Method, "endpoint", request.Endpoint)

	response, err := e.caller.Call(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", request.Method, request.Endpoint, err)
	}

	if response.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%s %s returned %d: %w", request.Method, request.Endpoint, response.StatusCode, ErrUnexpectedStatus)
	}

	return map[string]any{
		"status_code": response.StatusCode,
		"body":        response.Body,
	}, nil
}

func (e *Executor) buildRequest(config models.APICallConfig, record models.Record) (protocol.HTTPRequest, error) {
	endpoint, err := template.Render(config.Endpoint, record)
	if err != nil {
		return protocol.HTTPRequest{}, fmt.Errorf("failed to render endpoint: %w", err)
	}

	headers, err := template.RenderMap(config.Headers, record)
	if err != nil {
		return protocol.HTTPRequest{}, fmt.Errorf("failed to render header %w", err)
	}

	if config.AuthToken != "" {
		if headers == nil {
			headers = map[string]string{}
		}

		if _, exists := headers["Authorization"]; !exists {
			headers["Authorization"] = "Bearer " + config.AuthToken
		}
	}

	query, err := template.RenderMap(config.QueryParams, record)
	if err != nil {
		return protocol.HTTPRequest{}, fmt.Errorf("failed to render query parameter %w", err)
	}

	body, err := mapBody(config.BodyMapping, record)
	if err != nil {
		return protocol.HTTPRequest{}, err
	}

	return protocol.HTTPRequest{
		Method:      strings.ToUpper(config.Method),
		Endpoint:    endpoint,
		Headers:     headers,
		QueryParams: query,
		Body:        body,
		Internal:    e.internal,
	}, nil
}

// mapBody builds the request body from JMESPath expressions over the record.
// Without a mapping the whole record is sent.
func mapBody(mapping map[string]string, record models.Record) (map[string]any, error) {
	data := map[string]any(record)

	if len(mapping) == 0 {
		body := make(map[string]any, len(data))
		for k, v := range data {
			body[k] = v
		}

		return body, nil
	}

	body := make(map[string]any, len(mapping))

	for key, expression := range mapping {
		value, err := jmespath.Search(expression, data)
		if err != nil {
			return nil, fmt.Errorf("body_mapping %q: invalid expression %q: %w", key, expression, err)
		}

		body[key] = value
	}

	return body, nil
}
