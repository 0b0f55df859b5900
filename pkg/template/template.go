// Package template renders email subjects, bodies and request values against a record.
package template

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

var funcs = template.FuncMap{
	"now": func() string {
		return time.Now().UTC().Format(time.RFC3339)
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"default": func(fallback any, value any) any {
		if value == nil {
			return fallback
		}

		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			return fallback
		}

		return value
	},
}

// Render executes templateStr against data and returns the text output.
// Strings without an action are returned unchanged.
func Render(templateStr string, data any) (string, error) {
	if !strings.Contains(templateStr, "{{") {
		return templateStr, nil
	}

	tmpl, err := template.New("render").Funcs(funcs).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return buf.String(), nil
}

// RenderMap renders every value of values against data.
func RenderMap(values map[string]string, data any) (map[string]string, error) {
	if values == nil {
		return nil, nil
	}

	rendered := make(map[string]string, len(values))

	for key, value := range values {
		result, err := Render(value, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}

		rendered[key] = result
	}

	return rendered, nil
}
