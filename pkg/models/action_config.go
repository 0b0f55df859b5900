package models

import (
	"fmt"
	"strings"
)

// ConfigType selects the executor an action is dispatched to.
type ConfigType string

const (
	ConfigTypeEmail           ConfigType = "email"
	ConfigTypeAdminEmail      ConfigType = "admin_email"
	ConfigTypeAPICall         ConfigType = "api_call"
	ConfigTypeInternalAPICall ConfigType = "internal_api_call"
	ConfigTypePayment         ConfigType = "payment"
	ConfigTypePortalEdit      ConfigType = "portal_edit"
)

// ConfigTypes lists every known config type in declaration order.
var ConfigTypes = []ConfigType{
	ConfigTypeEmail,
	ConfigTypeAdminEmail,
	ConfigTypeAPICall,
	ConfigTypeInternalAPICall,
	ConfigTypePayment,
	ConfigTypePortalEdit,
}

// ActionConfig is the typed payload of an action. One concrete type exists per ConfigType.
type ActionConfig interface {
	ConfigType() ConfigType
	ToMap() map[string]any
}

// EmailConfig sends a templated email to the record's applicant.
type EmailConfig struct {
	Template string `json:"template" validate:"notblank"`
	Subject  string `json:"subject"  validate:"notblank"`
	// RecipientField names the record field holding the recipient address; "email" when empty.
	RecipientField string `json:"recipient_field,omitempty"`
}

func (EmailConfig) ConfigType() ConfigType { return ConfigTypeEmail }

func (c EmailConfig) ToMap() map[string]any {
	m := map[string]any{
		"template": c.Template,
		"subject":  c.Subject,
	}
	if c.RecipientField != "" {
		m["recipient_field"] = c.RecipientField
	}

	return m
}

// Recipient returns the record field holding the recipient address.
func (c EmailConfig) Recipient() string {
	if c.RecipientField == "" {
		return "email"
	}

	return c.RecipientField
}

// AdminEmailConfig notifies one or more administrators. AdminEmail may hold a comma-separated list.
type AdminEmailConfig struct {
	AdminEmail string `json:"admin_email" validate:"notblank"`
	Subject    string `json:"subject"     validate:"notblank"`
	Template   string `json:"template,omitempty"`
}

func (AdminEmailConfig) ConfigType() ConfigType { return ConfigTypeAdminEmail }

func (c AdminEmailConfig) ToMap() map[string]any {
	m := map[string]any{
		"admin_email": c.AdminEmail,
		"subject":     c.Subject,
	}
	if c.Template != "" {
		m["template"] = c.Template
	}

	return m
}

// Recipients splits AdminEmail into individual addresses.
func (c AdminEmailConfig) Recipients() []string {
	parts := strings.Split(c.AdminEmail, ",")
	recipients := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}

	return recipients
}

// APICallConfig calls an HTTP endpoint. Internal marks internal_api_call actions.
type APICallConfig struct {
	Internal    bool              `json:"-"`
	Endpoint    string            `json:"endpoint"               validate:"notblank"`
	Method      string            `json:"method"                 validate:"notblank"`
	AuthToken   string            `json:"auth_token,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	BodyMapping map[string]string `json:"body_mapping,omitempty"`
	QueryParams map[string]string `json:"query_params,omitempty"`
}

func (c APICallConfig) ConfigType() ConfigType {
	if c.Internal {
		return ConfigTypeInternalAPICall
	}

	return ConfigTypeAPICall
}

func (c APICallConfig) ToMap() map[string]any {
	m := map[string]any{
		"endpoint": c.Endpoint,
		"method":   c.Method,
	}
	if c.AuthToken != "" {
		m["auth_token"] = c.AuthToken
	}

	if c.Headers != nil {
		m["headers"] = stringMapToAny(c.Headers)
	}

	if c.BodyMapping != nil {
		m["body_mapping"] = stringMapToAny(c.BodyMapping)
	}

	if c.QueryParams != nil {
		m["query_params"] = stringMapToAny(c.QueryParams)
	}

	return m
}

// PaymentConfig creates an invoice for a payment purpose.
type PaymentConfig struct {
	PaymentPurpose string `json:"payment_purpose" validate:"notblank"`
}

func (PaymentConfig) ConfigType() ConfigType { return ConfigTypePayment }

func (c PaymentConfig) ToMap() map[string]any {
	return map[string]any{"payment_purpose": c.PaymentPurpose}
}

// PortalEditConfig is passed through to the portal edit applier untouched.
type PortalEditConfig struct {
	Values map[string]any `json:"values" validate:"required,min=1"`
}

func (PortalEditConfig) ConfigType() ConfigType { return ConfigTypePortalEdit }

func (c PortalEditConfig) ToMap() map[string]any {
	m := make(map[string]any, len(c.Values))
	for k, v := range c.Values {
		m[k] = v
	}

	return m
}

// ActionConfigFromMap builds the typed config for configType from its configuration map.
func ActionConfigFromMap(configType ConfigType, raw map[string]any) (ActionConfig, error) {
	switch configType {
	case ConfigTypeEmail:
		return EmailConfig{
			Template:       stringValue(raw, "template"),
			Subject:        stringValue(raw, "subject"),
			RecipientField: stringValue(raw, "recipient_field"),
		}, nil
	case ConfigTypeAdminEmail:
		return AdminEmailConfig{
			AdminEmail: stringValue(raw, "admin_email"),
			Subject:    stringValue(raw, "subject"),
			Template:   stringValue(raw, "template"),
		}, nil
	case ConfigTypeAPICall, ConfigTypeInternalAPICall:
		return APICallConfig{
			Internal:    configType == ConfigTypeInternalAPICall,
			Endpoint:    stringValue(raw, "endpoint"),
			Method:      stringValue(raw, "method"),
			AuthToken:   stringValue(raw, "auth_token"),
			Headers:     stringMapValue(raw, "headers"),
			BodyMapping: stringMapValue(raw, "body_mapping"),
			QueryParams: stringMapValue(raw, "query_params"),
		}, nil
	case ConfigTypePayment:
		return PaymentConfig{PaymentPurpose: stringValue(raw, "payment_purpose")}, nil
	case ConfigTypePortalEdit:
		values := make(map[string]any, len(raw))
		for k, v := range raw {
			values[k] = v
		}

		return PortalEditConfig{Values: values}, nil
	default:
		return nil, &UnknownConfigTypeError{ConfigType: configType}
	}
}

func stringValue(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func stringMapValue(raw map[string]any, key string) map[string]string {
	source, ok := raw[key].(map[string]any)
	if !ok {
		return nil
	}

	result := make(map[string]string, len(source))
	for k, v := range source {
		if s, ok := v.(string); ok {
			result[k] = s
		} else {
			result[k] = fmt.Sprint(v)
		}
	}

	return result
}

func stringMapToAny(source map[string]string) map[string]any {
	result := make(map[string]any, len(source))
	for k, v := range source {
		result[k] = v
	}

	return result
}
