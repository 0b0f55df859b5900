package models

import (
	"fmt"
	"time"
)

// InvoicePurposeField is the invoice record field holding the payment purpose.
const InvoicePurposeField = "purpose"

// InvoiceIDField is the invoice record field holding the invoice identifier.
const InvoiceIDField = "invoice_id"

// PaymentPurpose is the settings entry for one payment purpose.
type PaymentPurpose struct {
	Name                      string
	Description               string
	LineItemRules             []LineItemRule
	OnPaymentCompletedActions []ActionSpec
}

// LineItemRule adds a line item to invoices of its purpose when its criteria match the record.
type LineItemRule struct {
	Name     string      `json:"name"     validate:"required"`
	Amount   float64     `json:"amount"   validate:"gte=0"`
	Currency string      `json:"currency"`
	Criteria []Criterion `json:"criteria"`
}

// LineItem is a resolved invoice line.
type LineItem struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Invoice is a created invoice awaiting payment.
type Invoice struct {
	ID        string     `json:"id"`
	Purpose   string     `json:"purpose"`
	Record    Record     `json:"record"`
	LineItems []LineItem `json:"line_items"`
	Total     float64    `json:"total"`
	Currency  string     `json:"currency"`
	CreatedAt time.Time  `json:"created_at"`
}

// InvoiceRef identifies an invoice created by a payment action.
type InvoiceRef struct {
	ID      string  `json:"id"`
	Purpose string  `json:"purpose"`
	Total   float64 `json:"total"`
}

// Check validates the purpose and every embedded action.
func (p PaymentPurpose) Check() error {
	var errs []ValidationError

	for i, rule := range p.LineItemRules {
		if rule.Name == "" {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("line_item_rules[%d].name", i), Message: "is required"})
		}

		if rule.Amount < 0 {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("line_item_rules[%d].amount", i), Message: "must not be negative"})
		}

		for j, criterion := range rule.Criteria {
			for _, criterionErr := range criterion.Validate() {
				criterionErr.Field = fmt.Sprintf("line_item_rules[%d].criteria[%d].%s", i, j, criterionErr.Field)
				errs = append(errs, criterionErr)
			}
		}
	}

	for i, action := range p.OnPaymentCompletedActions {
		for _, actionErr := range action.Validate() {
			actionErr.Field = fmt.Sprintf("on_payment_completed_actions[%d].%s", i, actionErr.Field)
			errs = append(errs, actionErr)
		}
	}

	if len(errs) == 0 {
		return nil
	}

	return &ValidationErrors{Subject: fmt.Sprintf("payment purpose %q", p.Name), Errors: errs}
}

// PaymentPurposeFromMap builds a purpose from its configuration map.
func PaymentPurposeFromMap(name string, raw map[string]any) (PaymentPurpose, error) {
	purpose := PaymentPurpose{
		Name:        name,
		Description: stringValue(raw, "description"),
	}

	if rules, ok := raw["line_item_rules"]; ok && rules != nil {
		list, ok := rules.([]any)
		if !ok {
			return PaymentPurpose{}, fmt.Errorf("purpose %q: line_item_rules must be a list: %w", name, ErrConfiguration)
		}

		for i, item := range list {
			ruleMap, ok := item.(map[string]any)
			if !ok {
				return PaymentPurpose{}, fmt.Errorf("purpose %q: line item rule %d must be an object: %w", name, i, ErrConfiguration)
			}

			criteria, err := CriteriaFromList(ruleMap["criteria"])
			if err != nil {
				return PaymentPurpose{}, fmt.Errorf("purpose %q: %w", name, err)
			}

			purpose.LineItemRules = append(purpose.LineItemRules, LineItemRule{
				Name:     stringValue(ruleMap, "name"),
				Amount:   numberValue(ruleMap["amount"]),
				Currency: stringValue(ruleMap, "currency"),
				Criteria: criteria,
			})
		}
	}

	actions, err := ActionSpecsFromList(raw["on_payment_completed_actions"])
	if err != nil {
		return PaymentPurpose{}, fmt.Errorf("purpose %q: %w", name, err)
	}

	purpose.OnPaymentCompletedActions = actions

	return purpose, nil
}

func numberValue(raw any) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
