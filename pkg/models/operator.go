package models

import "strings"

// Operator is the canonical form of a criterion comparison.
type Operator string

const (
	OperatorEquals             Operator = "equals"
	OperatorNotEquals          Operator = "not_equals"
	OperatorGreaterThan        Operator = "greater_than"
	OperatorGreaterThanOrEqual Operator = "greater_than_or_equal"
	OperatorLessThan           Operator = "less_than"
	OperatorLessThanOrEqual    Operator = "less_than_or_equal"
	OperatorContains           Operator = "contains"
	OperatorNotContains        Operator = "not_contains"
	OperatorStartsWith         Operator = "starts_with"
	OperatorEndsWith           Operator = "ends_with"
	OperatorRegex              Operator = "regex"
)

var operatorAliases = map[string]Operator{
	"equals":                OperatorEquals,
	"=":                     OperatorEquals,
	"==":                    OperatorEquals,
	"in":                    OperatorEquals,
	"not_equals":            OperatorNotEquals,
	"!=":                    OperatorNotEquals,
	"not_in":                OperatorNotEquals,
	"greater_than":          OperatorGreaterThan,
	">":                     OperatorGreaterThan,
	"greater_than_or_equal": OperatorGreaterThanOrEqual,
	">=":                    OperatorGreaterThanOrEqual,
	"less_than":             OperatorLessThan,
	"<":                     OperatorLessThan,
	"less_than_or_equal":    OperatorLessThanOrEqual,
	"<=":                    OperatorLessThanOrEqual,
	"contains":              OperatorContains,
	"not_contains":          OperatorNotContains,
	"starts_with":           OperatorStartsWith,
	"ends_with":             OperatorEndsWith,
	"regex":                 OperatorRegex,
}

// ParseOperator collapses a configured operator (any alias, any case) to its canonical form.
func ParseOperator(raw string) (Operator, bool) {
	op, ok := operatorAliases[strings.ToLower(strings.TrimSpace(raw))]

	return op, ok
}

// IsOrdering reports whether the operator compares numerically or by date.
func (o Operator) IsOrdering() bool {
	switch o {
	case OperatorGreaterThan, OperatorGreaterThanOrEqual, OperatorLessThan, OperatorLessThanOrEqual:
		return true
	default:
		return false
	}
}
