// Package criteria evaluates criterion lists against application and invoice records.
package criteria

import (
	"fmt"
	"strings"

	"github.com/dukex/regflow/pkg/models"
)

type compiledCriterion struct {
	criterion models.Criterion
	operator  models.Operator
}

// Matches reports whether record satisfies every criterion. An empty list matches.
// A criterion whose field is missing from the record does not match. Operators are
// checked before any criterion is evaluated, so an unsupported operator is reported
// even when an earlier criterion would already have failed.
func Matches(record models.Record, criteria []models.Criterion) (bool, error) {
	compiled := make([]compiledCriterion, 0, len(criteria))

	for _, criterion := range criteria {
		op, err := criterion.CanonicalOperator()
		if err != nil {
			return false, err
		}

		compiled = append(compiled, compiledCriterion{criterion: criterion, operator: op})
	}

	for _, c := range compiled {
		ok, err := evaluate(record, c)
		if err != nil {
			return false, err
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

// MatchesOne evaluates a single criterion.
func MatchesOne(record models.Record, criterion models.Criterion) (bool, error) {
	return Matches(record, []models.Criterion{criterion})
}

func evaluate(record models.Record, c compiledCriterion) (bool, error) {
	actual, ok := record.Lookup(c.criterion.Field)
	if !ok {
		return false, nil
	}

	candidates := models.ToValues([]any(c.criterion.Value))

	switch c.operator {
	case models.OperatorEquals:
		return isMember(actual, candidates), nil
	case models.OperatorNotEquals:
		return !isMember(actual, candidates), nil
	case models.OperatorGreaterThan,
		models.OperatorGreaterThanOrEqual,
		models.OperatorLessThan,
		models.OperatorLessThanOrEqual:
		return compareAny(c.operator, actual, candidates), nil
	case models.OperatorContains,
		models.OperatorNotContains,
		models.OperatorStartsWith,
		models.OperatorEndsWith:
		return matchSubstring(c.operator, actual, candidates), nil
	case models.OperatorRegex:
		return matchRegex(c.criterion.Field, actual, candidates)
	default:
		return false, &models.UnsupportedOperatorError{Field: c.criterion.Field, Operator: c.criterion.Operator}
	}
}

func isMember(actual any, candidates models.Values) bool {
	for _, candidate := range candidates {
		if strictEqual(actual, candidate) {
			return true
		}
	}

	return false
}

// compareAny is a disjunction: one candidate satisfying the comparator is enough.
// Candidates that cannot be normalized are skipped.
func compareAny(op models.Operator, actual any, candidates models.Values) bool {
	left, ok := normalizeOrdinal(actual)
	if !ok {
		return false
	}

	for _, candidate := range candidates {
		right, ok := normalizeOrdinal(candidate)
		if !ok {
			continue
		}

		if compare(op, left, right) {
			return true
		}
	}

	return false
}

func compare(op models.Operator, left, right float64) bool {
	switch op {
	case models.OperatorGreaterThan:
		return left > right
	case models.OperatorGreaterThanOrEqual:
		return left >= right
	case models.OperatorLessThan:
		return left < right
	case models.OperatorLessThanOrEqual:
		return left <= right
	default:
		return false
	}
}

// Non-string actual values fail closed for every substring operator, not_contains included.
func matchSubstring(op models.Operator, actual any, candidates models.Values) bool {
	subject, ok := actual.(string)
	if !ok {
		return false
	}

	subject = strings.ToLower(subject)

	matched := false

	for _, candidate := range candidates {
		needle, ok := scalarString(candidate)
		if !ok {
			continue
		}

		needle = strings.ToLower(needle)

		switch op {
		case models.OperatorContains, models.OperatorNotContains:
			matched = strings.Contains(subject, needle)
		case models.OperatorStartsWith:
			matched = strings.HasPrefix(subject, needle)
		case models.OperatorEndsWith:
			matched = strings.HasSuffix(subject, needle)
		}

		if matched {
			break
		}
	}

	if op == models.OperatorNotContains {
		return !matched
	}

	return matched
}

func matchRegex(field string, actual any, candidates models.Values) (bool, error) {
	subject, ok := actual.(string)
	if !ok {
		return false, nil
	}

	for _, candidate := range candidates {
		pattern, ok := candidate.(string)
		if !ok {
			continue
		}

		re, err := models.CompilePattern(pattern)
		if err != nil {
			return false, &models.InvalidPatternError{Field: field, Pattern: pattern, Err: err}
		}

		if re.MatchString(subject) {
			return true, nil
		}
	}

	return false, nil
}

func scalarString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case nil:
		return "", false
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v), true
	default:
		return "", false
	}
}
