// Package licensenumber selects a license number format by criteria and fills in the
// sequence value.
package licensenumber

import (
	"fmt"
	"strconv"

	"github.com/dukex/regflow/pkg/criteria"
	"github.com/dukex/regflow/pkg/models"
)

// Select returns the first format, in configured order, whose criteria match record.
func Select(formats []models.LicenseNumberFormat, record models.Record) (models.LicenseNumberFormat, error) {
	for i, format := range formats {
		matched, err := criteria.Matches(record, format.Criteria)
		if err != nil {
			return models.LicenseNumberFormat{}, fmt.Errorf("license number format %d: %w", i, err)
		}

		if matched {
			return format, nil
		}
	}

	return models.LicenseNumberFormat{}, &models.NoMatchingFormatError{Candidates: len(formats)}
}

// Format substitutes next into every number placeholder of format. "{number:5}" pads to
// five digits, "{number}" writes the raw integer. Values wider than the pad are kept whole.
// Widths above models.MaxNumberWidth are rejected.
func Format(format string, next int64) (string, error) {
	if !models.NumberPlaceholder.MatchString(format) {
		return "", &models.MalformedFormatError{Format: format}
	}

	var formatErr error

	out := models.NumberPlaceholder.ReplaceAllStringFunc(format, func(placeholder string) string {
		width, err := models.NumberWidth(format, placeholder)
		if err != nil {
			formatErr = err

			return placeholder
		}

		if width == 0 {
			return strconv.FormatInt(next, 10)
		}

		return fmt.Sprintf("%0*d", width, next)
	})
	if formatErr != nil {
		return "", formatErr
	}

	return out, nil
}

// Generate picks the first matching format and formats next with it.
func Generate(formats []models.LicenseNumberFormat, record models.Record, next int64) (string, error) {
	format, err := Select(formats, record)
	if err != nil {
		return "", err
	}

	return Format(format.Format, next)
}
