package models

import (
	"fmt"
	"regexp"
	"strconv"
)

// NumberPlaceholder matches "{number}" and "{number:N}" in a license number format.
var NumberPlaceholder = regexp.MustCompile(`\{number(?::(\d+))?\}`)

// MaxNumberWidth bounds the N of "{number:N}".
const MaxNumberWidth = 32

// NumberWidth parses the pad width of one placeholder match. Zero means no padding.
func NumberWidth(format, placeholder string) (int, error) {
	groups := NumberPlaceholder.FindStringSubmatch(placeholder)
	if len(groups) < 2 || groups[1] == "" {
		return 0, nil
	}

	width, err := strconv.Atoi(groups[1])
	if err != nil || width > MaxNumberWidth {
		return 0, &MalformedFormatError{
			Format: format,
			Reason: fmt.Sprintf("number width %s exceeds %d", groups[1], MaxNumberWidth),
		}
	}

	return width, nil
}

// LicenseNumberFormat is a criteria-selected license number template.
type LicenseNumberFormat struct {
	Criteria []Criterion `json:"criteria"     yaml:"criteria"`
	Format   string      `json:"format"       yaml:"format"`
	// SequenceKey groups formats sharing one counter. Empty means the format owns a private counter.
	SequenceKey string `json:"sequence_key" yaml:"sequence_key"`
}

// CounterKey returns the sequence counter this format draws from.
func (f LicenseNumberFormat) CounterKey() string {
	if f.SequenceKey != "" {
		return f.SequenceKey
	}

	return "format:" + f.Format
}

// Check validates the format string and its criteria.
func (f LicenseNumberFormat) Check() error {
	if !NumberPlaceholder.MatchString(f.Format) {
		return &MalformedFormatError{Format: f.Format}
	}

	for _, placeholder := range NumberPlaceholder.FindAllString(f.Format, -1) {
		if _, err := NumberWidth(f.Format, placeholder); err != nil {
			return err
		}
	}

	var errs []ValidationError

	for i, criterion := range f.Criteria {
		for _, criterionErr := range criterion.Validate() {
			criterionErr.Field = fmt.Sprintf("criteria[%d].%s", i, criterionErr.Field)
			errs = append(errs, criterionErr)
		}
	}

	if len(errs) > 0 {
		return &ValidationErrors{Subject: fmt.Sprintf("license number format %q", f.Format), Errors: errs}
	}

	return nil
}

// LicenseNumberFormatFromMap builds a format from its configuration map.
func LicenseNumberFormatFromMap(raw map[string]any) (LicenseNumberFormat, error) {
	criteria, err := CriteriaFromList(raw["criteria"])
	if err != nil {
		return LicenseNumberFormat{}, err
	}

	return LicenseNumberFormat{
		Criteria:    criteria,
		Format:      stringValue(raw, "format"),
		SequenceKey: stringValue(raw, "sequence_key"),
	}, nil
}
