package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every typed error in this module matches exactly one of these with errors.Is.
var (
	// ErrConfiguration marks bad configuration: invalid action config, unsupported operator,
	// malformed format string. Never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransition marks a rejected stage transition. No mutation was performed.
	ErrTransition = errors.New("transition error")

	// ErrActionExecution marks a capability call that failed while executing an action.
	ErrActionExecution = errors.New("action execution error")
)

// UnsupportedOperatorError is returned when a criterion names an operator outside the known set.
type UnsupportedOperatorError struct {
	Field    string
	Operator string
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("unsupported operator %q for field %q", e.Operator, e.Field)
}

func (e *UnsupportedOperatorError) Is(target error) bool {
	return target == ErrConfiguration
}

// InvalidPatternError is returned when a regex criterion holds a pattern that does not compile.
type InvalidPatternError struct {
	Field   string
	Pattern string
	Err     error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid regex pattern %q for field %q: %v", e.Pattern, e.Field, e.Err)
}

func (e *InvalidPatternError) Unwrap() error {
	return e.Err
}

func (e *InvalidPatternError) Is(target error) bool {
	return target == ErrConfiguration
}

// ValidationError describes one problem found in an action spec.
type ValidationError struct {
	Field   string
	Message string
	// Err is the typed cause, when there is one.
	Err error
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors aggregates the problems of one invalid configuration item.
type ValidationErrors struct {
	Subject string
	Errors  []ValidationError
}

func (e *ValidationErrors) Error() string {
	messages := make([]string, 0, len(e.Errors))
	for _, validationErr := range e.Errors {
		messages = append(messages, validationErr.Error())
	}

	return fmt.Sprintf("invalid %s: %s", e.Subject, strings.Join(messages, "; "))
}

// Unwrap exposes the typed causes so errors.As can reach them.
func (e *ValidationErrors) Unwrap() []error {
	var causes []error

	for _, validationErr := range e.Errors {
		if validationErr.Err != nil {
			causes = append(causes, validationErr.Err)
		}
	}

	return causes
}

func (e *ValidationErrors) Is(target error) bool {
	return target == ErrConfiguration
}

// MalformedFormatError is returned for license number formats without a number placeholder.
type MalformedFormatError struct {
	Format string
	// Reason overrides the default missing-placeholder message.
	Reason string
}

func (e *MalformedFormatError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("license number format %q: %s", e.Format, e.Reason)
	}

	return fmt.Sprintf("license number format %q has no {number} placeholder", e.Format)
}

func (e *MalformedFormatError) Is(target error) bool {
	return target == ErrConfiguration
}

// NoMatchingFormatError is returned when no license number format matches the record.
type NoMatchingFormatError struct {
	Candidates int
}

func (e *NoMatchingFormatError) Error() string {
	return fmt.Sprintf("no license number format matched the record (%d candidates)", e.Candidates)
}

func (e *NoMatchingFormatError) Is(target error) bool {
	return target == ErrConfiguration
}

// UnknownConfigTypeError is returned when no executor is registered for an action's config type.
type UnknownConfigTypeError struct {
	ConfigType ConfigType
}

func (e *UnknownConfigTypeError) Error() string {
	return fmt.Sprintf("no executor registered for config type %q", e.ConfigType)
}

func (e *UnknownConfigTypeError) Is(target error) bool {
	return target == ErrConfiguration
}

// UnknownPaymentPurposeError is returned when payment settings hold no entry for a purpose.
type UnknownPaymentPurposeError struct {
	Purpose string
}

func (e *UnknownPaymentPurposeError) Error() string {
	return fmt.Sprintf("unknown payment purpose %q", e.Purpose)
}

func (e *UnknownPaymentPurposeError) Is(target error) bool {
	return target == ErrConfiguration
}

// UnknownStageError is returned when a transition references a stage that was never loaded.
type UnknownStageError struct {
	Stage string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage %q", e.Stage)
}

func (e *UnknownStageError) Is(target error) bool {
	return target == ErrTransition
}

// IllegalTransitionError is returned when the destination is not an allowed transition of the source stage.
type IllegalTransitionError struct {
	From string
	To   string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("transition from %q to %q is not allowed", e.From, e.To)
}

func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrTransition
}

// MissingRequiredFieldError is returned when the record lacks fields the destination stage requires.
type MissingRequiredFieldError struct {
	Stage  string
	Fields []string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("stage %q requires fields: %s", e.Stage, strings.Join(e.Fields, ", "))
}

func (e *MissingRequiredFieldError) Is(target error) bool {
	return target == ErrTransition
}

// ActionExecutionError wraps the failure of a single action's capability call.
type ActionExecutionError struct {
	ActionType string
	ConfigType ConfigType
	Index      int
	Err        error
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("action %d (%s/%s) failed: %v", e.Index, e.ActionType, e.ConfigType, e.Err)
}

func (e *ActionExecutionError) Unwrap() error {
	return e.Err
}

func (e *ActionExecutionError) Is(target error) bool {
	return target == ErrActionExecution
}

// PaymentCompletionError is the single aggregate error surfaced when a payment-completion batch is rolled back.
// Err preserves the originating failure.
type PaymentCompletionError struct {
	Purpose   string
	InvoiceID string
	Err       error
}

func (e *PaymentCompletionError) Error() string {
	return fmt.Sprintf("payment completion actions for purpose %q (invoice %q) rolled back: %v",
		e.Purpose, e.InvoiceID, e.Err)
}

func (e *PaymentCompletionError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsTransitionError reports whether err is a rejected transition.
func IsTransitionError(err error) bool {
	return errors.Is(err, ErrTransition)
}

// IsActionExecutionError reports whether err comes from a failed capability call.
func IsActionExecutionError(err error) bool {
	return errors.Is(err, ErrActionExecution)
}
