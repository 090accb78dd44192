package errors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory groups errors by the layer they come from
type ErrorCategory string

const (
	CategoryInput         ErrorCategory = "input"
	CategoryParse         ErrorCategory = "parse"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryStorage       ErrorCategory = "storage"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode identifies a specific failure within a category
type ErrorCode string

const (
	// Input errors
	CodeFileNotFound      ErrorCode = "file_not_found"
	CodeFilePermission    ErrorCode = "file_permission"
	CodeUnsupportedFormat ErrorCode = "unsupported_format"
	CodeEmptyInput        ErrorCode = "empty_input"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeInvalidData   ErrorCode = "invalid_data"
	CodeEncodingError ErrorCode = "encoding_error"

	// Validation errors
	CodeInvalidAmount  ErrorCode = "invalid_amount"
	CodeInvalidDate    ErrorCode = "invalid_date"
	CodeMissingField   ErrorCode = "missing_field"
	CodeOutOfRange     ErrorCode = "out_of_range"
	CodeInvalidPattern ErrorCode = "invalid_pattern"

	// Configuration errors
	CodeInvalidConfig  ErrorCode = "invalid_config"
	CodeMissingConfig  ErrorCode = "missing_config"
	CodeConfigConflict ErrorCode = "config_conflict"

	// Storage errors
	CodeNotFound           ErrorCode = "not_found"
	CodeAlreadyExists      ErrorCode = "already_exists"
	CodeStorageUnavailable ErrorCode = "storage_unavailable"
	CodeQueryFailed        ErrorCode = "query_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
	CodeCancelled       ErrorCode = "cancelled"
)

// TrackerError is the error type returned by every I/O layer of the tracker
type TrackerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context carries key/value details about the failure
type Context map[string]interface{}

// Error implements the error interface
func (e *TrackerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *TrackerError) Unwrap() error {
	return e.Cause
}

// GetExitCode maps the category to a process exit code
func (e *TrackerError) GetExitCode() int {
	switch e.Category {
	case CategoryInput:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryStorage:
		return 5
	case CategoryInternal:
		return 6
	default:
		return 1
	}
}

// HTTPStatus maps the error to a response status
func (e *TrackerError) HTTPStatus() int {
	switch {
	case e.Code == CodeNotFound:
		return http.StatusNotFound
	case e.Code == CodeAlreadyExists:
		return http.StatusConflict
	case e.Category == CategoryParse || e.Category == CategoryValidation || e.Category == CategoryInput:
		return http.StatusBadRequest
	case e.Code == CodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithContext adds a context value
func (e *TrackerError) WithContext(key string, value interface{}) *TrackerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion sets the suggestion shown to the user
func (e *TrackerError) WithSuggestion(suggestion string) *TrackerError {
	e.Suggestion = suggestion
	return e
}

// New creates a TrackerError with a captured stack
func New(category ErrorCategory, code ErrorCode, message string) *TrackerError {
	return &TrackerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps err with tracker context. A nil err yields nil.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *TrackerError {
	if err == nil {
		return nil
	}

	return &TrackerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func build(category ErrorCategory, code ErrorCode, message string, err error) *TrackerError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// InputError reports a message source that cannot be opened or read
func InputError(code ErrorCode, path string, err error) *TrackerError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("input not found: %s", path)
		suggestion = "check the path to the SMS export"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied reading: %s", path)
		suggestion = "check the file permissions"
	case CodeUnsupportedFormat:
		message = fmt.Sprintf("unsupported input format: %s", path)
		suggestion = "use an SMS Backup & Restore XML file or a CSV with sender,body,received_at columns"
	case CodeEmptyInput:
		message = fmt.Sprintf("input contains no messages: %s", path)
		suggestion = "check the export finished and the filters are not too narrow"
	default:
		message = fmt.Sprintf("input error: %s", path)
		suggestion = "check the input and try again"
	}

	return build(CategoryInput, code, message, err).
		WithSuggestion(suggestion).
		WithContext("path", path)
}

// ParseError reports a record of a source that could not be decoded
func ParseError(code ErrorCode, source string, record int, field string, value string, err error) *TrackerError {
	var message, suggestion string

	switch code {
	case CodeInvalidFormat:
		message = fmt.Sprintf("invalid format in %s at record %d, field '%s': '%s'", source, record, field, value)
		suggestion = "check the record matches the expected layout"
	case CodeMissingColumn:
		message = fmt.Sprintf("missing required column '%s' in %s", field, source)
		suggestion = "add the column to the header row"
	case CodeInvalidData:
		message = fmt.Sprintf("invalid data in %s at record %d, field '%s': '%s'", source, record, field, value)
		suggestion = "correct or remove the record"
	case CodeEncodingError:
		message = fmt.Sprintf("encoding error in %s at record %d", source, record)
		suggestion = "save the export as UTF-8"
	default:
		message = fmt.Sprintf("parse error in %s at record %d", source, record)
		suggestion = "check the file format"
	}

	return build(CategoryParse, code, message, err).
		WithSuggestion(suggestion).
		WithContext("source", source).
		WithContext("record", record).
		WithContext("field", field).
		WithContext("value", value)
}

// ValidationError reports a value that breaks a model invariant
func ValidationError(code ErrorCode, field string, value interface{}, err error) *TrackerError {
	var message, suggestion string

	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
		suggestion = "amounts must be non-negative decimals such as '12.34'"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
		suggestion = "use RFC 3339 or YYYY-MM-DD HH:MM:SS"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this field"
	case CodeOutOfRange:
		message = fmt.Sprintf("value out of range in field '%s': %v", field, value)
		suggestion = "use a value within the documented range"
	case CodeInvalidPattern:
		message = fmt.Sprintf("invalid exclusion pattern '%s': %v", field, value)
		suggestion = "a pattern needs a merchant or description and min amount <= max amount"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the value and format"
	}

	return build(CategoryValidation, code, message, err).
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError reports an unusable setting
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *TrackerError {
	var message, suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "see 'tracker --help' for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "set it in the config file or as a TRACKER_ environment variable"
	case CodeConfigConflict:
		message = fmt.Sprintf("configuration conflict with setting '%s': %v", setting, value)
		suggestion = "remove one of the conflicting settings"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration"
	}

	return build(CategoryConfiguration, code, message, err).
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// StorageError reports a failed store operation on key
func StorageError(code ErrorCode, operation string, key string, err error) *TrackerError {
	var message, suggestion string

	switch code {
	case CodeNotFound:
		message = fmt.Sprintf("%s: %s not found", operation, key)
		suggestion = "list the stored records to find a valid id"
	case CodeAlreadyExists:
		message = fmt.Sprintf("%s: %s already exists", operation, key)
		suggestion = "use a different id or update the existing record"
	case CodeStorageUnavailable:
		message = fmt.Sprintf("%s: store unavailable", operation)
		suggestion = "check store.path or store.database_url"
	case CodeQueryFailed:
		message = fmt.Sprintf("%s failed for %s", operation, key)
		suggestion = "check the store is reachable and its schema is current"
	default:
		message = fmt.Sprintf("storage error during %s", operation)
		suggestion = "try again"
	}

	return build(CategoryStorage, code, message, err).
		WithSuggestion(suggestion).
		WithContext("operation", operation).
		WithContext("key", key)
}

// InternalError reports a bug or an interrupted operation
func InternalError(code ErrorCode, operation string, err error) *TrackerError {
	var message, suggestion string

	switch code {
	case CodeUnexpectedError:
		message = fmt.Sprintf("unexpected error during %s", operation)
		suggestion = "this is likely a bug, please report it with the error details"
	case CodeCancelled:
		message = fmt.Sprintf("%s was cancelled", operation)
		suggestion = "run the command again to finish"
	default:
		message = fmt.Sprintf("internal error during %s", operation)
		suggestion = "try again"
	}

	return build(CategoryInternal, code, message, err).
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// ErrorSummary aggregates the errors of one run
type ErrorSummary struct {
	Total        int                   `json:"total"`
	ByCategory   map[ErrorCategory]int `json:"by_category"`
	ByCode       map[ErrorCode]int     `json:"by_code"`
	Errors       []*TrackerError       `json:"errors"`
	SampleErrors []*TrackerError       `json:"sample_errors,omitempty"`
}

const maxSampleErrors = 5

// NewErrorSummary summarizes errs
func NewErrorSummary(errs []*TrackerError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}
	if summary.Errors == nil {
		summary.Errors = []*TrackerError{}
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	if len(errs) > maxSampleErrors {
		summary.SampleErrors = errs[:maxSampleErrors]
	} else if len(errs) > 0 {
		summary.SampleErrors = errs
	}

	return summary
}

// Error formats the summary
func (es *ErrorSummary) Error() string {
	switch es.Total {
	case 0:
		return "no errors"
	case 1:
		return es.Errors[0].Error()
	}

	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// HasCategory reports whether any error has the category
func (es *ErrorSummary) HasCategory(category ErrorCategory) bool {
	return es.ByCategory[category] > 0
}

// HasCode reports whether any error has the code
func (es *ErrorSummary) HasCode(code ErrorCode) bool {
	return es.ByCode[code] > 0
}

// GetExitCode returns the highest exit code among the errors
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}

	return maxCode
}

// IsTrackerError reports whether err is a *TrackerError
func IsTrackerError(err error) bool {
	_, ok := err.(*TrackerError)
	return ok
}

// AsTrackerError finds a *TrackerError in err's chain
func AsTrackerError(err error) (*TrackerError, bool) {
	var trackerErr *TrackerError
	if errors.As(err, &trackerErr) {
		return trackerErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a storage not-found error
func IsNotFound(err error) bool {
	te, ok := AsTrackerError(err)
	return ok && te.Code == CodeNotFound
}

// WrapIfNeeded wraps err unless it already carries a *TrackerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *TrackerError {
	if err == nil {
		return nil
	}

	if trackerErr, ok := AsTrackerError(err); ok {
		return trackerErr
	}

	return Wrap(err, category, code, message)
}
