package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

// Import error codes
const (
	ErrCodeImportMalformedRow  = "ERR_IMPORT_MALFORMED_ROW"
	ErrCodeImportRequiredField = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeImportInvalidFormat = "ERR_IMPORT_INVALID_FORMAT"
	ErrCodeImportInvalidRange  = "ERR_IMPORT_INVALID_RANGE"
	ErrCodeImportValidation    = "ERR_IMPORT_VALIDATION"
)

// Common import errors
var (
	// ErrEmptyFile is returned when the CSV file is empty
	ErrEmptyFile = errors.New("CSV file is empty")

	// ErrInvalidEncoding is returned when the file is not UTF-8
	ErrInvalidEncoding = errors.New("invalid file encoding, expected UTF-8")

	// ErrMissingHeader is returned when the CSV file has no header row
	ErrMissingHeader = errors.New("CSV file missing header row")

	// ErrMissingColumns is returned when required columns are absent
	ErrMissingColumns = errors.New("CSV file missing required columns")
)

// RowError represents an error in a specific row
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ErrorCollection collects row errors up to a limit while counting all of them
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0),
		maxErrors: maxErrors,
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddRequiredError adds a required field error
func (ec *ErrorCollection) AddRequiredError(row int, column string) {
	ec.Add(RowError{
		Row:     row,
		Column:  column,
		Code:    ErrCodeImportRequiredField,
		Message: fmt.Sprintf("field '%s' is required", column),
	})
}

// AddFormatError adds a format validation error
func (ec *ErrorCollection) AddFormatError(row int, column, expectedFormat, value string) {
	ec.Add(RowError{
		Row:     row,
		Column:  column,
		Code:    ErrCodeImportInvalidFormat,
		Message: fmt.Sprintf("invalid format, expected %s", expectedFormat),
		Value:   value,
	})
}

// AddRangeError adds an error for a value below zero
func (ec *ErrorCollection) AddRangeError(row int, column, value string) {
	ec.Add(RowError{
		Row:     row,
		Column:  column,
		Code:    ErrCodeImportInvalidRange,
		Message: "value cannot be negative",
		Value:   value,
	})
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// TotalCount returns the total number of errors including those not collected
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated returns true if some errors were not collected due to the limit
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

// String summarizes the collection on one line per error
func (ec *ErrorCollection) String() string {
	if ec.totalCount == 0 {
		return "no errors"
	}
	lines := make([]string, 0, len(ec.errors)+1)
	head := fmt.Sprintf("%d invalid row value(s)", ec.totalCount)
	if ec.IsTruncated() {
		head += fmt.Sprintf(", first %d listed", len(ec.errors))
	}
	lines = append(lines, head)
	for _, e := range ec.errors {
		lines = append(lines, "  "+e.Error())
	}
	return strings.Join(lines, "\n")
}
