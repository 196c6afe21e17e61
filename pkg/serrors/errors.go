package serrors

import (
	"fmt"
	"strings"
)

// BaseError is a coded error safe to surface to API clients. LocaleKey is
// kept for message catalogs maintained outside this repository.
type BaseError struct {
	Code         string
	Message      string
	LocaleKey    string
	TemplateData map[string]string
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{
		Code:      code,
		Message:   message,
		LocaleKey: localeKey,
	}
}

func (e *BaseError) Error() string {
	return e.Message
}

// WithTemplateData returns a copy carrying template data for localization.
func (e *BaseError) WithTemplateData(data map[string]string) *BaseError {
	out := *e
	out.TemplateData = data
	return &out
}

// Is matches BaseErrors by code so wrapped instances compare equal.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	return ok && t.Code == e.Code
}

// FieldsError is a coded error that enumerates the offending fields
// instead of issuing a blanket denial.
type FieldsError struct {
	Code    string
	Message string
	Fields  []string
}

func NewFieldsError(code, message string, fields []string) *FieldsError {
	return &FieldsError{Code: code, Message: message, Fields: fields}
}

func (e *FieldsError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

func (e *FieldsError) Is(target error) bool {
	t, ok := target.(*FieldsError)
	return ok && t.Code == e.Code
}
