package common

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/google/uuid"
)

type ValidationError struct {
	Errors map[string]string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %+v", e.Errors)
}

// First returns one message of the error, preferring the given fields in order.
func (e ValidationError) First(fields ...string) string {
	for _, f := range fields {
		if msg, ok := e.Errors[f]; ok {
			return f + " " + msg
		}
	}
	for f, msg := range e.Errors {
		return f + " " + msg
	}
	return ""
}

type Validator struct {
	Errors map[string]string
}

func NewValidator() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

func (v *Validator) AddError(field, message string) {
	if _, ok := v.Errors[field]; !ok {
		v.Errors[field] = message
	}
}

func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// CheckStringLength counts characters, not bytes.
func (v *Validator) CheckStringLength(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n >= min && n <= max
}

func (v *Validator) Matches(s string, rx *regexp.Regexp) bool {
	return rx.MatchString(s)
}

// CheckUUID records an error for field unless s is a UUID and returns the parsed value.
func (v *Validator) CheckUUID(s, field string) uuid.UUID {
	if s == "" {
		v.AddError(field, "must be provided")
		return uuid.Nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		v.AddError(field, "must be a valid id")
		return uuid.Nil
	}
	return id
}

func (v *Validator) ValidationError() error {
	return ValidationError{Errors: v.Errors}
}
