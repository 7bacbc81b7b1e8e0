// Package validate checks caller input with go-playground/validator and
// reports failures as *InputError values matching ErrInvalidInput.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput is matched by every validation failure.
var ErrInvalidInput = errors.New("invalid input")

// InputError describes the first field that failed validation.
type InputError struct {
	Field string
	Rule  string
	Value any
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s failed %q (got %v)", e.Field, e.Rule, e.Value)
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// nonblank rejects strings that are empty after trimming.
	_ = val.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return val
}

// Struct validates s against its `validate` tags.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &InputError{Field: fe.Field(), Rule: fe.Tag(), Value: fe.Value()}
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// Field reports a single-field failure built outside of struct tags.
func Field(name, rule string, value any) error {
	return &InputError{Field: name, Rule: rule, Value: value}
}
