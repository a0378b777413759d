// Package validator validates configuration and event payload structs by tags,
// see https://github.com/go-playground/validator
package validator

import (
	"errors"
	"fmt"
	"strings"

	validatorengine "github.com/go-playground/validator/v10"

	"github.com/golangid/obsbot/candihelper"
)

// StructValidatorOptionFunc type
type StructValidatorOptionFunc func(*StructValidator)

// SetCoreStructValidatorOption option func
func SetCoreStructValidatorOption(additionalConfigFunc ...func(*validatorengine.Validate)) StructValidatorOptionFunc {
	return func(v *StructValidator) {
		for _, additionalFunc := range additionalConfigFunc {
			additionalFunc(v.Validator)
		}
	}
}

// StructValidator struct
type StructValidator struct {
	Validator *validatorengine.Validate
}

// NewStructValidator constructor
func NewStructValidator(opts ...StructValidatorOptionFunc) *StructValidator {
	sv := &StructValidator{Validator: validatorengine.New()}
	for _, opt := range opts {
		opt(sv)
	}
	return sv
}

// ValidateStruct return candihelper.MultiError keyed by lower-cased field namespace
func (v *StructValidator) ValidateStruct(data any) error {
	err := v.Validator.Struct(data)
	if err == nil {
		return nil
	}

	var errs validatorengine.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}

	multiError := candihelper.NewMultiError()
	for _, e := range errs {
		field := strings.ToLower(e.Namespace())
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		message := fmt.Sprintf("failed on '%s' rule", e.Tag())
		if e.Param() != "" {
			message = fmt.Sprintf("failed on '%s=%s' rule", e.Tag(), e.Param())
		}
		multiError.Append(field, errors.New(message))
	}
	return multiError
}

var defaultValidator = NewStructValidator()

// Validate data with the default struct validator
func Validate(data any) error {
	return defaultValidator.ValidateStruct(data)
}
