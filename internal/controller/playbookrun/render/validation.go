// Copyright 2025 The PlaybookRun Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	playbookrunv1alpha1 "github.com/playbookrun/playbook-operator/api/v1alpha1"
)

// ValidationError is returned when a PlaybookRun spec cannot be turned into a Job.
// Retrying does not help; the request has to be corrected and resubmitted.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid PlaybookRun spec: " + strings.Join(e.Problems, "; ")
}

// IsValidationError reports whether any error in err's chain is a *ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// specValidator is safe for concurrent use and caches struct metadata across calls.
var specValidator = newSpecValidator()

func newSpecValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name so messages match the manifest the user wrote.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("notblank", notBlank); err != nil {
		panic(fmt.Sprintf("failed to register notblank validation: %v", err))
	}
	return v
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// ValidateSpec checks the fields the Job cannot be built without.
// Every problem is reported, not just the first.
func ValidateSpec(spec *playbookrunv1alpha1.PlaybookRunSpec) error {
	if spec == nil {
		return &ValidationError{Problems: []string{"spec is required"}}
	}

	err := specValidator.Struct(spec)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate PlaybookRun spec: %w", err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describeFieldError(fe))
	}
	return &ValidationError{Problems: problems}
}

func describeFieldError(fe validator.FieldError) string {
	field := "spec." + fe.Field()
	switch fe.Tag() {
	case "notblank":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed the %q check", field, fe.Tag())
	}
}
