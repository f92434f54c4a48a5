package model

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	err := v.RegisterValidation("simpleemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("registering email validation: %v", err))
	}
	return v
}

// fieldErrors maps a struct field to the error reported when its rule fails.
var fieldErrors = map[string]ValidationError{
	"Name":            ErrorNameTooShort,
	"Username":        ErrorUsernameTooShort,
	"Email":           ErrorInvalidEmail,
	"Password":        ErrorPasswordTooShort,
	"ConfirmPassword": ErrorPasswordMismatch,
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Validate checks the struct's field rules in declaration order and returns
// the first failure as a ValidationError.
func Validate(params interface{}) error {
	err := validate.Struct(params)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validating params: %w", err)
	}
	first := fieldErrs[0]
	if mapped, ok := fieldErrors[first.StructField()]; ok {
		return mapped
	}
	return ValidationError{Field: first.Field(), Rule: first.Tag()}
}
