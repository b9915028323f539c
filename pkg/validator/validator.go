package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrInvalid = errors.New("validation failed")

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error aggregates the field errors of a single validated value.
type Error struct {
	Errors []ValidationError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ve := range e.Errors {
		msgs = append(msgs, ve.Message)
	}

	return fmt.Sprintf("%s: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func (e *Error) Unwrap() error {
	return ErrInvalid
}

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		}

		return name
	})

	return &Validator{validate: v}
}

func (v *Validator) Validate(i any) ([]ValidationError, bool) {
	err := v.validate.Struct(i)
	if err == nil {
		return nil, true
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []ValidationError{{Code: "INVALID", Message: err.Error()}}, false
	}

	result := make([]ValidationError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		result = append(result, ValidationError{
			Field: fe.Namespace(),
			// todo: change codes and wrap in enums
			Code:    strings.ToUpper(fe.Tag()),
			Message: message(fe),
		})
	}

	return result, false
}

// Struct is Validate reporting failures as *Error.
func (v *Validator) Struct(i any) error {
	if errs, ok := v.Validate(i); !ok {
		return &Error{Errors: errs}
	}

	return nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid url", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	default:
		return fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
	}
}
