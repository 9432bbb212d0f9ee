package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// ValidateStruct runs the validate tags of s. The result is never nil;
// call OrNil to turn it into an error.
func ValidateStruct(s any) *ValidationError {
	return collect(validatorInstance().Struct(s))
}

// ValidatePartial validates only the named Go struct fields of s.
func ValidatePartial(s any, fields ...string) *ValidationError {
	if len(fields) == 0 {
		return NewValidationError()
	}
	return collect(validatorInstance().StructPartial(s, fields...))
}

func collect(err error) *ValidationError {
	out := NewValidationError()
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out.Add("_", err.Error())
		return out
	}
	for _, fe := range verrs {
		out.Add(fieldKey(fe), message(fe))
	}
	return out
}

// fieldKey strips the root struct from the namespace so nested fields
// read as tags[0] rather than EventInput.tags[0].
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must have at least %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must have at most %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid url starting with http:// or https://"
	case "number", "numeric":
		return "must contain only digits"
	case "eq":
		return fmt.Sprintf("must be %s", fe.Param())
	case "uuid":
		return "must be a valid uuid"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
