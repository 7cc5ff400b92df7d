// Package validate wraps go-playground/validator with JSON field naming and
// flat, human-readable field errors.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// New returns a validator that reports fields by their JSON names.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Fields flattens validator errors into field -> message. It returns nil when
// err is not a validation failure.
func Fields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()

		switch fe.Tag() {
		case "required", "required_if", "required_with":
			fields[field] = fmt.Sprintf("%s is required", field)
		case "gt":
			fields[field] = fmt.Sprintf("%s must be greater than %s", field, fe.Param())
		case "len":
			fields[field] = fmt.Sprintf("%s must be %s characters", field, fe.Param())
		case "min":
			fields[field] = fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		case "max":
			fields[field] = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case "oneof":
			fields[field] = fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
		case "uuid", "uuid4":
			fields[field] = fmt.Sprintf("%s must be a valid UUID", field)
		case "url", "http_url":
			fields[field] = fmt.Sprintf("%s must be a valid URL", field)
		case "email":
			fields[field] = fmt.Sprintf("%s must be a valid email", field)
		case "credit_card":
			fields[field] = fmt.Sprintf("%s must be a valid card number", field)
		case "numeric":
			fields[field] = fmt.Sprintf("%s must contain digits only", field)
		case "iso4217":
			fields[field] = fmt.Sprintf("%s must be an ISO 4217 currency code", field)
		default:
			fields[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return fields
}
