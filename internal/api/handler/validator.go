package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/99minutos/template-backend/internal/api/operation"
)

// bodyValidator wraps go-playground/validator and reports failures in the
// same shape as contract validation, so both render identically.
type bodyValidator struct {
	v *validator.Validate
}

func newBodyValidator() *bodyValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// bcrypt limits the input in bytes, while max counts runes.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= n
	})
	return &bodyValidator{v: v}
}

// decode unmarshals the validated body into dst and runs its struct tags.
func (bv *bodyValidator) decode(req *operation.Request, dst any) error {
	if err := req.DecodeBody(dst); err != nil {
		return &operation.ValidationError{
			Operation:  operationID(req),
			Violations: []operation.Violation{{Field: "body", In: "body", Rule: "type", Description: err.Error()}},
		}
	}
	if err := bv.v.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		violations := make([]operation.Violation, 0, len(ve))
		for _, fe := range ve {
			violations = append(violations, operation.Violation{
				Field:       "body." + fe.Field(),
				In:          "body",
				Rule:        fe.Tag(),
				Description: fieldError(fe),
			})
		}
		return &operation.ValidationError{Operation: operationID(req), Violations: violations}
	}
	return nil
}

// fieldError converts a single ValidationError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "numeric":
		return field + " must be numeric"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

func operationID(req *operation.Request) string {
	if req.Operation == nil {
		return ""
	}
	return req.Operation.ID
}
