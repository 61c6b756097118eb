// Package validation wraps go-playground/validator with the project's custom
// tags and converts failures into apperr validation errors.
package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/redmonkez12/eventflow/internal/apperr"
	"github.com/redmonkez12/eventflow/internal/user"
)

var global = New()

// New returns a validator with the custom tags registered and field names
// taken from json tags.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("future", validateFutureDate)
	_ = v.RegisterValidation("role", validateRole)
	return v
}

func validateFutureDate(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	return ok && t.After(time.Now())
}

func validateRole(fl validator.FieldLevel) bool {
	_, ok := user.ParseRole(fl.Field().String())
	return ok
}

// Validate checks s against its validate tags and returns the first failure
// as an *apperr.ValidationError.
func Validate(ctx context.Context, s any) error {
	return convert(global.StructCtx(ctx, s), "")
}

// Var checks a single value against tag, reporting failures under field.
func Var(ctx context.Context, field string, value any, tag string) error {
	return convert(global.VarCtx(ctx, value, tag), field)
}

func convert(err error, field string) error {
	if err == nil {
		return nil
	}

	var vErrors validator.ValidationErrors
	if !errors.As(err, &vErrors) || len(vErrors) == 0 {
		return fmt.Errorf("validate: %w", err)
	}

	fe := vErrors[0]
	if field == "" {
		field = fe.Field()
	}
	return apperr.Validation(field, message(fe))
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "email":
		return "invalid email format"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "future":
		return "date must be in the future"
	case "role":
		return fmt.Sprintf("must be %q or %q", user.RoleAttendee, user.RoleOrganizer)
	default:
		return "invalid value"
	}
}
