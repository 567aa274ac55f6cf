package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"tickpulse/internal/dataprocessing"
	apierrors "tickpulse/internal/errors"
	"tickpulse/internal/infrastructure"
)

// Timeframes accepted by the timeseries endpoint
var Timeframes = []string{"1Min", "5Min", "15Min", "1H"}

// Validator checks decoded query and path parameters against struct tags.
// Besides the built-in tags it understands "resolution" (any bucket width
// ParseResolution accepts) and "timeframe" (one of Timeframes).
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a validator with the custom tags registered
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("resolution", isResolution)
	_ = v.RegisterValidation("timeframe", isTimeframe)

	// report query parameter names, not Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	return &Validator{
		validate: v,
		logger:   infrastructure.WithComponent(logger, "validator"),
	}
}

// ValidateStruct returns an *apierrors.APIError listing every failed field
func (m *Validator) ValidateStruct(v interface{}) error {
	err := m.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}

	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	m.logger.Debug("parameter validation failed", slog.Int("fields", len(out)))
	return apierrors.NewValidationErrors(out)
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(err.Param(), " ", ", "))
	case "timeframe":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(Timeframes, ", "))
	case "resolution":
		return fmt.Sprintf("%s must look like 30S, 5Min, 5T, 1H or 1D", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func isResolution(fl validator.FieldLevel) bool {
	_, err := dataprocessing.ParseResolution(fl.Field().String())
	return err == nil
}

func isTimeframe(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, tf := range Timeframes {
		if value == tf {
			return true
		}
	}
	return false
}
