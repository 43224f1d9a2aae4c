package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"pharmapos/terminal/internal/apperror"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// money strings as typed by the cashier, e.g. "500000" or "12500.50"
	_ = validate.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		raw := strings.TrimSpace(fl.Field().String())
		if raw == "" {
			return true
		}
		_, err := decimal.NewFromString(raw)
		return err == nil
	})
}

// ValidateStruct checks the validate tags of data and returns a validation
// AppError listing every failed field, or nil.
func ValidateStruct(data any) error {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]apperror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperror.FieldError{
			Field:   fe.Field(),
			Message: describe(fe),
		})
	}
	return apperror.NewValidationFields(fields)
}

// ParseMoney parses a decimal amount typed by the user. Empty or non-numeric
// input yields ok=false.
func ParseMoney(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "money":
		return "must be a number"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}
