package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/SigitArif/POS/internal/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("field"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

type productInput struct {
	Name         string          `field:"name" validate:"required"`
	SellingPrice decimal.Decimal `field:"selling_price" validate:"gt=0"`
	BasePrice    decimal.Decimal `field:"base_price" validate:"gt=0"`
	Category     string          `field:"category" validate:"required"`
}

type categoryInput struct {
	Name string `field:"name" validate:"required"`
}

type orderLineInput struct {
	ProductID int64 `field:"product_id"`
	Quantity  int   `field:"quantity" validate:"gt=0"`
}

type orderInput struct {
	Lines []orderLineInput `field:"lines" validate:"required,min=1,dive"`
}

func validateInput(entity string, input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	metrics.ValidationFailuresTotal.WithLabelValues(entity).Inc()

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Entity: entity, Field: fe.Field(), Reason: reasonFor(fe)}
	}
	return fmt.Errorf("%w: %s: %v", ErrValidation, entity, err)
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.Slice {
			return "must not be empty"
		}
		return "must not be blank"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " entries"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
