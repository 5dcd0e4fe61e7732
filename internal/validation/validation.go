// Package validation checks request structs against their validate tags and reports
// the first failing field as a domain.ValidationError.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"storefront/internal/domain"
)

// MinCardDigits is the shortest accepted card number once spaces are removed.
const MinCardDigits = 13

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	must(v.RegisterValidation("notblank", validators.NotBlank))
	must(v.RegisterValidation("cardnumber", cardNumber))
	must(v.RegisterValidation("dialcountry", dialCountry))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Struct validates s. Fields are checked in declaration order, nested structs included.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	fe := errs[0]
	return domain.Invalid(fe.Field(), message(fe))
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank", "dialcountry":
		return "required"
	case "email":
		return "must be an email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "eqfield":
		return "does not match"
	case "cardnumber":
		return fmt.Sprintf("must contain at least %d digits", MinCardDigits)
	default:
		return "is invalid"
	}
}

// cardNumber accepts ASCII digits, spaces ignored.
func cardNumber(fl validator.FieldLevel) bool {
	digits := strings.Join(strings.Fields(fl.Field().String()), "")
	if len(digits) < MinCardDigits {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// dialCountry accepts "<name>" or "<dial code>|<name>" with a non-blank name.
func dialCountry(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	if _, name, ok := strings.Cut(v, "|"); ok {
		v = name
	}
	return strings.TrimSpace(v) != ""
}
