package validation

import (
	"errors"
	"fmt"
	"regexp"
	"unicode"

	"github.com/go-playground/validator/v10"

	"dealer-inventory/pkg/models"
)

// SortPattern restricts sort keys to field_direction tokens.
var SortPattern = regexp.MustCompile(`^[a-z]+_(asc|desc)$`)

// New returns a validator with the inventory validators registered.
func New() *validator.Validate {
	v := validator.New()
	RegisterInventoryValidators(v)
	return v
}

// RegisterInventoryValidators registers all inventory-related custom validators
func RegisterInventoryValidators(v *validator.Validate) {
	v.RegisterValidation("safe_text", ValidateSafeText)
	v.RegisterValidation("sort_key", ValidateSortKey)
}

// ValidateSafeText rejects control characters in free-text filters.
func ValidateSafeText(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// ValidateSortKey checks the field_direction shape; the allowed set is
// enforced separately with oneof.
func ValidateSortKey(fl validator.FieldLevel) bool {
	return SortPattern.MatchString(fl.Field().String())
}

// Criteria checks query criteria against their tags and the price range
// ordering. The error message names the first failing field.
func Criteria(v *validator.Validate, c models.QueryCriteria) error {
	if err := v.Struct(c); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			fe := fieldErrors[0]
			return fmt.Errorf("%s failed %s validation", fe.Field(), fe.Tag())
		}
		return err
	}
	if c.PriceMin > 0 && c.PriceMax > 0 && c.PriceMin > c.PriceMax {
		return errors.New("priceMin must not exceed priceMax")
	}
	return nil
}
