// Package validation checks canonical records before they are persisted,
// using the validator/v10 library.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alkoparser/catalog-ingest/internal/domain"
	domainerrors "github.com/alkoparser/catalog-ingest/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for our domain.
func New() *Validator {
	v := validator.New()

	// Use JSON tag names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	v.RegisterStructValidation(validatePrice, domain.Price{})
	v.RegisterStructValidation(validateAssets, domain.Assets{})

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// validatePrice requires a sale tag exactly when the price is discounted.
func validatePrice(sl validator.StructLevel) {
	p, _ := sl.Current().Interface().(domain.Price)
	switch {
	case p.OnSale() && p.SaleTag == "":
		sl.ReportError(p.SaleTag, "sale_tag", "SaleTag", "required_on_sale", "")
	case !p.OnSale() && p.SaleTag != "":
		sl.ReportError(p.SaleTag, "sale_tag", "SaleTag", "excluded_off_sale", "")
	}
}

// validateAssets requires the main image to lead the image set.
func validateAssets(sl validator.StructLevel) {
	a, _ := sl.Current().Interface().(domain.Assets)
	if a.MainImage == nil {
		if len(a.SetImages) > 0 {
			sl.ReportError(a.SetImages, "set_images", "SetImages", "main_image_first", "")
		}
		return
	}
	if len(a.SetImages) == 0 || a.SetImages[0] != *a.MainImage {
		sl.ReportError(a.SetImages, "set_images", "SetImages", "main_image_first", "")
	}
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[fieldPath(e)] = v.friendlyMessage(e)
	}

	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

// fieldPath drops the root struct name: "Product.price.sale_tag" -> "price.sale_tag".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "max":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must not contain more than %s items", e.Param())
		}
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "required_on_sale":
		return "is required when the original price exceeds the current price"
	case "excluded_off_sale":
		return "must be empty when the product is not discounted"
	case "main_image_first":
		return "must start with main_image"
	default:
		return "is invalid"
	}
}
