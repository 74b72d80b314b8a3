package render

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const planTimestampLayout = "20060102150405"

func configureValidator(validate *validator.Validate) {
	_ = validate.RegisterValidation("plantimestamp", validatePlanTimestamp)
	validate.RegisterTagNameFunc(useJSONTagNames)
}

// Return 'json' tag name instead of struct field name
func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

// Production plan timestamp: yyyyMMddHHmmss
func validatePlanTimestamp(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if len(value) != len(planTimestampLayout) {
		return false
	}

	_, err := time.Parse(planTimestampLayout, value)
	return err == nil
}
