package validator

import (
	"fmt"
	"formtable/i18n"
	"formtable/records"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Message)
	}
	return strings.Join(messages, "; ")
}

// New creates a new validator instance
func New() *Validator {
	v := validator.New()

	// Register custom tag name function to use JSON tags
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validators
	v.RegisterValidation("personname", validatePersonName)
	v.RegisterValidation("username", validateUsername)
	v.RegisterValidation("sortkey", validateSortKey)
	v.RegisterValidation("sortdir", validateSortDirection)
	v.RegisterValidation("lang", validateLanguage)

	return &Validator{validate: v}
}

// Validate validates a struct and returns validation errors
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	// Convert validation errors to our custom format
	var validationErrs ValidationErrors
	for _, err := range err.(validator.ValidationErrors) {
		validationErrs = append(validationErrs, ValidationError{
			Field:   err.Field(),
			Message: msgForTag(err),
			Tag:     err.Tag(),
			Value:   fmt.Sprintf("%v", err.Value()),
		})
	}

	return validationErrs
}

// msgForTag returns a human-readable error message for a validation tag
func msgForTag(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "personname":
		return fmt.Sprintf("%s may only contain letters, spaces, apostrophes and hyphens", field)
	case "username":
		return fmt.Sprintf("%s may only contain letters, numbers, dots, dashes and underscores", field)
	case "sortkey":
		return fmt.Sprintf("%s must be one of: id, firstName, lastName, age, description", field)
	case "sortdir":
		return fmt.Sprintf("%s must be either 'asc' or 'desc'", field)
	case "lang":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(i18n.Supported(), ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

// Custom validators

var (
	personNamePattern = regexp.MustCompile(`^[\p{L}][\p{L}\p{M}\s'\-.]*$`)
	usernamePattern   = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]*$`)
)

// validatePersonName accepts letters of any script plus spaces, apostrophes,
// hyphens and dots, starting with a letter
func validatePersonName(fl validator.FieldLevel) bool {
	return personNamePattern.MatchString(strings.TrimSpace(fl.Field().String()))
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}

func validateSortKey(fl validator.FieldLevel) bool {
	return records.IsSortKey(fl.Field().String())
}

func validateSortDirection(fl validator.FieldLevel) bool {
	dir := fl.Field().String()
	return dir == "asc" || dir == "desc"
}

func validateLanguage(fl validator.FieldLevel) bool {
	return i18n.IsSupported(fl.Field().String())
}
