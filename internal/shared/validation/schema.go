// Package validation validates and sanitizes untrusted input against named
// schemas. Schemas are registered once at startup and read-only afterwards.
package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/helpdeck/helpdeck/internal/shared/errors"
)

var validate = validator.New()

type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
)

// Field declares the contract for a single input field. Rules is a
// go-playground/validator tag expression evaluated against the decoded value,
// e.g. "min=1,max=255" or "email".
type Field struct {
	Type     FieldType
	Required bool
	Rules    string
}

// Schema is a named input contract: field presence, type, bounds, format.
type Schema struct {
	Name   string
	Fields map[string]Field
}

// ValidateAndSanitize checks data against the schema and returns a sanitized
// copy. Unknown fields are rejected; every string leaf of the result has been
// through the sanitizer. On mismatch it returns a schema-mismatch error
// carrying per-field messages.
func (s *Schema) ValidateAndSanitize(sanitizer *Sanitizer, data map[string]any) (map[string]any, error) {
	fieldErrors := map[string]string{}

	for name := range data {
		if _, known := s.Fields[name]; !known {
			fieldErrors[name] = "field is not allowed"
		}
	}

	for name, field := range s.Fields {
		value, present := data[name]
		if !present || value == nil {
			if field.Required {
				fieldErrors[name] = "field is required"
			}
			continue
		}

		if !typeMatches(field.Type, value) {
			fieldErrors[name] = fmt.Sprintf("must be of type %s", field.Type)
			continue
		}

		if field.Rules != "" {
			if err := validate.Var(value, field.Rules); err != nil {
				if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
					fieldErrors[name] = ruleErrorMessage(verrs[0])
				} else {
					fieldErrors[name] = "failed validation"
				}
			}
		}
	}

	if len(fieldErrors) > 0 {
		return nil, errors.NewSchemaMismatchError(fieldErrors)
	}

	sanitized := make(map[string]any, len(data))
	for name, value := range data {
		sanitized[name] = sanitizer.CleanValue(value)
	}
	return sanitized, nil
}

func typeMatches(t FieldType, value any) bool {
	switch t {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeNumber:
		// encoding/json decodes all JSON numbers into float64
		_, ok := value.(float64)
		return ok
	case TypeBoolean:
		_, ok := value.(bool)
		return ok
	case TypeObject:
		_, ok := value.(map[string]any)
		return ok
	case TypeArray:
		_, ok := value.([]any)
		return ok
	default:
		return false
	}
}

// ruleErrorMessage returns a user-friendly message for a field rule violation
func ruleErrorMessage(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()

	switch tag {
	case "email":
		return "must be a valid email address"
	case "e164":
		return "must be a valid phone number"
	case "url", "http_url":
		return "must be a valid URL"
	case "min":
		return fmt.Sprintf("must be at least %s", param)
	case "max":
		return fmt.Sprintf("must be at most %s", param)
	case "len":
		return fmt.Sprintf("must have length %s", param)
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", param)
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", param)
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", param)
	case "hexadecimal":
		return "must be a hexadecimal string"
	case "alphanum":
		return "must contain only alphanumeric characters"
	default:
		return fmt.Sprintf("failed validation for '%s'", tag)
	}
}

// ValidateEmail reports whether the string is a well-formed email address
func ValidateEmail(value string) bool {
	return validate.Var(value, "email") == nil
}

// ValidatePhone reports whether the string is an E.164 phone number
func ValidatePhone(value string) bool {
	return validate.Var(value, "e164") == nil
}

// ValidateURL reports whether the string is a well-formed absolute URL
func ValidateURL(value string) bool {
	return validate.Var(value, "url") == nil
}
