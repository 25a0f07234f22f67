package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// report fields by their json names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidateRequest validates the request body against a struct with validation tags
func ValidateRequest(v interface{}) error {
	return validate.Struct(v)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RequestErrors is returned by DecodeAndValidate when the body is malformed or invalid
type RequestErrors []ValidationError

func (e RequestErrors) Error() string {
	if len(e) == 0 {
		return "invalid request"
	}
	return e[0].Message
}

// DecodeAndValidate decodes JSON request body and validates it. Client mistakes come back
// as RequestErrors.
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return decodeErrors(err)
	}
	if err := ValidateRequest(v); err != nil {
		if errs := FormatValidationErrors(err); len(errs) > 0 {
			return RequestErrors(errs)
		}
		return err
	}
	return nil
}

func decodeErrors(err error) RequestErrors {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.Is(err, io.EOF):
		return RequestErrors{{Message: "Request body is required"}}
	case errors.As(err, &typeErr):
		return RequestErrors{{Field: typeErr.Field, Message: typeMessage(typeErr)}}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return RequestErrors{{Message: "Request body is not valid JSON"}}
	default:
		return RequestErrors{{Message: "Invalid request body"}}
	}
}

func typeMessage(e *json.UnmarshalTypeError) string {
	field := quote(e.Field)
	switch e.Type.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return field + " must be a number"
	case reflect.String:
		return field + " must be a string"
	case reflect.Slice, reflect.Array:
		return field + " must be an array"
	case reflect.Struct, reflect.Map:
		return field + " must be of type object"
	case reflect.Bool:
		return field + " must be a boolean"
	default:
		return field + " has an invalid type"
	}
}

// FormatValidationErrors converts validator errors to a readable format
func FormatValidationErrors(err error) []ValidationError {
	var errors []ValidationError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			errors = append(errors, ValidationError{
				Field:   fieldPath(e),
				Message: getErrorMessage(e),
			})
		}
	}

	return errors
}

// fieldPath drops the struct name from the namespace: CreateProductRequest.images[0].webp -> images[0].webp
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func getErrorMessage(e validator.FieldError) string {
	field := quote(fieldPath(e))
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		switch e.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s length must be at least %s characters long", field, e.Param())
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("%s must contain at least %s items", field, e.Param())
		}
		return fmt.Sprintf("%s must be greater than or equal to %s", field, e.Param())
	case "max":
		switch e.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s length must be less than or equal to %s characters long", field, e.Param())
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("%s must contain less than or equal to %s items", field, e.Param())
		}
		return fmt.Sprintf("%s must be less than or equal to %s", field, e.Param())
	case "gte":
		return field + " must be greater than or equal to " + e.Param()
	case "lte":
		return field + " must be less than or equal to " + e.Param()
	case "gt":
		return field + " must be greater than " + e.Param()
	case "lt":
		return field + " must be less than " + e.Param()
	default:
		return field + " is invalid"
	}
}

func quote(field string) string {
	if field == "" {
		return "value"
	}
	return `"` + field + `"`
}
