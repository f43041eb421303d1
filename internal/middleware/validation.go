package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"storefront/internal/domain"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
	// report fields by their JSON names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// maxBodyBytes bounds request bodies read by DecodeAndValidate
const maxBodyBytes = 1 << 20

// BodyError is returned by DecodeAndValidate when the body is not valid JSON
type BodyError struct {
	Err error
}

func (e *BodyError) Error() string {
	return "JSON parse error - " + e.Err.Error()
}

func (e *BodyError) Unwrap() error {
	return e.Err
}

// ValidateRequest validates the request body against a struct with validation tags
func ValidateRequest(v interface{}) error {
	return validate.Struct(v)
}

// DecodeAndValidate decodes JSON request body and validates it
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if err := Decode(r, v); err != nil {
		return err
	}
	return ValidateRequest(v)
}

// Decode reads a JSON body into v. An empty body leaves v untouched.
func Decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return &BodyError{Err: err}
	}
	return nil
}

// RespondWithBindError answers a failed DecodeAndValidate with field errors or a parse error
func RespondWithBindError(w http.ResponseWriter, err error) {
	if fieldErrs := FormatValidationErrors(err); len(fieldErrs) > 0 {
		RespondWithFieldErrors(w, fieldErrs)
		return
	}
	RespondWithError(w, http.StatusBadRequest, err.Error())
}

// FormatValidationErrors converts validator errors to messages keyed by JSON field name
func FormatValidationErrors(err error) domain.FieldErrors {
	errs := domain.FieldErrors{}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			errs.Add(e.Field(), getErrorMessage(e))
		}
	}

	return errs
}

func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s characters.", e.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", e.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", e.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", e.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", e.Param())
	case "uuid", "uuid4":
		return "Must be a valid UUID."
	default:
		return "Invalid value."
	}
}
