package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	ValidationErrorType = "validation_failed"
	DecodingErrorType   = "decoding_failed"
	ServiceErrorType    = "service_error"
)

var validate = validator.New()

func init() {
	configureValidator(validate)
}

type Struct any

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, data any) {
	jsonWithStatus(w, data, http.StatusOK)
}

func JSONWithStatus(w http.ResponseWriter, data any, code int) {
	jsonWithStatus(w, data, code)
}

func ServiceError(w http.ResponseWriter, message string, code int) {
	jsonWithStatus(w, ErrorResponse{Error: ServiceErrorType, Message: message}, code)
}

// DecodeError renders request body decoding failure.
// Oversized body gives 413, everything else 400.
func DecodeError(w http.ResponseWriter, err error) {
	code := http.StatusBadRequest
	var message string

	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
		sizeErr   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &sizeErr):
		code = http.StatusRequestEntityTooLarge
		message = fmt.Sprintf("Request body is larger than %d bytes", sizeErr.Limit)
	case errors.As(err, &typeErr):
		message = fmt.Sprintf("Invalid data type for field '%s'", typeErr.Field)
	case errors.As(err, &syntaxErr):
		message = fmt.Sprintf("Failed to parse JSON at offset %d: %s", syntaxErr.Offset, syntaxErr.Error())
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		message = fmt.Sprintf("Unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
	default:
		message = fmt.Sprintf("Failed to parse JSON: %s", err.Error())
	}

	jsonWithStatus(w, ErrorResponse{Error: DecodingErrorType, Message: message}, code)
}

// ValidationErrors renders one message per invalid field.
// Nested fields are keyed by path without the root struct name: 'rows[1].plannedAt'.
func ValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	response := ErrorResponse{
		Error:   ValidationErrorType,
		Message: "Request validation failed",
		Fields:  make(map[string]string, len(errs)),
	}

	for _, fieldError := range errs {
		response.Fields[fieldPath(fieldError)] = fieldMessage(fieldError)
	}

	jsonWithStatus(w, response, http.StatusBadRequest)
}

func fieldPath(fe validator.FieldError) string {
	_, path, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		return fe.Field()
	}
	return path
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Value is too short (minimum %s)", fe.Param())
	case "len":
		return fmt.Sprintf("Value must be exactly %s long", fe.Param())
	case "gte":
		return fmt.Sprintf("Value must be greater than or equal to %s", fe.Param())
	case "plantimestamp":
		return "Timestamp must be in yyyyMMddHHmmss format"
	default:
		return "Invalid value"
	}
}

// BindAndValidate decodes JSON request body into type T and validates it using struct tags.
// Unknown fields and trailing data are rejected.
// Error response is written on any failure, so caller only returns.
func BindAndValidate[T Struct](w http.ResponseWriter, r *http.Request) (T, error) {
	var value T

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&value); err != nil {
		DecodeError(w, err)
		return value, err
	}
	if dec.More() {
		err := errors.New("unexpected data after JSON object")
		DecodeError(w, err)
		return value, err
	}

	if err := validate.Struct(value); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return value, err
		}
		ValidationErrors(w, errs)
		return value, err
	}

	return value, nil
}

// jsonWithStatus encodes data before writing headers, so encoding failure still gives 500
func jsonWithStatus(w http.ResponseWriter, data any, code int) {
	buf := &bytes.Buffer{}

	if err := json.NewEncoder(buf).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
