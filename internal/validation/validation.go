// Package validation declares the input shapes accepted by the portal API
// and turns raw request data into typed, constraint-checked values.
//
// Constraints live in `validate` struct tags. Field names in errors are the
// JSON names the client sent.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

// FieldError names one offending field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned for malformed or missing input.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}

// Field returns the message for the named field, or "" if it is valid.
func (e *Error) Field(name string) string {
	for _, f := range e.Fields {
		if f.Field == name {
			return f.Message
		}
	}
	return ""
}

// NewFieldError returns an Error for a single field.
func NewFieldError(field, msg string) *Error {
	return fieldErr(field, msg)
}

func fieldErr(field, msg string) *Error {
	return &Error{Fields: []FieldError{{Field: field, Message: msg}}}
}

var (
	once     sync.Once
	validate *validator.Validate
	decoder  *schema.Decoder
)

func setup() {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonName)
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		// max counts runes; maxbytes bounds the encoded length (bcrypt reads 72 bytes).
		_ = validate.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
			n, err := strconv.Atoi(fl.Param())
			return err == nil && len(fl.Field().String()) <= n
		})

		decoder = schema.NewDecoder()
		decoder.SetAliasTag("json")
		decoder.IgnoreUnknownKeys(true)
	})
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// Struct checks v's tags.
func Struct(v any) error {
	setup()
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("must be at most %s bytes", fe.Param())
	default:
		return "is invalid"
	}
}

// DecodeJSON decodes a JSON body into dst and checks its tags.
func DecodeJSON(r io.Reader, dst any) error {
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return fieldErr(typeErr.Field, "must be "+kindName(typeErr.Type))
		}
		return fieldErr("", "invalid JSON body")
	}
	return Struct(dst)
}

// DecodeForm decodes form values (e.g. the text parts of a multipart form)
// into dst and checks its tags.
func DecodeForm(values url.Values, dst any) error {
	setup()
	if err := decoder.Decode(dst, values); err != nil {
		var multi schema.MultiError
		if errors.As(err, &multi) {
			out := &Error{}
			for key := range multi {
				out.Fields = append(out.Fields, FieldError{Field: key, Message: "is invalid"})
			}
			return out
		}
		return fieldErr("", "invalid form data")
	}
	return Struct(dst)
}

func kindName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Bool:
		return "a boolean"
	case reflect.String:
		return "a string"
	default:
		return "a " + t.Kind().String()
	}
}
