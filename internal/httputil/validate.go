package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError is a client input problem; handlers answer it with 400.
type ValidationError struct {
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("invalid request: %v", e.Err)
	}
	return "invalid request: " + strings.Join(e.Fields, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validator decodes JSON bodies and checks their `validate` struct tags.
type Validator struct {
	v       *validator.Validate
	maxBody int64
}

// NewValidator creates a Validator limiting bodies to maxBody bytes.
// A non-positive maxBody disables the limit.
func NewValidator(maxBody int64) *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled()), maxBody: maxBody}
}

// Struct validates dst and converts failures into a *ValidationError.
func (v *Validator) Struct(dst any) error {
	err := v.v.Struct(dst)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
		return &ValidationError{Fields: fields, Err: err}
	}
	return &ValidationError{Err: err}
}

// DecodeJSON reads r's body into dst and validates it.
func (v *Validator) DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := r.Body
	if v.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, v.maxBody)
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &ValidationError{Err: err}
	}
	return v.Struct(dst)
}
