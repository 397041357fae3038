// Package bind decodes and validates JSON request bodies
package bind

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	perr "nexuscalc/internal/platform/errors"
	"nexuscalc/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"
)

// Validator pairs the shared validator with its english translator
type Validator struct {
	V     *validator.Validate
	Trans ut.Translator
}

var (
	once   sync.Once
	shared *Validator
)

// Get returns the process wide validator. Messages use json field names
func Get() *Validator {
	once.Do(func() {
		loc := en.New()
		trans, _ := ut.New(loc, loc).GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonName)
		_ = entrans.RegisterDefaultTranslations(v, trans)

		override(v, trans, "min", "{0} must be at least {1}", true)
		override(v, trans, "max", "{0} must be at most {1}", true)
		override(v, trans, "datetime", "{0} must be a YYYY-MM-DD date", false)
		override(v, trans, "uuid", "{0} must be a uuid", false)

		shared = &Validator{V: v, Trans: trans}
	})
	return shared
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" || tag == "-" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}

func override(v *validator.Validate, trans ut.Translator, tag, text string, withParam bool) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			params := []string{fe.Field()}
			if withParam {
				params = append(params, fe.Param())
			}
			msg, _ := t.T(tag, params...)
			return msg
		},
	)
}

// JSONOptions controls decoding
type JSONOptions struct {
	MaxBytes        int64 // <= 0 reads without a limit
	DisallowUnknown bool
	AllowEmptyBody  bool
}

// DefaultJSONOptions is a 1MB strict body
func DefaultJSONOptions() JSONOptions {
	return JSONOptions{MaxBytes: 1 << 20, DisallowUnknown: true}
}

// ParseJSON decodes one JSON value into T and validates it.
// Decode failures are JSON errors; failed rules are Validation errors carrying the field
func ParseJSON[T any](r *http.Request, opts ...JSONOptions) (T, error) {
	var zero T
	o := DefaultJSONOptions()
	if len(opts) > 0 {
		o = opts[0]
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			logger.C(r.Context()).Warn().Err(err).Msg("close request body")
		}
	}()

	body := io.Reader(r.Body)
	if o.MaxBytes > 0 {
		// one extra byte tells an oversize body apart from one that fits exactly
		body = io.LimitReader(r.Body, o.MaxBytes+1)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return zero, perr.Wrap(err, perr.ErrorCodeJSON, "read body")
	}
	if o.MaxBytes > 0 && int64(len(raw)) > o.MaxBytes {
		return zero, perr.JSONErrf("body exceeds %d bytes", o.MaxBytes)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		if o.AllowEmptyBody {
			return zero, nil
		}
		return zero, perr.JSONErrf("empty body")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if o.DisallowUnknown {
		dec.DisallowUnknownFields()
	}
	var dst T
	if err := dec.Decode(&dst); err != nil {
		return zero, perr.JSONErrf("invalid JSON: %v", err)
	}
	if dec.More() {
		return zero, perr.JSONErrf("unexpected trailing data")
	}
	if err := Validate(dst); err != nil {
		return zero, err
	}
	return dst, nil
}

// Validate runs struct rules on v
func Validate(v any) error {
	err := Get().V.Struct(v)
	if err == nil {
		return nil
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		return perr.Wrap(inv, perr.ErrorCodeUnknown, "validator misuse")
	}
	field, msg := FieldAndMessage(err)
	return perr.WithField(perr.Validationf("%s", msg), field)
}

// FieldAndMessage returns the first failing field and its translated message
func FieldAndMessage(err error) (field, message string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fe.Field(), fe.Translate(Get().Trans)
	}
	if err == nil {
		return "", ""
	}
	return "", err.Error()
}
