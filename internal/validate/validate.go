// Package validate wraps go-playground/validator with English messages,
// JSON field names, and the domain's enum tags.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/vbonduro/propdesk/internal/domain"
)

const (
	notBlankTag      = "notblank"
	severityTag      = "severity"
	ticketStatusTag  = "ticket_status"
	featureStatusTag = "feature_status"
)

type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError lists every field that failed.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field builds a single-field ValidationError.
func Field(name, msg string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: name, Error: msg}}}
}

type Validator struct {
	v     *validator.Validate
	trans ut.Translator
}

func New() *Validator {
	v := validator.New()

	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, notBlank)
	_ = v.RegisterValidation(severityTag, func(fl validator.FieldLevel) bool {
		return domain.Severity(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation(ticketStatusTag, func(fl validator.FieldLevel) bool {
		return domain.TicketStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation(featureStatusTag, func(fl validator.FieldLevel) bool {
		return domain.FeatureStatus(fl.Field().String()).Valid()
	})

	// Custom tags already have a default translation slot; the no-op register
	// func satisfies RegisterTranslation.
	noop := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, severityTag, ticketStatusTag, featureStatusTag} {
		_ = v.RegisterTranslation(tag, trans, noop, translateCustom)
	}

	return &Validator{v: v, trans: trans}
}

// Struct validates s and returns a *ValidationError describing every failing
// field, or nil.
func (val *Validator) Struct(s any) error {
	return val.convert(val.v.Struct(s))
}

// Var validates a single value against tag, reporting failures under name.
func (val *Validator) Var(name string, field any, tag string) error {
	err := val.v.Var(field, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		// Var errors carry no field name, so the translated message starts blank.
		msg := strings.TrimSpace(verrs[0].Translate(val.trans))
		return Field(name, name+" "+msg)
	}
	return err
}

func (val *Validator) convert(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate: %w", err)
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Error: fe.Translate(val.trans)})
	}
	return out
}

func notBlank(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return false
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	case severityTag:
		return fe.Field() + " must be one of low, medium, high, critical"
	case ticketStatusTag:
		return fe.Field() + " must be one of open, in_progress, waiting, resolved, closed"
	case featureStatusTag:
		return fe.Field() + " must be one of backlog, planned, in_progress, testing, done"
	default:
		return fe.Error()
	}
}
