package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MarkReadForm is the body of POST /notifications/read. An empty page marks
// every subtype as read.
type MarkReadForm struct {
	Page string `validate:"omitempty,receiver_page"`
}

// SessionForm is the body of POST /session.
type SessionForm struct {
	Account string `validate:"required,number,max=20"`
}

// ValidationError names the first field that failed.
type ValidationError struct {
	Field string
	Tag   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s failed on '%s' validation", e.Field, e.Tag)
}

// FormValidator wraps go-playground/validator with the receiver_page rule.
type FormValidator struct {
	validator *validator.Validate
}

// NewFormValidator accepts the given pages for receiver_page fields.
func NewFormValidator(pages []string) *FormValidator {
	known := make(map[string]bool, len(pages))
	for _, p := range pages {
		known[p] = true
	}

	v := validator.New()
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("receiver_page", func(fl validator.FieldLevel) bool {
		return known[fl.Field().String()]
	})
	return &FormValidator{validator: v}
}

// Validate validates a struct using its validate tags.
func (v *FormValidator) Validate(i any) error {
	if err := v.validator.Struct(i); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			fe := validationErrors[0]
			return &ValidationError{Field: fe.Field(), Tag: fe.Tag()}
		}
		return fmt.Errorf("validate form: %w", err)
	}
	return nil
}

// ParseMarkReadForm reads and validates the mark-as-read form.
func (v *FormValidator) ParseMarkReadForm(r *http.Request) (MarkReadForm, error) {
	if err := r.ParseForm(); err != nil {
		return MarkReadForm{}, fmt.Errorf("parse form: %w", err)
	}
	form := MarkReadForm{Page: sanitizeInput(r.Form.Get("page"))}
	return form, v.Validate(form)
}

// ParseSessionForm reads and validates the session form.
func (v *FormValidator) ParseSessionForm(r *http.Request) (SessionForm, error) {
	if err := r.ParseForm(); err != nil {
		return SessionForm{}, fmt.Errorf("parse form: %w", err)
	}
	form := SessionForm{Account: sanitizeInput(r.Form.Get("account"))}
	return form, v.Validate(form)
}

// IsKnownPage reports whether page passes the receiver_page rule.
func (v *FormValidator) IsKnownPage(page string) bool {
	return v.Validate(MarkReadForm{Page: page}) == nil && page != ""
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
