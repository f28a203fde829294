package services

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var identityFields = map[string]bool{
	"UserID": true, "UserID1": true, "UserID2": true, "Sender": true, "Receiver": true,
}

// Validator checks inbound payloads. The "identity" tag enforces the configured identity shape.
type Validator struct {
	validate          *validator.Validate
	pattern           *regexp.Regexp
	maxIdentityLength int
}

func NewValidator(pattern *regexp.Regexp, maxIdentityLength int) *Validator {
	v := &Validator{
		validate:          validator.New(validator.WithRequiredStructEnabled()),
		pattern:           pattern,
		maxIdentityLength: maxIdentityLength,
	}
	// Registration only fails on an empty tag or a nil func
	_ = v.validate.RegisterValidation("identity", func(fl validator.FieldLevel) bool {
		return v.validIdentity(fl.Field().String())
	})
	return v
}

// Struct validates a payload and maps the first violation onto the error taxonomy.
func (v *Validator) Struct(payload any) error {
	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var violations validator.ValidationErrors
	if !errors.As(err, &violations) || len(violations) == 0 {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	first := violations[0]
	switch {
	case first.Tag() == "nefield":
		return errors.ErrSameParticipant
	case first.Tag() == "identity", identityFields[first.Field()]:
		return fmt.Errorf("%w: %s", errors.ErrInvalidIdentity, first.Field())
	case first.Field() == "Content":
		return errors.ErrEmptyContent
	case first.Tag() == "oneof":
		return fmt.Errorf("%w: %q", errors.ErrInvalidKind, first.Value())
	default:
		return fmt.Errorf("%w: %s failed on %s", errors.ErrValidation, first.Field(), first.Tag())
	}
}

// Identity validates a single identity outside of any payload.
func (v *Validator) Identity(userID chat.UserID) error {
	if !v.validIdentity(userID.String()) {
		return fmt.Errorf("%w: %q", errors.ErrInvalidIdentity, userID)
	}
	return nil
}

func (v *Validator) validIdentity(s string) bool {
	if s == "" || utf8.RuneCountInString(s) > v.maxIdentityLength {
		return false
	}
	return v.pattern == nil || v.pattern.MatchString(s)
}
