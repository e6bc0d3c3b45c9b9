package services

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/apperr"
	"github.com/nyaruka/phonenumbers"
)

var ErrInvalidPhone = apperr.New(apperr.KindValidation, "Invalid phone number")

// normalizePhone returns raw in E.164 form. An empty or nil input yields nil.
func normalizePhone(raw *string, region string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil, nil
	}
	num, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return nil, apperr.Wrap(err, ErrInvalidPhone.Kind, ErrInvalidPhone.Message)
	}
	if !phonenumbers.IsValidNumber(num) {
		return nil, ErrInvalidPhone
	}
	e164 := phonenumbers.Format(num, phonenumbers.E164)
	return &e164, nil
}
