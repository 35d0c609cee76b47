// Package masking obscures email addresses and phone numbers before they
// leave the API, keeping a configurable number of characters visible at
// each end.
package masking

import (
	"strings"

	"github.com/gatehouse/gatehouse/internal/config"
)

type Masker struct {
	enabled    bool
	maskChar   string
	emailStart int
	emailEnd   int
	phoneStart int
	phoneEnd   int
}

func New(cfg config.MaskConfig) *Masker {
	return &Masker{
		enabled:    cfg.Enabled,
		maskChar:   cfg.MaskChar,
		emailStart: cfg.EmailStart,
		emailEnd:   cfg.EmailEnd,
		phoneStart: cfg.PhoneStart,
		phoneEnd:   cfg.PhoneEnd,
	}
}

// Email masks the local part and keeps the domain: "john@example.com"
// becomes "j**n@example.com" with the default show-1/show-1 settings.
func (m *Masker) Email(email string) string {
	if !m.enabled || email == "" {
		return email
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return m.mask(email, m.emailStart, m.emailEnd)
	}
	return m.mask(email[:at], m.emailStart, m.emailEnd) + email[at:]
}

// Phone keeps the first and last digits: "1234567890" becomes
// "123*****90" with the default show-3/show-2 settings.
func (m *Masker) Phone(phone string) string {
	if !m.enabled || phone == "" {
		return phone
	}
	return m.mask(phone, m.phoneStart, m.phoneEnd)
}

func (m *Masker) mask(value string, showStart, showEnd int) string {
	runes := []rune(value)
	hidden := len(runes) - showStart - showEnd
	if hidden <= 0 {
		// Too short to keep anything visible without giving the
		// whole value away.
		return strings.Repeat(m.maskChar, len(runes))
	}
	var b strings.Builder
	b.WriteString(string(runes[:showStart]))
	b.WriteString(strings.Repeat(m.maskChar, hidden))
	b.WriteString(string(runes[len(runes)-showEnd:]))
	return b.String()
}
