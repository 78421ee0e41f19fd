package validator

import (
	"errors"
	"net/mail"
	"strings"
)

// ValidEmail checks that addr is a bare, parseable email address. Display
// names ("Bob <bob@example.com>") are rejected: recipients are stored and
// dispatched as plain addresses.
func ValidEmail(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return errors.New("email address is required")
	}

	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return errors.New("invalid email address")
	}
	if parsed.Address != addr {
		return errors.New("email must be a bare address without a display name")
	}
	return nil
}
