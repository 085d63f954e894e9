// Package phone normalizes UK phone numbers to E.164 so the same
// customer never enrolls twice under "07700 900123" and "+447700900123".
package phone

import (
	"errors"
	"strings"

	"github.com/ttacon/libphonenumber"
)

// DefaultRegion is applied to numbers entered without a country prefix.
const DefaultRegion = "GB"

var ErrInvalid = errors.New("invalid_phone")

// Normalize parses and validates a phone number and returns it in E.164.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalid
	}

	parsed, err := libphonenumber.Parse(raw, DefaultRegion)
	if err != nil {
		return "", ErrInvalid
	}
	if !libphonenumber.IsValidNumber(parsed) {
		return "", ErrInvalid
	}
	return libphonenumber.Format(parsed, libphonenumber.E164), nil
}
