package phone

import (
	"errors"
	"strings"

	"github.com/ttacon/libphonenumber"
)

var ErrInvalid = errors.New("invalid phone number")

// Normalize parses raw in the default region and returns it in E.164 form.
// An empty input is valid and stays empty.
func Normalize(raw, defaultRegion string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	num, err := libphonenumber.Parse(raw, defaultRegion)
	if err != nil {
		return "", ErrInvalid
	}
	if !libphonenumber.IsValidNumber(num) {
		return "", ErrInvalid
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}
