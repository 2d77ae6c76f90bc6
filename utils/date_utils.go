package utils

import (
	"strings"

	"cloud.google.com/go/civil"

	"github.com/cakeworks/cake-sales/apperr"
)

// ParseDate parses a YYYY-MM-DD date from a request.
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil || !d.IsValid() {
		return civil.Date{}, apperr.InvalidArgument("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// ParseOptionalDate is ParseDate for optional query parameters; an empty string yields nil.
func ParseOptionalDate(s string) (*civil.Date, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
