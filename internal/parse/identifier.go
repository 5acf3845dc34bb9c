package parse

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	serialRe = regexp.MustCompile(`^[A-Z0-9][A-Z0-9/_-]{2,63}$`)
	codeRe   = regexp.MustCompile(`^[A-Z0-9]{1,32}$`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// Identifiers holds the normalized identity of a machine.
type Identifiers struct {
	Serial string
	MID    string
	TID    string
}

// FieldError names the identifier that failed validation.
type FieldError struct {
	Field string
	Msg   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Serial upper-cases a serial number and strips whitespace.
// Vendors print serials like "pax a920 - 1234", which becomes "PAXA920-1234".
func Serial(raw string) (string, error) {
	s := strings.ToUpper(spaceRe.ReplaceAllString(raw, ""))
	if s == "" {
		return "", &FieldError{Field: "serialNumber", Msg: "is required"}
	}
	if !serialRe.MatchString(s) {
		return "", &FieldError{Field: "serialNumber", Msg: fmt.Sprintf("invalid serial number %q", raw)}
	}
	return s, nil
}

// Code normalizes a merchant (MID) or terminal (TID) identifier. Empty is allowed.
func Code(field, raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", nil
	}
	if !codeRe.MatchString(s) {
		return "", &FieldError{Field: field, Msg: fmt.Sprintf("must be 1-32 letters or digits, got %q", raw)}
	}
	return s, nil
}

// ParseIdentifiers normalizes all three machine identifiers at once.
func ParseIdentifiers(serial, mid, tid string) (Identifiers, error) {
	var (
		out Identifiers
		err error
	)
	if out.Serial, err = Serial(serial); err != nil {
		return Identifiers{}, err
	}
	if out.MID, err = Code("mid", mid); err != nil {
		return Identifiers{}, err
	}
	if out.TID, err = Code("tid", tid); err != nil {
		return Identifiers{}, err
	}
	return out, nil
}
