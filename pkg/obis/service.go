package obis

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse reads a code written as six integers separated by any of . , - :
// e.g. "1.0.1.8.0.255" or "1-0:1.8.0.255".
func Parse(s string) (Code, error) {
	parts := split(strings.TrimSpace(s))
	if len(parts) != 6 {
		return Code{}, fmt.Errorf("%w %q: must consist of 6 numerals separated by one of .,-:", ErrInvalidCode, s)
	}

	var code Code
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Code{}, fmt.Errorf("%w %q: component %d is not a number", ErrInvalidCode, s, i+1)
		}
		if v < 0 || v > 255 {
			return Code{}, fmt.Errorf("%w %q: value %d is outside valid range (0,255)", ErrInvalidCode, s, v)
		}
		code[i] = byte(v)
	}
	return code, nil
}

// MustParse is Parse for package level constants and tests.
func MustParse(s string) Code {
	code, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return code
}

// FromBytes converts a 6 byte octet-string into a code.
func FromBytes(b []byte) (Code, bool) {
	var code Code
	if len(b) != len(code) {
		return code, false
	}
	copy(code[:], b)
	return code, true
}

func (c Code) String() string {
	return fmt.Sprintf("%d.%d.%d.%d.%d.%d", c[0], c[1], c[2], c[3], c[4], c[5])
}

// Reduced renders the IEC 62056-61 short form, e.g. "1-0:1.8.0".
// The F group is omitted when it is 255.
func (c Code) Reduced() string {
	s := fmt.Sprintf("%d-%d:%d.%d.%d", c[0], c[1], c[2], c[3], c[4])
	if c[5] != 255 {
		s += fmt.Sprintf(".%d", c[5])
	}
	return s
}

func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Code) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// split keeps empty components so "1..0.1.8.0" fails on the empty field.
func split(s string) []string {
	var parts []string
	start := 0
	for i, r := range s {
		if r == '.' || r == ',' || r == '-' || r == ':' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
