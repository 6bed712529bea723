// Package embarkid parses and renders Embark IDs of the form name#1234.
package embarkid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Name lengths are counted in bytes of the UTF-8 encoding.
const (
	MinNameLength = 2
	MaxNameLength = 16
	MinNumber     = 1
	MaxNumber     = 9999
)

var (
	ErrInvalidFormat = errors.New("embark id must contain exactly one '#'")
	ErrNameLength    = errors.New("embark id name must be between 2 and 16 bytes")
	ErrInvalidNumber = errors.New("embark id number must be an integer between 1 and 9999")
)

// ParseError reports why an input could not be parsed. Reason is one of the
// sentinel errors above.
type ParseError struct {
	Input  string
	Reason error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid embark id %q: %v", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Reason
}

// ID is a validated Embark ID. The zero value is not valid.
type ID struct {
	name   string
	number uint16
}

// Parse validates s and returns the ID it describes.
func Parse(s string) (ID, error) {
	parts := strings.Split(s, "#")
	if len(parts) != 2 {
		return ID{}, &ParseError{Input: s, Reason: ErrInvalidFormat}
	}

	name := strings.TrimSpace(parts[0])
	digits := strings.TrimSpace(parts[1])

	if n := len(name); n < MinNameLength || n > MaxNameLength {
		return ID{}, &ParseError{Input: s, Reason: ErrNameLength}
	}

	number, err := strconv.ParseUint(digits, 10, 16)
	if err != nil || number < MinNumber || number > MaxNumber {
		return ID{}, &ParseError{Input: s, Reason: ErrInvalidNumber}
	}

	return ID{name: name, number: uint16(number)}, nil
}

// MustParse is like Parse but panics on invalid input.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Name returns the part before '#'.
func (id ID) Name() string { return id.name }

// Number returns the numeric suffix.
func (id ID) Number() int { return int(id.number) }

// IsZero reports whether id was never parsed.
func (id ID) IsZero() bool { return id.number == 0 }

// String renders the ID with the number zero-padded to four digits.
func (id ID) String() string {
	return fmt.Sprintf("%s#%04d", id.name, id.number)
}
