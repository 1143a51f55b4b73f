package topology

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	// ErrInvalidAddress is returned when a literal is not a valid integer literal
	ErrInvalidAddress = errors.New("not a valid integer literal")

	// ErrNegativeAddress is returned for literals with a minus sign
	ErrNegativeAddress = errors.New("address must not be negative")

	// ErrMalformedRange is returned when an addr_range is not a pair
	ErrMalformedRange = errors.New("malformed address range")
)

// AddressError describes an address literal that could not be parsed
type AddressError struct {
	Literal string
	Err     error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("invalid address literal %q: %v", e.Literal, e.Err)
}

func (e *AddressError) Unwrap() error {
	return e.Err
}

// ParseAddress parses an address literal such as "0x8000_0000", "0b1010", "0o17" or "4096".
//
// Underscores are removed before parsing. The base is taken from the prefix
// (0x, 0o, 0b, case-insensitive) and defaults to 10. Decimal literals may not
// carry leading zeros unless every digit is zero. There is no upper bound.
func ParseAddress(literal string) (*big.Int, error) {
	s := strings.TrimSpace(strings.ReplaceAll(literal, "_", ""))
	s = strings.TrimPrefix(s, "+")
	if strings.HasPrefix(s, "-") {
		return nil, &AddressError{Literal: literal, Err: ErrNegativeAddress}
	}

	base := 10
	digits := s
	if len(s) >= 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			base, digits = 16, s[2:]
		case 'o', 'O':
			base, digits = 8, s[2:]
		case 'b', 'B':
			base, digits = 2, s[2:]
		}
	}

	// big.Int accepts its own sign prefix; only bare digits are valid here
	if digits == "" || digits[0] == '+' || digits[0] == '-' {
		return nil, &AddressError{Literal: literal, Err: ErrInvalidAddress}
	}
	if base == 10 && len(digits) > 1 && digits[0] == '0' && strings.Trim(digits, "0") != "" {
		return nil, &AddressError{Literal: literal, Err: ErrInvalidAddress}
	}

	v, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, &AddressError{Literal: literal, Err: ErrInvalidAddress}
	}
	return v, nil
}
