package core

import (
	"fmt"
	"strings"
	"unicode"
)

// DollarStringToCents converts a dollar string such as "$100.23" into whole
// cents. The leading dollar sign and a two-digit cents part are required;
// amounts are never stored as floating point.
func DollarStringToCents(s string) (int64, error) {
	str, ok := strings.CutPrefix(s, "$")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	dollarStr, centsStr, ok := strings.Cut(str, ".")
	if !ok || dollarStr == "" || len(centsStr) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	// Bank alerts format thousands with commas.
	dollarStr = strings.ReplaceAll(dollarStr, ",", "")

	var dollars int64
	for _, r := range dollarStr {
		if !unicode.IsDigit(r) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		dollars = dollars*10 + int64(r-'0')
	}

	var cents int64
	for _, r := range centsStr {
		if !unicode.IsDigit(r) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		cents = cents*10 + int64(r-'0')
	}

	return dollars*100 + cents, nil
}

// CentsToDollarString renders cents as a plain decimal string without the
// dollar sign, e.g. 1234 -> "12.34".
func CentsToDollarString(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
