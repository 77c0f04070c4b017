package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidPrice = errors.New("invalid price")

// Money is an amount in minor currency units (1/100 of a krone).
type Money int64

// ParseMoney converts a decimal string such as "15", "15.5" or "15.50" into minor units.
// Digits past the second decimal are rounded half-up.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidPrice)
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && hasDot {
		whole = "0"
	}
	if !isDigits(whole) || !isDigits(frac) || (hasDot && frac == "") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > math.MaxInt64/100-1 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidPrice, s)
	}

	var minor int64
	roundUp := false
	for i := 0; i < len(frac); i++ {
		d := int64(frac[i] - '0')
		switch {
		case i < 2:
			minor = minor*10 + d
		case i == 2:
			roundUp = d >= 5
		}
	}
	if len(frac) == 1 {
		minor *= 10
	}

	total := units*100 + minor
	if roundUp {
		total++
	}
	return Money(total), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Times multiplies the amount by a quantity.
func (m Money) Times(quantity int) Money {
	return m * Money(quantity)
}

// String formats the amount with two decimals, e.g. "15.50".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
