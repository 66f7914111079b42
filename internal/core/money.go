// Package core holds the domain model of the revenue engine: budget lines,
// transaction review statuses, money handling and the budget calendar.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Money is a monetary amount in the smallest currency unit.
type Money struct {
	Cents int64 `json:"cents"`
}

// ParseAmountToCents converts a decimal string to cents with half-up rounding
// on the third decimal place. Both dot and comma decimal separators are
// accepted, and thousands separators ("1,250,000.50") are tolerated. Budget
// amounts may legitimately be zero, so zero parses fine; negative values do
// not.
func ParseAmountToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	// "1.250.000,50" and "1,250,000.50" both appear in uploaded sheets.
	// Whatever separator comes last is the decimal one; strip the rest.
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')
	sep := lastDot
	if lastComma > lastDot {
		sep = lastComma
	}
	intPart, fracPart := s, ""
	if sep >= 0 {
		head, tail := s[:sep], s[sep+1:]
		if len(tail) == 3 && !strings.ContainsAny(head, ".,") {
			// A single separator followed by exactly three digits is a
			// thousands separator, not a decimal point.
			intPart, fracPart = head+tail, ""
		} else {
			intPart, fracPart = head, tail
		}
	}
	intPart = strings.ReplaceAll(strings.ReplaceAll(intPart, ",", ""), ".", "")
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}

// Units returns the amount in whole currency units for reporting math.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}
