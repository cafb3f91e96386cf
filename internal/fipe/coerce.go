package fipe

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPrice          = errors.New("invalid price")
	ErrInvalidYearCode       = errors.New("invalid year code")
	ErrInvalidReferenceMonth = errors.New("invalid reference month")
)

var referenceMonthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ParsePrice converts a FIPE currency string such as "R$ 85.432,10" into a
// decimal. Thousands are separated by '.', decimals by ','.
func ParsePrice(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\t':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}

	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)

	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	return price, nil
}

// ParseYearCode extracts the model year from a composite code like "2017-1"
// (year, then fuel code). A bare year is accepted too.
func ParseYearCode(code string) (int, error) {
	head, _, _ := strings.Cut(strings.TrimSpace(code), "-")
	year, err := strconv.Atoi(head)
	if err != nil || year <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidYearCode, code)
	}
	return year, nil
}

// ValidateReferenceMonth checks the YYYY-MM shape used for snapshots.
func ValidateReferenceMonth(month string) error {
	if !referenceMonthRe.MatchString(month) {
		return fmt.Errorf("%w: %q", ErrInvalidReferenceMonth, month)
	}
	return nil
}
