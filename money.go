package main

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money crosses the API boundary as decimal strings, never binary floats.

func parseMoney(s, field string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errInvalidInput("%s is not a valid decimal amount", field)
	}
	return d, nil
}

func requireMoney(s, field string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, errInvalidInput("%s is required", field)
	}
	return parseMoney(s, field)
}
