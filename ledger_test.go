package main

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSignedTotal(t *testing.T) {
	tests := []struct {
		name    string
		entries []ledgerEntry
		want    string
	}{
		{"empty ledger", nil, "0"},
		{
			"inflow only",
			[]ledgerEntry{{DirectionIn, dec("100.50")}, {DirectionIn, dec("49.50")}},
			"150",
		},
		{
			"mixed directions",
			[]ledgerEntry{
				{DirectionIn, dec("2800.00")},
				{DirectionOut, dec("950.00")},
				{DirectionOut, dec("86.40")},
			},
			"1763.6",
		},
		{
			"overdrawn",
			[]ledgerEntry{{DirectionIn, dec("10")}, {DirectionOut, dec("25")}},
			"-15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := signedTotal(tt.entries)
			if !got.Equal(dec(tt.want)) {
				t.Errorf("signedTotal = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		amount  string
		wantErr bool
	}{
		{"0.01", false},
		{"999999999999", false},
		{"0", true},
		{"-5", true},
		{"1000000000001", true},
	}
	for _, tt := range tests {
		err := validateAmount(dec(tt.amount))
		if (err != nil) != tt.wantErr {
			t.Errorf("validateAmount(%s) error = %v, wantErr %v", tt.amount, err, tt.wantErr)
		}
		if err != nil && kindOf(err) != kindInvalidInput {
			t.Errorf("validateAmount(%s) kind = %v, want invalid input", tt.amount, kindOf(err))
		}
	}
}

func TestTransactionQueryLimit(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, 100},
		{-7, 100},
		{1, 1},
		{250, 250},
		{500, 500},
		{501, 500},
		{100000, 500},
	}
	for _, tt := range tests {
		if got := transactionQueryLimit(tt.limit); got != tt.want {
			t.Errorf("transactionQueryLimit(%d) = %d, want %d", tt.limit, got, tt.want)
		}
	}
}

func TestDirectionValid(t *testing.T) {
	if !DirectionIn.valid() || !DirectionOut.valid() {
		t.Error("canonical directions must validate")
	}
	if Direction("sideways").valid() {
		t.Error("unknown direction must not validate")
	}
}
