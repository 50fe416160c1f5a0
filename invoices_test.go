package main

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestConversionAmount(t *testing.T) {
	quoteTotal := dec("2160")

	tests := []struct {
		name            string
		convType        ConversionType
		alreadyInvoiced string
		depositPct      string
		want            string
		wantErr         bool
	}{
		{"deposit half", ConvertDeposit, "0", "50", "1080", false},
		{"deposit thirty", ConvertDeposit, "0", "30", "648", false},
		{"deposit zero pct", ConvertDeposit, "0", "0", "", true},
		{"deposit above hundred", ConvertDeposit, "0", "101", "", true},
		{"final after deposit", ConvertFinal, "1080", "0", "1080", false},
		{"final fully invoiced", ConvertFinal, "2160", "0", "0", false},
		{"full", ConvertFull, "0", "0", "2160", false},
		{"unknown type", ConversionType("half"), "0", "0", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := conversionAmount(tt.convType, quoteTotal, dec(tt.alreadyInvoiced), dec(tt.depositPct))
			if (err != nil) != tt.wantErr {
				t.Fatalf("conversionAmount() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !got.Equal(dec(tt.want)) {
				t.Errorf("conversionAmount() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSplitInvoiceTotals(t *testing.T) {
	// Quote: 1800 net + 360 VAT = 2160. A 50% deposit invoice keeps the ratio.
	subtotal, vat := splitInvoiceTotals(dec("1080"), dec("1800"), dec("2160"))
	if !subtotal.Equal(dec("900")) {
		t.Errorf("subtotal = %s, want 900", subtotal)
	}
	if !vat.Equal(dec("180")) {
		t.Errorf("vat = %s, want 180", vat)
	}

	// The two parts always reassemble the invoiced amount exactly, even when
	// the ratio does not divide cleanly.
	amount := dec("1000")
	subtotal, vat = splitInvoiceTotals(amount, dec("1800"), dec("2160"))
	if !subtotal.Add(vat).Equal(amount) {
		t.Errorf("subtotal %s + vat %s != %s", subtotal, vat, amount)
	}

	subtotal, vat = splitInvoiceTotals(dec("500"), dec("0"), dec("0"))
	if !subtotal.Equal(dec("500")) || !vat.IsZero() {
		t.Errorf("zero-total quote split = %s/%s, want 500/0", subtotal, vat)
	}
}

func TestPaymentStatus(t *testing.T) {
	total := dec("1080")

	tests := []struct {
		name    string
		paid    string
		current InvoiceStatus
		want    InvoiceStatus
	}{
		{"nothing paid keeps status", "0", InvoiceIssued, InvoiceIssued},
		{"nothing paid keeps overdue", "0", InvoiceOverdue, InvoiceOverdue},
		{"partial", "540", InvoiceIssued, InvoicePartiallyPaid},
		{"partial on overdue", "200", InvoiceOverdue, InvoicePartiallyPaid},
		{"exact", "1080", InvoicePartiallyPaid, InvoicePaid},
		{"over", "1200", InvoiceIssued, InvoicePaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := paymentStatus(total, dec(tt.paid), tt.current); got != tt.want {
				t.Errorf("paymentStatus(%s) = %s, want %s", tt.paid, got, tt.want)
			}
		})
	}
}

func TestConversionAmountDepositRounding(t *testing.T) {
	// 33% of 100.00 rounds to cents.
	got, err := conversionAmount(ConvertDeposit, dec("100"), decimal.Zero, dec("33"))
	if err != nil {
		t.Fatalf("conversionAmount: %v", err)
	}
	if !got.Equal(dec("33")) {
		t.Errorf("deposit = %s, want 33", got)
	}

	got, err = conversionAmount(ConvertDeposit, dec("99.99"), decimal.Zero, dec("33.33"))
	if err != nil {
		t.Fatalf("conversionAmount: %v", err)
	}
	if got.Exponent() < -2 {
		t.Errorf("deposit %s not rounded to cents", got)
	}
}
