package main

import (
	"testing"
)

func TestValidateQuoteItems(t *testing.T) {
	valid := QuoteItemInput{Description: "Design sprint", Quantity: dec("2"),
		UnitPrice: dec("500"), VATRate: dec("20")}

	tests := []struct {
		name    string
		items   []QuoteItemInput
		wantErr bool
	}{
		{"no items", nil, true},
		{"valid item", []QuoteItemInput{valid}, false},
		{
			"blank description",
			[]QuoteItemInput{{Description: "  ", Quantity: dec("1"), UnitPrice: dec("10")}},
			true,
		},
		{
			"zero quantity",
			[]QuoteItemInput{{Description: "x", Quantity: dec("0"), UnitPrice: dec("10")}},
			true,
		},
		{
			"negative price",
			[]QuoteItemInput{{Description: "x", Quantity: dec("1"), UnitPrice: dec("-10")}},
			true,
		},
		{
			"negative vat",
			[]QuoteItemInput{{Description: "x", Quantity: dec("1"), UnitPrice: dec("10"),
				VATRate: dec("-1")}},
			true,
		},
		{
			"discount above 100",
			[]QuoteItemInput{{Description: "x", Quantity: dec("1"), UnitPrice: dec("10"),
				DiscountPct: dec("101")}},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateQuoteItems(tt.items)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateQuoteItems() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQuoteTotals(t *testing.T) {
	items := []QuoteItemInput{
		{Description: "Design", Quantity: dec("2"), UnitPrice: dec("500"), VATRate: dec("20")},
		{Description: "Build", Quantity: dec("1"), UnitPrice: dec("800"), VATRate: dec("20")},
	}

	subtotal, discount, vat, total := quoteTotals(items)

	if !subtotal.Equal(dec("1800")) {
		t.Errorf("subtotal = %s, want 1800", subtotal)
	}
	if !discount.IsZero() {
		t.Errorf("discount = %s, want 0", discount)
	}
	if !vat.Equal(dec("360")) {
		t.Errorf("vat = %s, want 360", vat)
	}
	if !total.Equal(dec("2160")) {
		t.Errorf("total = %s, want 2160", total)
	}
}

func TestQuoteTotalsMixedRates(t *testing.T) {
	items := []QuoteItemInput{
		{Description: "Consulting", Quantity: dec("3"), UnitPrice: dec("100"), VATRate: dec("20")},
		{Description: "Books", Quantity: dec("2"), UnitPrice: dec("25"), VATRate: dec("5.5")},
	}

	subtotal, _, vat, total := quoteTotals(items)

	if !subtotal.Equal(dec("350")) {
		t.Errorf("subtotal = %s, want 350", subtotal)
	}
	// 300*0.20 + 50*0.055 = 62.75
	if !vat.Equal(dec("62.75")) {
		t.Errorf("vat = %s, want 62.75", vat)
	}
	if !total.Equal(dec("412.75")) {
		t.Errorf("total = %s, want 412.75", total)
	}
}

func TestQuoteTransitions(t *testing.T) {
	allowed := func(from, to QuoteStatus) bool {
		for _, s := range quoteTransitions[from] {
			if s == to {
				return true
			}
		}
		return false
	}

	tests := []struct {
		from QuoteStatus
		to   QuoteStatus
		want bool
	}{
		{QuoteDraft, QuoteSent, true},
		{QuoteDraft, QuoteCancelled, true},
		{QuoteDraft, QuoteAccepted, false},
		{QuoteSent, QuoteAccepted, true},
		{QuoteSent, QuoteRejected, true},
		{QuoteSent, QuoteExpired, true},
		{QuoteAccepted, QuoteDraft, false},
		{QuoteAccepted, QuoteSent, false},
		{QuoteCancelled, QuoteSent, false},
	}
	for _, tt := range tests {
		if got := allowed(tt.from, tt.to); got != tt.want {
			t.Errorf("transition %s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestGoalTransitions(t *testing.T) {
	allowed := func(from, to GoalStatus) bool {
		for _, s := range goalTransitions[from] {
			if s == to {
				return true
			}
		}
		return false
	}

	tests := []struct {
		from GoalStatus
		to   GoalStatus
		want bool
	}{
		{GoalActive, GoalPaused, true},
		{GoalActive, GoalCompleted, true},
		{GoalActive, GoalCancelled, true},
		{GoalPaused, GoalActive, true},
		{GoalPaused, GoalCompleted, false},
		{GoalCompleted, GoalActive, false},
		{GoalCancelled, GoalActive, false},
	}
	for _, tt := range tests {
		if got := allowed(tt.from, tt.to); got != tt.want {
			t.Errorf("transition %s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
