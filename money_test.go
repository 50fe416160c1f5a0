package main

import "testing"

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"19.99", "19.99", false},
		{" 250 ", "250", false},
		{"", "0", false},
		{"-3.50", "-3.50", false},
		{"12,50", "", true},
		{"abc", "", true},
	}
	for _, tt := range tests {
		got, err := parseMoney(tt.in, "amount")
		if (err != nil) != tt.wantErr {
			t.Errorf("parseMoney(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && !got.Equal(dec(tt.want)) {
			t.Errorf("parseMoney(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestRequireMoney(t *testing.T) {
	_, err := requireMoney("  ", "unit_price")
	if err == nil {
		t.Fatal("requireMoney should reject blank input")
	}
	if kindOf(err) != kindInvalidInput {
		t.Errorf("requireMoney error kind = %v, want invalid input", kindOf(err))
	}
	got, err := requireMoney("42.00", "unit_price")
	if err != nil || !got.Equal(dec("42")) {
		t.Errorf("requireMoney(42.00) = %s, %v", got, err)
	}
}
