package main

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errKind
	}{
		{"not found", errNotFound("account"), kindNotFound},
		{"ownership", errOwnership("account"), kindOwnership},
		{"invalid input", errInvalidInput("bad %s", "value"), kindInvalidInput},
		{"scope coherence", errScopeCoherence("mismatch"), kindScopeCoherence},
		{"state conflict", errStateConflict("wrong state"), kindStateConflict},
		{"nothing to invoice", errNothingToInvoice(), kindNothingToInvoice},
		{"plain error", errors.New("boom"), kindInternal},
		{"nil-ish wrapped driver error", fmt.Errorf("query: %w", errors.New("io")), kindInternal},
	}
	for _, tt := range tests {
		if got := kindOf(tt.err); got != tt.want {
			t.Errorf("%s: kindOf = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("while updating quote: %w", errStateConflict("quote is not draft"))
	if kindOf(err) != kindStateConflict {
		t.Errorf("wrapped kind = %v, want state conflict", kindOf(err))
	}
}
