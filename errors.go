package main

import (
	"errors"
	"fmt"
)

// errKind classifies domain failures so the API layer can map them to a
// stable status family without string matching.
type errKind int

const (
	kindNotFound errKind = iota
	kindOwnership
	kindInvalidInput
	kindScopeCoherence
	kindStateConflict
	kindNothingToInvoice
	kindInternal
)

type domainError struct {
	kind errKind
	msg  string
	err  error
}

func (e *domainError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *domainError) Unwrap() error { return e.err }

func errNotFound(entity string) error {
	return &domainError{kind: kindNotFound, msg: entity + " not found"}
}

// errOwnership reports that a row exists but belongs to another user. The
// API layer masks this as a plain 404 so it never confirms existence,
// but callers inside the core can tell the two apart.
func errOwnership(entity string) error {
	return &domainError{kind: kindOwnership, msg: entity + " is not owned by this user"}
}

func errInvalidInput(format string, args ...any) error {
	return &domainError{kind: kindInvalidInput, msg: fmt.Sprintf(format, args...)}
}

func errScopeCoherence(format string, args ...any) error {
	return &domainError{kind: kindScopeCoherence, msg: fmt.Sprintf(format, args...)}
}

func errStateConflict(format string, args ...any) error {
	return &domainError{kind: kindStateConflict, msg: fmt.Sprintf(format, args...)}
}

func errNothingToInvoice() error {
	return &domainError{kind: kindNothingToInvoice, msg: "nothing left to invoice on this quote"}
}

// kindOf extracts the classification from an error chain. Unclassified
// errors (driver failures, context cancellation) report kindInternal.
func kindOf(err error) errKind {
	var de *domainError
	if errors.As(err, &de) {
		return de.kind
	}
	return kindInternal
}
