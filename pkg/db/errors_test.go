package db

import (
	"errors"
	"testing"
)

func TestIsUniqueViolationWithoutConstraintName(t *testing.T) {
	if IsUniqueViolation(nil) {
		t.Fatal("nil error must not be a unique violation")
	}
	sqliteErr := errors.New("UNIQUE constraint failed: users.telegram_id")
	if !IsUniqueViolation(sqliteErr) {
		t.Fatalf("expected sqlite violation to match: %v", sqliteErr)
	}
	pgErr := errors.New(`ERROR: duplicate key value violates unique constraint "ux_contracts_number" (SQLSTATE 23505)`)
	if !IsUniqueViolation(pgErr) {
		t.Fatalf("expected postgres violation to match: %v", pgErr)
	}
	if IsUniqueViolation(errors.New("connection refused")) {
		t.Fatal("unrelated error must not match")
	}
}

func TestIsUniqueViolationWithConstraintName(t *testing.T) {
	pgErr := errors.New(`ERROR: duplicate key value violates unique constraint "ux_contracts_number" (SQLSTATE 23505)`)
	if !IsUniqueViolation(pgErr, "ux_contracts_number") {
		t.Fatal("expected named constraint to match")
	}
	if IsUniqueViolation(pgErr, "ux_tickets_number") {
		t.Fatal("a different constraint name must not match")
	}
}
