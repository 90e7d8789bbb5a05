package database

import (
	"context"
	"testing"
)

func TestEnabled(t *testing.T) {
	t.Parallel()

	if (Config{DSN: "  "}).Enabled() {
		t.Fatal("blank dsn must disable the database")
	}
	if !(Config{DSN: "postgres://localhost/shop"}).Enabled() {
		t.Fatal("dsn must enable the database")
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatal("expected error without dsn")
	}
}
