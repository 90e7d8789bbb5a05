package pgstore

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/tanpawarit/chative-commerce-agent/agent/commerce"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
)

func TestTransient(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", fmt.Errorf("exec: %w", driver.ErrBadConn), true},
		{"net op", &net.OpError{Op: "read", Err: errors.New("connection reset")}, true},
		{"validation", contractx.ErrValidation, false},
		{"consistency", fmt.Errorf("%w: stock changed", contractx.ErrConsistency), false},
	}
	for _, tc := range cases {
		if got := transient(tc.err); got != tc.want {
			t.Fatalf("%s: transient() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("unexpected escape: %s", got)
	}
}

func TestAllowed(t *testing.T) {
	t.Parallel()

	from := []commerce.OrderStatus{commerce.OrderPending, commerce.OrderProcessing}
	if !allowed("processing", from) {
		t.Fatal("processing must be allowed")
	}
	if allowed("shipped", from) {
		t.Fatal("shipped must not be allowed")
	}
}

func TestOrderRowToDomain(t *testing.T) {
	t.Parallel()

	row := &orderRow{ID: 9, Status: "pending", Items: []*orderItemRow{{ID: 1, OrderID: 9, ProductID: 4, Quantity: 2}}}
	o := row.toDomain()
	if o.Status != commerce.OrderPending || len(o.Items) != 1 || o.Items[0].ProductID != 4 {
		t.Fatalf("unexpected order: %+v", o)
	}
}
