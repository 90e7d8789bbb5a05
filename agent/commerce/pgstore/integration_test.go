package pgstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tanpawarit/chative-commerce-agent/agent/commerce"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// openTestDB migrates a throwaway schema on the database named by
// DATABASE_DSN. Tests using it are skipped when the variable is unset.
func openTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("DATABASE_DSN"))
	if dsn == "" {
		t.Skip("DATABASE_DSN is not set")
	}
	ctx := context.Background()
	schemaName := fmt.Sprintf("pgstore_test_%d", time.Now().UnixNano())

	admin := bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))), pgdialect.New())
	t.Cleanup(func() { _ = admin.Close() })
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA "+schemaName); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		_, _ = admin.ExecContext(context.Background(), "DROP SCHEMA "+schemaName+" CASCADE")
	})

	db := bun.NewDB(sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithConnParams(map[string]interface{}{"search_path": schemaName}),
	)), pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func seedProducts(t *testing.T, db *bun.DB, rows ...productRow) []int64 {
	t.Helper()
	if _, err := db.NewInsert().Model(&rows).Returning("id").Exec(context.Background()); err != nil {
		t.Fatalf("seed products: %v", err)
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids
}

func stockIn(t *testing.T, store *Store, id int64) int {
	t.Helper()
	products, err := store.GetProducts(context.Background(), []int64{id})
	if err != nil {
		t.Fatalf("GetProducts() error = %v", err)
	}
	return products[id].StockQuantity
}

func customerOrder(ids []int64, qty []int) commerce.OrderInput {
	return commerce.OrderInput{
		CustomerName:    "Jane Doe",
		CustomerEmail:   "jane@example.com",
		CustomerPhone:   "555-0100",
		ShippingAddress: "1 Main St, New York, NY 10001",
		ProductIDs:      ids,
		Quantities:      qty,
	}
}

func TestPostgresOrderAndReturnLifecycle(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	ids := seedProducts(t, db,
		productRow{Name: "Mechanical Keyboard", Category: "accessories", Price: decimal.RequireFromString("100.00"), WeightLbs: decimal.RequireFromString("2.5"), StockQuantity: 10},
		productRow{Name: "Wireless Mouse", Category: "accessories", Price: decimal.RequireFromString("50.00"), WeightLbs: decimal.RequireFromString("0.5"), StockQuantity: 10},
	)
	keyboard, mouse := ids[0], ids[1]
	store := New(db)
	svc := commerce.NewService(store)

	order, err := svc.CreateOrder(ctx, customerOrder([]int64{keyboard, mouse}, []int{2, 1}))
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if got := order.TotalAmount.StringFixed(2); got != "250.00" {
		t.Fatalf("total = %s, want 250.00", got)
	}
	if !commerce.OrderTotal(order.Items).Equal(order.TotalAmount) {
		t.Fatalf("total must equal the sum of its lines: %+v", order.Items)
	}
	if order.Status != commerce.OrderPending || len(order.Items) != 2 {
		t.Fatalf("unexpected order: %+v", order)
	}
	if got := stockIn(t, store, keyboard); got != 8 {
		t.Fatalf("keyboard stock = %d, want 8", got)
	}
	if got := stockIn(t, store, mouse); got != 9 {
		t.Fatalf("mouse stock = %d, want 9", got)
	}

	if _, err := db.NewUpdate().Model((*productRow)(nil)).
		Set("price = ?", decimal.RequireFromString("120.00")).
		Where("id = ?", keyboard).
		Exec(ctx); err != nil {
		t.Fatalf("reprice: %v", err)
	}

	ret, err := svc.InitiateReturn(ctx, commerce.ReturnInput{
		OrderID: order.ID, Reason: "defective", ProductIDs: []int64{keyboard}, Quantities: []int{1},
	})
	if err != nil {
		t.Fatalf("InitiateReturn() error = %v", err)
	}
	if got := ret.RefundTotalAmount.StringFixed(2); got != "100.00" {
		t.Fatalf("refund must use the price at purchase, got %s", got)
	}

	_, err = svc.InitiateReturn(ctx, commerce.ReturnInput{
		OrderID: order.ID, Reason: "defective", ProductIDs: []int64{keyboard}, Quantities: []int{2},
	})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected over-return to fail validation, got %v", err)
	}

	if _, err := svc.UpdateReturnStatus(ctx, ret.ID, commerce.ReturnRejected); err != nil {
		t.Fatalf("UpdateReturnStatus() error = %v", err)
	}
	returned, err := store.ReturnedQuantities(ctx, order.ID)
	if err != nil {
		t.Fatalf("ReturnedQuantities() error = %v", err)
	}
	if returned[keyboard] != 0 {
		t.Fatalf("rejected returns must not count, got %v", returned)
	}

	if _, err := svc.InitiateReturn(ctx, commerce.ReturnInput{
		OrderID: order.ID, Reason: "defective", ProductIDs: []int64{keyboard}, Quantities: []int{2},
	}); err != nil {
		t.Fatalf("rejected quantity must be returnable again: %v", err)
	}

	details, err := svc.OrderStatus(ctx, order.ID)
	if err != nil {
		t.Fatalf("OrderStatus() error = %v", err)
	}
	if len(details.Returns) != 2 || details.Returns[0].Status != commerce.ReturnRejected {
		t.Fatalf("unexpected returns: %+v", details.Returns)
	}
}

func TestPostgresConcurrentLastUnit(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	ids := seedProducts(t, db,
		productRow{Name: "Studio Headphones", Category: "audio", Price: decimal.RequireFromString("199.99"), WeightLbs: decimal.RequireFromString("1.2"), StockQuantity: 1},
	)
	store := New(db)
	svc := commerce.NewService(store)

	const workers = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		orders []*commerce.Order
		other  []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := svc.CreateOrder(ctx, customerOrder(ids, []int{1}))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				orders = append(orders, order)
			case errors.Is(err, contractx.ErrValidation), errors.Is(err, contractx.ErrConsistency):
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	if len(orders) != 1 || len(other) > 0 {
		t.Fatalf("expected one winning order, got %d (unexpected errors: %v)", len(orders), other)
	}
	if got := stockIn(t, store, ids[0]); got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}

	var success int
	other = nil
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.InitiateReturn(ctx, commerce.ReturnInput{
				OrderID: orders[0].ID, Reason: "defective", ProductIDs: ids, Quantities: []int{1},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, contractx.ErrValidation), errors.Is(err, contractx.ErrConsistency):
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	if success != 1 || len(other) > 0 {
		t.Fatalf("expected one winning return, got %d (unexpected errors: %v)", success, other)
	}
}

func TestPostgresInTxRetriesTransientFailureOnce(t *testing.T) {
	t.Parallel()

	store := New(openTestDB(t))
	ctx := context.Background()

	calls := 0
	err := store.inTx(ctx, "flaky", func(ctx context.Context, tx bun.Tx) error {
		calls++
		if calls == 1 {
			return fmt.Errorf("exec: %w", driver.ErrBadConn)
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("inTx() error = %v after %d calls, want success after 2", err, calls)
	}

	calls = 0
	err = store.inTx(ctx, "invalid", func(ctx context.Context, tx bun.Tx) error {
		calls++
		return contractx.ErrValidation
	})
	if !errors.Is(err, contractx.ErrValidation) || calls != 1 {
		t.Fatalf("non-transient errors must not retry: err=%v calls=%d", err, calls)
	}
}
