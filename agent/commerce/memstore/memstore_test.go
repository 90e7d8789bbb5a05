package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/tanpawarit/chative-commerce-agent/agent/commerce"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
)

func TestCreateOrderStockGuard(t *testing.T) {
	t.Parallel()

	s := New()
	s.PutProduct(commerce.Product{ID: 1, Name: "Cable", Price: decimal.NewFromInt(5), StockQuantity: 1})

	// A builder that ignores stock must still be stopped by the guard.
	_, err := s.CreateOrder(context.Background(), commerce.NewOrder{CustomerName: "a"}, []int64{1}, func(map[int64]commerce.Product) (commerce.OrderPlan, error) {
		return commerce.OrderPlan{Items: []commerce.OrderItem{{ProductID: 1, Quantity: 2, PriceAtPurchase: decimal.NewFromInt(5)}}}, nil
	})
	if !errors.Is(err, contractx.ErrConsistency) {
		t.Fatalf("expected consistency error, got %v", err)
	}
	products, _ := s.GetProducts(context.Background(), []int64{1})
	if products[1].StockQuantity != 1 {
		t.Fatalf("stock changed on a failed order: %d", products[1].StockQuantity)
	}
}

func TestReturnedQuantitiesIgnoreRejected(t *testing.T) {
	t.Parallel()

	s := New()
	s.PutProduct(commerce.Product{ID: 1, Name: "Cable", Price: decimal.NewFromInt(5), StockQuantity: 5})
	order, err := s.CreateOrder(context.Background(), commerce.NewOrder{}, []int64{1}, func(map[int64]commerce.Product) (commerce.OrderPlan, error) {
		return commerce.OrderPlan{Items: []commerce.OrderItem{{ProductID: 1, Quantity: 3, PriceAtPurchase: decimal.NewFromInt(5)}}}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resolve := func(commerce.Order, map[int64]int) (commerce.ReturnPlan, error) {
		return commerce.ReturnPlan{Items: []commerce.ReturnItem{{ProductID: 1, Quantity: 1, PriceAtPurchase: decimal.NewFromInt(5)}}}, nil
	}
	first, err := s.CreateReturn(context.Background(), order.ID, resolve)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.CreateReturn(context.Background(), order.ID, resolve); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.SetReturnStatus(context.Background(), first.ID, commerce.ReturnRejected, []commerce.ReturnStatus{commerce.ReturnPending}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.ReturnedQuantities(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[1] != 1 {
		t.Fatalf("expected 1 returned unit, got %d", got[1])
	}
}
