// Package memstore is an in-process commerce.Store. A single mutex serialises
// every transaction, which gives the same isolation the Postgres store gets
// from row locks.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tanpawarit/chative-commerce-agent/agent/commerce"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
)

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	products map[int64]commerce.Product
	rates    []commerce.ShippingRate
	orders   map[int64]commerce.Order
	returns  map[int64]commerce.ReturnOrder
	tickets  map[int64]commerce.SupportTicket

	nextOrder, nextOrderItem   int64
	nextReturn, nextReturnItem int64
	nextTicket, nextRate       int64
}

var _ commerce.Store = (*Store)(nil)

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		now:      time.Now,
		products: make(map[int64]commerce.Product),
		orders:   make(map[int64]commerce.Order),
		returns:  make(map[int64]commerce.ReturnOrder),
		tickets:  make(map[int64]commerce.SupportTicket),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutProduct inserts or replaces a catalog row.
func (s *Store) PutProduct(p commerce.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *Store) PutShippingRate(r commerce.ShippingRate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		s.nextRate++
		r.ID = s.nextRate
	}
	s.rates = append(s.rates, r)
}

// SetPrice changes the catalog price of an existing product.
func (s *Store) SetPrice(id int64, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("%w: product #%d", contractx.ErrNotFound, id)
	}
	p.Price = price
	s.products[id] = p
	return nil
}

func (s *Store) GetProducts(_ context.Context, ids []int64) (map[int64]commerce.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.productsLocked(ids), nil
}

func (s *Store) productsLocked(ids []int64) map[int64]commerce.Product {
	out := make(map[int64]commerce.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out
}

func (s *Store) ListProducts(_ context.Context, filter commerce.ProductFilter) ([]commerce.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(filter.Query)
	out := make([]commerce.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.Category != "" && !strings.EqualFold(p.Category, filter.Category) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ShippingRates(_ context.Context, serviceType string) ([]commerce.ShippingRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []commerce.ShippingRate
	for _, r := range s.rates {
		if strings.EqualFold(r.ServiceType, serviceType) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) GetOrder(_ context.Context, id int64) (*commerce.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: order #%d", contractx.ErrNotFound, id)
	}
	o = cloneOrder(o)
	return &o, nil
}

func (s *Store) CreateOrder(_ context.Context, header commerce.NewOrder, productIDs []int64, build commerce.OrderBuilder) (*commerce.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := build(s.productsLocked(productIDs))
	if err != nil {
		return nil, err
	}
	if len(plan.Items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", contractx.ErrValidation)
	}
	for _, it := range plan.Items {
		p, ok := s.products[it.ProductID]
		if !ok || p.StockQuantity < it.Quantity {
			return nil, fmt.Errorf("%w: stock for product #%d changed", contractx.ErrConsistency, it.ProductID)
		}
	}

	now := s.now()
	s.nextOrder++
	order := commerce.Order{
		ID:              s.nextOrder,
		CustomerName:    header.CustomerName,
		CustomerEmail:   header.CustomerEmail,
		CustomerPhone:   header.CustomerPhone,
		ShippingAddress: header.ShippingAddress,
		Status:          commerce.OrderPending,
		TotalAmount:     plan.TotalAmount,
		Items:           make([]commerce.OrderItem, 0, len(plan.Items)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, it := range plan.Items {
		p := s.products[it.ProductID]
		p.StockQuantity -= it.Quantity
		s.products[it.ProductID] = p

		s.nextOrderItem++
		it.ID = s.nextOrderItem
		it.OrderID = order.ID
		order.Items = append(order.Items, it)
	}
	s.orders[order.ID] = order

	out := cloneOrder(order)
	return &out, nil
}

func (s *Store) SetOrderStatus(_ context.Context, id int64, to commerce.OrderStatus, from []commerce.OrderStatus) (*commerce.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: order #%d", contractx.ErrNotFound, id)
	}
	if !slices.Contains(from, o.Status) {
		return nil, fmt.Errorf("%w: order #%d is %s and cannot become %s", contractx.ErrValidation, id, o.Status, to)
	}
	o.Status = to
	o.UpdatedAt = s.now()
	s.orders[id] = o
	out := cloneOrder(o)
	return &out, nil
}

func (s *Store) ListReturns(_ context.Context, orderID int64) ([]commerce.ReturnOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []commerce.ReturnOrder
	for _, r := range s.returns {
		if r.OrderID == orderID {
			out = append(out, cloneReturn(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ReturnedQuantities(_ context.Context, orderID int64) (map[int64]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.returnedLocked(orderID), nil
}

func (s *Store) returnedLocked(orderID int64) map[int64]int {
	out := make(map[int64]int)
	for _, r := range s.returns {
		if r.OrderID != orderID || r.Status == commerce.ReturnRejected {
			continue
		}
		for _, it := range r.Items {
			out[it.ProductID] += it.Quantity
		}
	}
	return out
}

func (s *Store) CreateReturn(_ context.Context, orderID int64, resolve commerce.ReturnResolver) (*commerce.ReturnOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order #%d", contractx.ErrNotFound, orderID)
	}
	plan, err := resolve(cloneOrder(o), s.returnedLocked(orderID))
	if err != nil {
		return nil, err
	}
	if len(plan.Items) == 0 {
		return nil, fmt.Errorf("%w: return has no items", contractx.ErrValidation)
	}

	now := s.now()
	s.nextReturn++
	ret := commerce.ReturnOrder{
		ID:                s.nextReturn,
		OrderID:           orderID,
		Reason:            plan.Reason,
		Status:            commerce.ReturnPending,
		RefundTotalAmount: plan.RefundTotalAmount,
		Items:             make([]commerce.ReturnItem, 0, len(plan.Items)),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, it := range plan.Items {
		s.nextReturnItem++
		it.ID = s.nextReturnItem
		it.ReturnID = ret.ID
		ret.Items = append(ret.Items, it)
	}
	s.returns[ret.ID] = ret

	out := cloneReturn(ret)
	return &out, nil
}

func (s *Store) SetReturnStatus(_ context.Context, id int64, to commerce.ReturnStatus, from []commerce.ReturnStatus) (*commerce.ReturnOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.returns[id]
	if !ok {
		return nil, fmt.Errorf("%w: return #%d", contractx.ErrNotFound, id)
	}
	if !slices.Contains(from, r.Status) {
		return nil, fmt.Errorf("%w: return #%d is %s and cannot become %s", contractx.ErrValidation, id, r.Status, to)
	}
	r.Status = to
	r.UpdatedAt = s.now()
	s.returns[id] = r
	out := cloneReturn(r)
	return &out, nil
}

func (s *Store) CreateTicket(_ context.Context, t commerce.NewTicket) (*commerce.SupportTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTicket++
	ticket := commerce.SupportTicket{
		ID:               s.nextTicket,
		CustomerName:     t.CustomerName,
		CustomerEmail:    t.CustomerEmail,
		IssueDescription: t.IssueDescription,
		Priority:         t.Priority,
		Status:           "open",
		CreatedAt:        s.now(),
	}
	s.tickets[ticket.ID] = ticket
	return &ticket, nil
}

// Tickets returns every stored ticket ordered by id.
func (s *Store) Tickets() []commerce.SupportTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]commerce.SupportTicket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cloneOrder(o commerce.Order) commerce.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

func cloneReturn(r commerce.ReturnOrder) commerce.ReturnOrder {
	r.Items = slices.Clone(r.Items)
	return r
}
