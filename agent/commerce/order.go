package commerce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
)

// Service is the order/return engine behind the assistant's tools.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

type DraftResult struct {
	ReadyToOrder    bool             `json:"ready_to_order"`
	Message         string           `json:"message"`
	MissingFields   []string         `json:"missing_fields,omitempty"`
	ProvidedFields  []string         `json:"provided_fields,omitempty"`
	InvalidProducts []InvalidProduct `json:"invalid_products,omitempty"`
	Problems        []string         `json:"problems,omitempty"`
	Summary         *OrderSummary    `json:"order_summary,omitempty"`
}

type OrderSummary struct {
	CustomerName    string        `json:"customer_name"`
	CustomerEmail   string        `json:"customer_email"`
	CustomerPhone   string        `json:"customer_phone"`
	ShippingAddress string        `json:"shipping_address"`
	Products        []SummaryLine `json:"products"`
	TotalCost       string        `json:"total_cost"`
	TotalWeightLbs  string        `json:"total_weight_lbs"`
}

type SummaryLine struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	ItemTotal string `json:"item_total"`
}

type OrderDetails struct {
	Order   Order
	Returns []ReturnOrder
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderProcessing: {OrderPending},
	OrderShipped:    {OrderProcessing},
	OrderDelivered:  {OrderShipped},
	OrderCancelled:  {OrderPending, OrderProcessing},
}

// DraftOrder validates a possibly incomplete order without writing anything.
// Identical input against an unchanged catalog yields an identical result.
func (s *Service) DraftOrder(ctx context.Context, in OrderInput) (DraftResult, error) {
	c, err := s.check(ctx, in)
	if err != nil {
		return DraftResult{}, err
	}

	res := DraftResult{
		ReadyToOrder:    c.ready(),
		MissingFields:   c.missing,
		ProvidedFields:  c.provided,
		InvalidProducts: c.invalid,
		Problems:        c.problems,
	}
	if !res.ReadyToOrder {
		res.Message = c.err().Error()
		return res, nil
	}

	cost, weight := c.totals()
	summary := &OrderSummary{
		CustomerName:    c.input.CustomerName,
		CustomerEmail:   c.input.CustomerEmail,
		CustomerPhone:   c.input.CustomerPhone,
		ShippingAddress: c.input.ShippingAddress,
		Products:        make([]SummaryLine, 0, len(c.lines)),
		TotalCost:       cost.StringFixed(2),
		TotalWeightLbs:  weight.StringFixed(2),
	}
	for _, l := range c.lines {
		summary.Products = append(summary.Products, SummaryLine{
			ProductID: l.product.ID,
			Name:      l.product.Name,
			Quantity:  l.quantity,
			UnitPrice: l.product.Price.StringFixed(2),
			ItemTotal: lineTotal(l.product.Price, l.quantity).StringFixed(2),
		})
	}
	res.Summary = summary
	res.Message = "All required information is present. Confirm the summary with the customer before calling create_order."
	return res, nil
}

// CreateOrder re-validates the input from scratch and commits the order.
func (s *Service) CreateOrder(ctx context.Context, in OrderInput) (*Order, error) {
	c, err := s.check(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := c.err(); err != nil {
		return nil, err
	}

	input := c.input
	order, err := s.store.CreateOrder(ctx, input.header(), input.requestedIDs(), func(locked map[int64]Product) (OrderPlan, error) {
		again := evaluateOrder(input, locked)
		if err := again.err(); err != nil {
			return OrderPlan{}, stale(err)
		}
		return again.plan(), nil
	})
	if err != nil {
		return nil, storeErr("create order", err)
	}

	log.Info().
		Int64("order_id", order.ID).
		Str("total_amount", order.TotalAmount.StringFixed(2)).
		Int("items", len(order.Items)).
		Msg("order created")
	return order, nil
}

func (s *Service) OrderStatus(ctx context.Context, orderID int64) (*OrderDetails, error) {
	if orderID <= 0 {
		return nil, &ValidationError{MissingFields: []string{"order_id"}}
	}
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, storeErr("load order", err)
	}
	returns, err := s.store.ListReturns(ctx, orderID)
	if err != nil {
		return nil, storeErr("load returns", err)
	}
	return &OrderDetails{Order: *order, Returns: returns}, nil
}

func (s *Service) UpdateOrderStatus(ctx context.Context, orderID int64, to OrderStatus) (*Order, error) {
	to = OrderStatus(strings.ToLower(strings.TrimSpace(string(to))))
	from, ok := orderTransitions[to]
	if !ok {
		return nil, fmt.Errorf("%w: orders cannot be moved to status %q", contractx.ErrValidation, to)
	}
	order, err := s.store.SetOrderStatus(ctx, orderID, to, from)
	if err != nil {
		return nil, storeErr("update order status", err)
	}
	log.Info().Int64("order_id", orderID).Str("status", string(to)).Msg("order status updated")
	return order, nil
}

func (s *Service) check(ctx context.Context, in OrderInput) (orderCheck, error) {
	in = in.normalized()
	var products map[int64]Product
	if ids := in.requestedIDs(); len(ids) > 0 {
		var err error
		products, err = s.store.GetProducts(ctx, ids)
		if err != nil {
			return orderCheck{}, storeErr("load products", err)
		}
	}
	return evaluateOrder(in, products), nil
}

// OrderTotal recomputes Σ price_at_purchase × quantity over the order's lines.
func OrderTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(lineTotal(it.PriceAtPurchase, it.Quantity))
	}
	return total
}
