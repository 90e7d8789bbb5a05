package commerce

import (
	"context"
	"fmt"
	"net/mail"
	"slices"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
)

var serviceLevels = []string{"standard", "express", "overnight"}

var ticketPriorities = []TicketPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

type InventoryStatus struct {
	ProductID     int64  `json:"product_id"`
	Name          string `json:"name"`
	StockQuantity int    `json:"stock_quantity"`
	InStock       bool   `json:"in_stock"`
}

type ShippingQuote struct {
	DestinationZip string           `json:"destination_zip"`
	WeightLbs      string           `json:"weight_lbs"`
	ServiceLevel   string           `json:"service_level"`
	Options        []ShippingOption `json:"options"`
}

type ShippingOption struct {
	Carrier       string `json:"carrier"`
	ServiceType   string `json:"service_type"`
	Cost          string `json:"cost"`
	EstimatedDays int    `json:"estimated_days"`
}

// ListProducts matches Query case-insensitively against name and description.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Query = strings.TrimSpace(filter.Query)
	products, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, storeErr("list products", err)
	}
	sort.SliceStable(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (s *Service) CheckInventory(ctx context.Context, productID int64) (InventoryStatus, error) {
	if productID <= 0 {
		return InventoryStatus{}, &ValidationError{MissingFields: []string{"product_id"}}
	}
	products, err := s.store.GetProducts(ctx, []int64{productID})
	if err != nil {
		return InventoryStatus{}, storeErr("load product", err)
	}
	p, ok := products[productID]
	if !ok {
		return InventoryStatus{}, fmt.Errorf("%w: product #%d", contractx.ErrNotFound, productID)
	}
	return InventoryStatus{
		ProductID:     p.ID,
		Name:          p.Name,
		StockQuantity: p.StockQuantity,
		InStock:       p.StockQuantity > 0,
	}, nil
}

// EstimateShipping prices every carrier rate of the service level as
// base_rate + per_lb_rate × weight, cheapest first.
func (s *Service) EstimateShipping(ctx context.Context, zip string, weight decimal.Decimal, level string) (ShippingQuote, error) {
	zip = strings.TrimSpace(zip)
	level = strings.ToLower(strings.TrimSpace(level))

	verr := &ValidationError{}
	if zip == "" {
		verr.MissingFields = append(verr.MissingFields, "destination_zip")
	}
	if !weight.IsPositive() {
		verr.addProblem("weight must be greater than zero")
	}
	if level == "" {
		verr.MissingFields = append(verr.MissingFields, "service_level")
	} else if !slices.Contains(serviceLevels, level) {
		verr.addProblem("service_level must be one of %s", strings.Join(serviceLevels, ", "))
	}
	if !verr.empty() {
		return ShippingQuote{}, verr
	}

	rates, err := s.store.ShippingRates(ctx, level)
	if err != nil {
		return ShippingQuote{}, storeErr("load shipping rates", err)
	}
	if len(rates) == 0 {
		return ShippingQuote{}, fmt.Errorf("%w: no shipping rates for service level %q", contractx.ErrNotFound, level)
	}

	type priced struct {
		rate ShippingRate
		cost decimal.Decimal
	}
	all := make([]priced, 0, len(rates))
	for _, r := range rates {
		all = append(all, priced{rate: r, cost: r.BaseRate.Add(r.PerLbRate.Mul(weight)).Round(2)})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].cost.LessThan(all[j].cost) })

	quote := ShippingQuote{
		DestinationZip: zip,
		WeightLbs:      weight.String(),
		ServiceLevel:   level,
		Options:        make([]ShippingOption, 0, len(all)),
	}
	for _, p := range all {
		quote.Options = append(quote.Options, ShippingOption{
			Carrier:       p.rate.Carrier,
			ServiceType:   p.rate.ServiceType,
			Cost:          p.cost.StringFixed(2),
			EstimatedDays: p.rate.EstimatedDays,
		})
	}
	return quote, nil
}

func (s *Service) CreateTicket(ctx context.Context, t NewTicket) (*SupportTicket, error) {
	t.CustomerName = strings.TrimSpace(t.CustomerName)
	t.CustomerEmail = strings.TrimSpace(t.CustomerEmail)
	t.IssueDescription = strings.TrimSpace(t.IssueDescription)
	t.Priority = TicketPriority(strings.ToLower(strings.TrimSpace(string(t.Priority))))

	verr := &ValidationError{}
	if t.CustomerName == "" {
		verr.MissingFields = append(verr.MissingFields, FieldCustomerName)
	}
	if t.CustomerEmail == "" {
		verr.MissingFields = append(verr.MissingFields, FieldCustomerEmail)
	} else if _, err := mail.ParseAddress(t.CustomerEmail); err != nil {
		verr.addProblem("customer_email %q is not a valid address", t.CustomerEmail)
	}
	if t.IssueDescription == "" {
		verr.MissingFields = append(verr.MissingFields, "issue_description")
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	} else if !slices.Contains(ticketPriorities, t.Priority) {
		verr.addProblem("priority must be one of low, medium, high, urgent")
	}
	if !verr.empty() {
		return nil, verr
	}

	ticket, err := s.store.CreateTicket(ctx, t)
	if err != nil {
		return nil, storeErr("create ticket", err)
	}
	log.Info().Int64("ticket_id", ticket.ID).Str("priority", string(ticket.Priority)).Msg("support ticket created")
	return ticket, nil
}
