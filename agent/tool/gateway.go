package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tanpawarit/chative-commerce-agent/agent/commerce"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
	"github.com/tanpawarit/chative-commerce-agent/agent/knowledge"
)

const (
	EventOrderCreated  = "order.created"
	EventReturnCreated = "return.created"
	EventTicketCreated = "ticket.created"

	unavailableMessage = "this service is temporarily unavailable, please try again later"
)

var committingTools = map[string]bool{
	ToolCreateOrder:         true,
	ToolInitiateReturn:      true,
	ToolCreateSupportTicket: true,
}

// KnowledgeSearcher answers search_knowledge_base.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string) ([]knowledge.Document, error)
}

// Observer receives one event per executed tool call.
type Observer interface {
	ObserveToolCall(tool string, success bool)
}

type handler func(ctx context.Context, args map[string]any) (any, error)

// Gateway executes tool calls against the commerce engine and turns every
// outcome, including failures, into a structured ToolResult.
type Gateway struct {
	svc      *commerce.Service
	kb       KnowledgeSearcher
	events   []contractx.EventPublisher
	observer Observer
	timeout  time.Duration
	handlers map[string]handler
}

var _ contractx.ToolGateway = (*Gateway)(nil)

type Option func(*Gateway)

func WithKnowledge(kb KnowledgeSearcher) Option {
	return func(g *Gateway) { g.kb = kb }
}

// WithEvents adds an event sink. Every sink receives every event.
func WithEvents(p contractx.EventPublisher) Option {
	return func(g *Gateway) {
		if p != nil {
			g.events = append(g.events, p)
		}
	}
}

func WithObserver(o Observer) Option {
	return func(g *Gateway) { g.observer = o }
}

// WithCallTimeout bounds each tool call.
func WithCallTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

func NewGateway(svc *commerce.Service, opts ...Option) *Gateway {
	g := &Gateway{svc: svc}
	for _, opt := range opts {
		opt(g)
	}
	g.handlers = map[string]handler{
		ToolDraftOrder:          g.draftOrder,
		ToolCreateOrder:         g.createOrder,
		ToolOrderStatus:         g.orderStatus,
		ToolInitiateReturn:      g.initiateReturn,
		ToolProductCatalog:      g.productCatalog,
		ToolCheckInventory:      g.checkInventory,
		ToolEstimateShipping:    g.estimateShipping,
		ToolCreateSupportTicket: g.createTicket,
		ToolSearchKnowledgeBase: g.searchKnowledgeBase,
	}
	return g
}

// Execute runs reqs in order. The error is non-nil only when ctx is done;
// individual tool failures are reported in their results.
func (g *Gateway) Execute(ctx context.Context, reqs []contractx.ToolRequest) ([]contractx.ToolResult, error) {
	results := make([]contractx.ToolResult, 0, len(reqs))
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := g.call(ctx, req)
		if g.observer != nil {
			g.observer.ObserveToolCall(req.Tool, res.Success)
		}
		results = append(results, res)
	}
	return results, nil
}

func (g *Gateway) call(ctx context.Context, req contractx.ToolRequest) contractx.ToolResult {
	h, ok := g.handlers[req.Tool]
	if !ok {
		return contractx.ToolResult{
			CallID: req.CallID,
			Tool:   req.Tool,
			Error:  fmt.Sprintf("unknown tool %q", req.Tool),
		}
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	args := req.Args
	if args == nil {
		args = map[string]any{}
	}
	out, err := h(callCtx, args)
	if err != nil {
		return g.failure(req, err)
	}
	return contractx.ToolResult{
		CallID:    req.CallID,
		Tool:      req.Tool,
		Success:   true,
		Result:    out,
		Committed: committingTools[req.Tool],
	}
}

type validationDetails struct {
	MissingFields   []string                  `json:"missing_fields,omitempty"`
	InvalidProducts []commerce.InvalidProduct `json:"invalid_products,omitempty"`
	Problems        []string                  `json:"problems,omitempty"`
}

func (g *Gateway) failure(req contractx.ToolRequest, err error) contractx.ToolResult {
	res := contractx.ToolResult{CallID: req.CallID, Tool: req.Tool, Error: err.Error()}

	var verr *commerce.ValidationError
	switch {
	case errors.As(err, &verr):
		res.Result = validationDetails{
			MissingFields:   verr.MissingFields,
			InvalidProducts: verr.InvalidProducts,
			Problems:        verr.Problems,
		}
	case errors.Is(err, contractx.ErrConsistency):
		res.Retryable = true
		log.Warn().Err(err).Str("tool", req.Tool).Msg("tool precondition went stale")
	case errors.Is(err, contractx.ErrDependency), errors.Is(err, context.DeadlineExceeded):
		res.Error = unavailableMessage
		log.Error().Err(err).Str("tool", req.Tool).Msg("tool dependency failure")
	case errors.Is(err, contractx.ErrValidation), errors.Is(err, contractx.ErrNotFound):
	default:
		res.Error = unavailableMessage
		log.Error().Err(err).Str("tool", req.Tool).Msg("tool failed")
	}
	return res
}

func (g *Gateway) publish(ctx context.Context, topic string, payload any) {
	// Publishing runs after the commit, so sink errors are only logged.
	pubCtx := context.WithoutCancel(ctx)
	for _, sink := range g.events {
		if err := sink.Publish(pubCtx, topic, payload); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("event publish failed")
		}
	}
}

func toOrderInput(a orderArgs) commerce.OrderInput {
	return commerce.OrderInput{
		CustomerName:    a.CustomerName,
		CustomerEmail:   a.CustomerEmail,
		CustomerPhone:   a.CustomerPhone,
		ShippingAddress: a.ShippingAddress,
		ProductIDs:      a.ProductIDs,
		Quantities:      a.Quantities,
	}
}

func (g *Gateway) draftOrder(ctx context.Context, args map[string]any) (any, error) {
	var a orderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return g.svc.DraftOrder(ctx, toOrderInput(a))
}

type orderCreatedResult struct {
	Message string `json:"message"`
	commerce.OrderView
}

func (g *Gateway) createOrder(ctx context.Context, args map[string]any) (any, error) {
	var a orderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	order, err := g.svc.CreateOrder(ctx, toOrderInput(a))
	if err != nil {
		return nil, err
	}
	view := commerce.NewOrderView(*order, nil)
	g.publish(ctx, EventOrderCreated, view)
	return orderCreatedResult{
		Message:   fmt.Sprintf("Order #%d created with status %s.", order.ID, order.Status),
		OrderView: view,
	}, nil
}

func (g *Gateway) orderStatus(ctx context.Context, args map[string]any) (any, error) {
	var a orderIDArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	details, err := g.svc.OrderStatus(ctx, a.OrderID)
	if err != nil {
		return nil, err
	}
	return commerce.NewOrderView(details.Order, details.Returns), nil
}

type returnCreatedResult struct {
	Message string `json:"message"`
	commerce.ReturnView
}

func (g *Gateway) initiateReturn(ctx context.Context, args map[string]any) (any, error) {
	var a returnArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	ret, err := g.svc.InitiateReturn(ctx, commerce.ReturnInput{
		OrderID:    a.OrderID,
		Reason:     a.ReturnReason,
		ProductIDs: a.ProductIDs,
		Quantities: a.Quantities,
	})
	if err != nil {
		return nil, err
	}
	view := commerce.NewReturnView(*ret)
	g.publish(ctx, EventReturnCreated, view)
	return returnCreatedResult{
		Message:    fmt.Sprintf("Return #%d opened for order #%d with a refund of %s.", ret.ID, ret.OrderID, view.RefundTotalAmount),
		ReturnView: view,
	}, nil
}

type catalogResult struct {
	Count    int                    `json:"count"`
	Products []commerce.ProductView `json:"products"`
}

func (g *Gateway) productCatalog(ctx context.Context, args map[string]any) (any, error) {
	var a catalogArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	products, err := g.svc.ListProducts(ctx, commerce.ProductFilter{Category: a.Category, Query: a.SearchQuery})
	if err != nil {
		return nil, err
	}
	out := catalogResult{Count: len(products), Products: make([]commerce.ProductView, 0, len(products))}
	for _, p := range products {
		out.Products = append(out.Products, commerce.NewProductView(p))
	}
	return out, nil
}

func (g *Gateway) checkInventory(ctx context.Context, args map[string]any) (any, error) {
	var a inventoryArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return g.svc.CheckInventory(ctx, a.ProductID)
}

func (g *Gateway) estimateShipping(ctx context.Context, args map[string]any) (any, error) {
	var a shippingArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return g.svc.EstimateShipping(ctx, a.DestinationZip, decimal.NewFromFloat(a.Weight), a.ServiceLevel)
}

func (g *Gateway) createTicket(ctx context.Context, args map[string]any) (any, error) {
	var a ticketArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	ticket, err := g.svc.CreateTicket(ctx, commerce.NewTicket{
		CustomerName:     a.CustomerName,
		CustomerEmail:    a.CustomerEmail,
		IssueDescription: a.IssueDescription,
		Priority:         commerce.TicketPriority(a.Priority),
	})
	if err != nil {
		return nil, err
	}
	view := commerce.NewTicketView(*ticket)
	g.publish(ctx, EventTicketCreated, view)
	return view, nil
}

type searchResult struct {
	Count   int                  `json:"count"`
	Results []knowledge.Document `json:"results"`
}

func (g *Gateway) searchKnowledgeBase(ctx context.Context, args map[string]any) (any, error) {
	var a searchArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if g.kb == nil {
		return nil, fmt.Errorf("%w: knowledge base is not configured", contractx.ErrDependency)
	}
	docs, err := g.kb.Search(ctx, a.Query)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []knowledge.Document{}
	}
	return searchResult{Count: len(docs), Results: docs}, nil
}
