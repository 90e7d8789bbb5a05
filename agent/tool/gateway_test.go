package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/tanpawarit/chative-commerce-agent/agent/commerce"
	"github.com/tanpawarit/chative-commerce-agent/agent/commerce/memstore"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
	"github.com/tanpawarit/chative-commerce-agent/agent/knowledge"
)

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return p.err
}

type fakeSearcher struct {
	docs []knowledge.Document
}

func (f fakeSearcher) Search(context.Context, string) ([]knowledge.Document, error) {
	return f.docs, nil
}

// inflatedStore reports more stock than it really has, so the pre-check
// passes and the transaction finds the precondition stale.
type inflatedStore struct {
	*memstore.Store
}

func (s inflatedStore) GetProducts(ctx context.Context, ids []int64) (map[int64]commerce.Product, error) {
	products, err := s.Store.GetProducts(ctx, ids)
	for id, p := range products {
		p.StockQuantity += 100
		products[id] = p
	}
	return products, err
}

func seededStore() *memstore.Store {
	store := memstore.New()
	store.PutProduct(commerce.Product{ID: 1, Name: "Mechanical Keyboard", Category: "accessories", Price: decimal.RequireFromString("100.00"), WeightLbs: decimal.RequireFromString("2"), StockQuantity: 5})
	store.PutProduct(commerce.Product{ID: 2, Name: "Wireless Mouse", Category: "accessories", Price: decimal.RequireFromString("50.00"), WeightLbs: decimal.RequireFromString("0.5"), StockQuantity: 5})
	store.PutShippingRate(commerce.ShippingRate{Carrier: "UPS", ServiceType: "express", BaseRate: decimal.RequireFromString("12.00"), PerLbRate: decimal.RequireFromString("1.00"), EstimatedDays: 2})
	return store
}

// jsonArgs mimics arguments decoded from the reasoning service's JSON.
func jsonArgs(t *testing.T, raw string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("bad args: %v", err)
	}
	return out
}

func execOne(t *testing.T, g *Gateway, tool, raw string) contractx.ToolResult {
	t.Helper()
	results, err := g.Execute(context.Background(), []contractx.ToolRequest{{CallID: "call-1", Tool: tool, Args: jsonArgs(t, raw)}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(results) != 1 || results[0].CallID != "call-1" || results[0].Tool != tool {
		t.Fatalf("unexpected results: %+v", results)
	}
	return results[0]
}

const customer = `"customer_name":"Jane Doe","customer_email":"jane@example.com","customer_phone":"555-0100","shipping_address":"1 Main St"`

func TestInfosCoverEveryHandler(t *testing.T) {
	t.Parallel()

	g := NewGateway(commerce.NewService(seededStore()))
	infos := Infos()
	if len(infos) != len(g.handlers) {
		t.Fatalf("expected %d tool infos, got %d", len(g.handlers), len(infos))
	}
	for _, info := range infos {
		if _, ok := g.handlers[info.Name]; !ok {
			t.Fatalf("no handler for %s", info.Name)
		}
	}
}

func TestDraftOrderReportsInvalidProduct(t *testing.T) {
	t.Parallel()

	g := NewGateway(commerce.NewService(seededStore()))
	res := execOne(t, g, ToolDraftOrder, `{`+customer+`,"product_ids":[9999],"quantities":[1]}`)
	if !res.Success {
		t.Fatalf("draft itself must succeed: %+v", res)
	}
	draft, ok := res.Result.(commerce.DraftResult)
	if !ok {
		t.Fatalf("unexpected result type: %T", res.Result)
	}
	if draft.ReadyToOrder || len(draft.InvalidProducts) != 1 || draft.InvalidProducts[0].ProductID != 9999 {
		t.Fatalf("unexpected draft: %+v", draft)
	}
}

func TestCreateOrderPublishesEvent(t *testing.T) {
	t.Parallel()

	events := &fakePublisher{}
	g := NewGateway(commerce.NewService(seededStore()), WithEvents(events))
	res := execOne(t, g, ToolCreateOrder, `{`+customer+`,"product_ids":[1,2],"quantities":[2,1]}`)
	if !res.Success {
		t.Fatalf("unexpected failure: %+v", res)
	}
	out := res.Result.(orderCreatedResult)
	if out.TotalAmount != "250.00" || out.Status != commerce.OrderPending {
		t.Fatalf("unexpected order: %+v", out)
	}
	if len(events.topics) != 1 || events.topics[0] != EventOrderCreated {
		t.Fatalf("unexpected events: %v", events.topics)
	}
	if !res.Committed {
		t.Fatal("a placed order must be marked as committed")
	}

	lookup := execOne(t, g, ToolOrderStatus, fmt.Sprintf(`{"order_id":%d}`, out.OrderID))
	if !lookup.Success || lookup.Committed {
		t.Fatalf("a read must not be marked as committed: %+v", lookup)
	}
}

func TestPublishFailureDoesNotFailTool(t *testing.T) {
	t.Parallel()

	events := &fakePublisher{err: errors.New("qstash down")}
	g := NewGateway(commerce.NewService(seededStore()), WithEvents(events))
	res := execOne(t, g, ToolCreateSupportTicket, `{"customer_name":"Jane","customer_email":"jane@example.com","issue_description":"Box was crushed","priority":"high"}`)
	if !res.Success {
		t.Fatalf("unexpected failure: %+v", res)
	}
}

func TestOverReturnIsStructuredValidationFailure(t *testing.T) {
	t.Parallel()

	g := NewGateway(commerce.NewService(seededStore()))
	created := execOne(t, g, ToolCreateOrder, `{`+customer+`,"product_ids":[1,2],"quantities":[2,1]}`)
	orderID := created.Result.(orderCreatedResult).OrderID

	first, _ := g.Execute(context.Background(), []contractx.ToolRequest{{Tool: ToolInitiateReturn, Args: map[string]any{
		"order_id": float64(orderID), "return_reason": "defective", "product_ids": []any{1.0}, "quantities": []any{1.0},
	}}})
	if !first[0].Success || first[0].Result.(returnCreatedResult).RefundTotalAmount != "100.00" {
		t.Fatalf("unexpected first return: %+v", first[0])
	}

	second, _ := g.Execute(context.Background(), []contractx.ToolRequest{{Tool: ToolInitiateReturn, Args: map[string]any{
		"order_id": float64(orderID), "return_reason": "defective", "product_ids": []any{1.0}, "quantities": []any{2.0},
	}}})
	res := second[0]
	if res.Success || res.Retryable {
		t.Fatalf("expected a non-retryable failure: %+v", res)
	}
	details, ok := res.Result.(validationDetails)
	if !ok || len(details.Problems) != 1 {
		t.Fatalf("expected structured details, got %#v", res.Result)
	}
}

func TestStalePreconditionIsRetryable(t *testing.T) {
	t.Parallel()

	g := NewGateway(commerce.NewService(inflatedStore{seededStore()}))
	res := execOne(t, g, ToolCreateOrder, `{`+customer+`,"product_ids":[1],"quantities":[6]}`)
	if res.Success || !res.Retryable {
		t.Fatalf("expected a retryable failure: %+v", res)
	}
}

func TestArgumentDecoding(t *testing.T) {
	t.Parallel()

	g := NewGateway(commerce.NewService(seededStore()))

	res := execOne(t, g, ToolCheckInventory, `{"product_id":"1"}`)
	if !res.Success || res.Result.(commerce.InventoryStatus).StockQuantity != 5 {
		t.Fatalf("string ids must be accepted: %+v", res)
	}

	res = execOne(t, g, ToolDraftOrder, `{"product_ids":[1],"quantities":[1.5]}`)
	if res.Success || !strings.Contains(res.Error, "whole number") {
		t.Fatalf("fractional quantities must be rejected: %+v", res)
	}

	res = execOne(t, g, ToolEstimateShipping, `{"destination_zip":"10001","weight":2.5,"service_level":"express"}`)
	if !res.Success {
		t.Fatalf("unexpected failure: %+v", res)
	}
	if got := res.Result.(commerce.ShippingQuote).Options[0].Cost; got != "14.50" {
		t.Fatalf("unexpected cost: %s", got)
	}
}

func TestUnknownToolAndMissingKnowledgeBase(t *testing.T) {
	t.Parallel()

	g := NewGateway(commerce.NewService(seededStore()))
	if res := execOne(t, g, "teleport", `{}`); res.Success || !strings.Contains(res.Error, "unknown tool") {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res := execOne(t, g, ToolSearchKnowledgeBase, `{"query":"returns"}`); res.Success || res.Error != unavailableMessage {
		t.Fatalf("unexpected result: %+v", res)
	}

	g = NewGateway(commerce.NewService(seededStore()), WithKnowledge(fakeSearcher{docs: []knowledge.Document{{Title: "Returns", Content: "30 days"}}}))
	res := execOne(t, g, ToolSearchKnowledgeBase, `{"query":"returns"}`)
	if !res.Success || res.Result.(searchResult).Count != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestExecuteStopsWhenContextDone(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGateway(commerce.NewService(seededStore()))
	_, err := g.Execute(ctx, []contractx.ToolRequest{{Tool: ToolCheckInventory, Args: map[string]any{"product_id": 1}}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
