package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tanpawarit/chative-commerce-agent/agent/commerce"
	"github.com/tanpawarit/chative-commerce-agent/agent/commerce/memstore"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
	"github.com/tanpawarit/chative-commerce-agent/pkg/metrics"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeChat struct {
	res     contractx.TurnResult
	err     error
	gotID   string
	gotText string
}

func (f *fakeChat) HandleMessage(ctx context.Context, conversationID string, text string) (contractx.TurnResult, error) {
	f.gotID, f.gotText = conversationID, text
	return f.res, f.err
}

func (f *fakeChat) Welcome() string { return "Hello! How can I help?" }

func newTestServer(t *testing.T, chat ChatService) (*Server, *commerce.Service) {
	t.Helper()

	store := memstore.New()
	store.PutProduct(commerce.Product{ID: 1, Name: "Mechanical Keyboard", Category: "accessories", Price: decimal.RequireFromString("100"), WeightLbs: decimal.RequireFromString("2"), StockQuantity: 5})
	store.PutProduct(commerce.Product{ID: 2, Name: "Desk Lamp", Category: "home", Price: decimal.RequireFromString("30"), WeightLbs: decimal.RequireFromString("1"), StockQuantity: 5})
	svc := commerce.NewService(store)
	return NewServer(Config{}, chat, svc, metrics.New()), svc
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestChat(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{res: contractx.TurnResult{ConversationID: "c1", Reply: "Order 1 has shipped.", Rounds: 2}}
	s, _ := newTestServer(t, chat)

	rec := do(t, s, http.MethodPost, "/v1/chat", map[string]any{"conversation_id": "c1", "message": "where is order 1?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	var got contractx.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Reply != "Order 1 has shipped." || chat.gotID != "c1" || chat.gotText != "where is order 1?" {
		t.Fatalf("unexpected round trip: %+v %+v", got, chat)
	}

	if rec := do(t, s, http.MethodPost, "/v1/chat", map[string]any{"conversation_id": "c1"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing message status = %d", rec.Code)
	}
}

func TestChatErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: message is empty", contractx.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: store: connection refused", contractx.ErrDependency), http.StatusBadGateway},
		{fmt.Errorf("%w: upstream 503", contractx.ErrModelInvoke), http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		s, _ := newTestServer(t, &fakeChat{err: tc.err})
		rec := do(t, s, http.MethodPost, "/v1/chat", map[string]any{"message": "hi"})
		if rec.Code != tc.code {
			t.Fatalf("err=%v status = %d, want %d", tc.err, rec.Code, tc.code)
		}
		if tc.code == http.StatusBadGateway && strings.Contains(rec.Body.String(), "refused") {
			t.Fatalf("dependency cause leaked: %s", rec.Body)
		}
	}
}

func TestWelcomeAndHealth(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, &fakeChat{})
	if rec := do(t, s, http.MethodGet, "/v1/welcome", nil); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "How can I help?") {
		t.Fatalf("welcome: %d %s", rec.Code, rec.Body)
	}
	if rec := do(t, s, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	rec := do(t, s, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "chative_http_requests_total") {
		t.Fatalf("metrics: %d %s", rec.Code, rec.Body)
	}
}

func TestListProducts(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, &fakeChat{})
	rec := do(t, s, http.MethodGet, "/v1/products?category=accessories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got struct {
		Products []commerce.ProductView `json:"products"`
		Count    int                    `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Count != 1 || got.Products[0].Name != "Mechanical Keyboard" || got.Products[0].Price != "100.00" {
		t.Fatalf("unexpected products: %+v", got)
	}
}

func TestOrderBackoffice(t *testing.T) {
	t.Parallel()

	s, svc := newTestServer(t, &fakeChat{})
	order, err := svc.CreateOrder(context.Background(), commerce.OrderInput{
		CustomerName:    "Jane Doe",
		CustomerEmail:   "jane@example.com",
		CustomerPhone:   "555-0100",
		ShippingAddress: "1 Main St",
		ProductIDs:      []int64{1, 2},
		Quantities:      []int{2, 1},
	})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	ret, err := svc.InitiateReturn(context.Background(), commerce.ReturnInput{OrderID: order.ID, Reason: "defective", ProductIDs: []int64{1}, Quantities: []int{1}})
	if err != nil {
		t.Fatalf("InitiateReturn() error = %v", err)
	}

	rec := do(t, s, http.MethodGet, fmt.Sprintf("/v1/orders/%d", order.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get order: %d %s", rec.Code, rec.Body)
	}
	var view commerce.OrderView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.TotalAmount != "230.00" || len(view.Items) != 2 || len(view.Returns) != 1 || view.Returns[0].RefundTotalAmount != "100.00" {
		t.Fatalf("unexpected order view: %+v", view)
	}

	rec = do(t, s, http.MethodPatch, fmt.Sprintf("/v1/orders/%d/status", order.ID), map[string]string{"status": "processing"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"processing"`) {
		t.Fatalf("update order: %d %s", rec.Code, rec.Body)
	}
	rec = do(t, s, http.MethodPatch, fmt.Sprintf("/v1/orders/%d/status", order.ID), map[string]string{"status": "delivered"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("illegal transition must be rejected, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodPatch, fmt.Sprintf("/v1/returns/%d/status", ret.ID), map[string]string{"status": "approved"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"approved"`) {
		t.Fatalf("update return: %d %s", rec.Code, rec.Body)
	}

	if rec := do(t, s, http.MethodGet, "/v1/orders/999", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing order: %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/v1/orders/abc", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", rec.Code)
	}
}
