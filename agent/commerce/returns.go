package commerce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
)

// ReturnInput selects what to send back. Without ProductIDs the whole order
// (everything not yet returned) is returned.
type ReturnInput struct {
	OrderID    int64
	Reason     string
	ProductIDs []int64
	Quantities []int
}

var returnTransitions = map[ReturnStatus][]ReturnStatus{
	ReturnApproved:  {ReturnPending},
	ReturnProcessed: {ReturnApproved},
	ReturnRejected:  {ReturnPending},
}

func (in ReturnInput) validate() error {
	verr := &ValidationError{}
	if in.OrderID <= 0 {
		verr.MissingFields = append(verr.MissingFields, "order_id")
	}
	if strings.TrimSpace(in.Reason) == "" {
		verr.MissingFields = append(verr.MissingFields, "return_reason")
	}
	if len(in.ProductIDs) == 0 && len(in.Quantities) > 0 {
		verr.addProblem("quantities were given without product_ids")
	}
	if len(in.ProductIDs) > 0 && len(in.ProductIDs) != len(in.Quantities) {
		verr.addProblem("product_ids and quantities must have the same length (got %d and %d)", len(in.ProductIDs), len(in.Quantities))
	}
	if verr.empty() {
		return nil
	}
	return verr
}

// InitiateReturn resolves the items to return against the original order
// lines and commits exactly one return header with its items.
func (s *Service) InitiateReturn(ctx context.Context, in ReturnInput) (*ReturnOrder, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if err := in.validate(); err != nil {
		return nil, err
	}

	order, err := s.store.GetOrder(ctx, in.OrderID)
	if err != nil {
		return nil, storeErr("load order", err)
	}
	returned, err := s.store.ReturnedQuantities(ctx, in.OrderID)
	if err != nil {
		return nil, storeErr("load returned quantities", err)
	}
	if _, err := resolveReturn(in, *order, returned); err != nil {
		return nil, err
	}

	ret, err := s.store.CreateReturn(ctx, in.OrderID, func(locked Order, returned map[int64]int) (ReturnPlan, error) {
		plan, err := resolveReturn(in, locked, returned)
		if err != nil {
			return ReturnPlan{}, stale(err)
		}
		return plan, nil
	})
	if err != nil {
		return nil, storeErr("create return", err)
	}

	log.Info().
		Int64("order_id", ret.OrderID).
		Int64("return_id", ret.ID).
		Str("refund_total_amount", ret.RefundTotalAmount.StringFixed(2)).
		Int("items", len(ret.Items)).
		Msg("return created")
	return ret, nil
}

func (s *Service) UpdateReturnStatus(ctx context.Context, returnID int64, to ReturnStatus) (*ReturnOrder, error) {
	to = ReturnStatus(strings.ToLower(strings.TrimSpace(string(to))))
	from, ok := returnTransitions[to]
	if !ok {
		return nil, fmt.Errorf("%w: returns cannot be moved to status %q", contractx.ErrValidation, to)
	}
	ret, err := s.store.SetReturnStatus(ctx, returnID, to, from)
	if err != nil {
		return nil, storeErr("update return status", err)
	}
	log.Info().Int64("return_id", returnID).Str("status", string(to)).Msg("return status updated")
	return ret, nil
}

// resolveReturn is pure: it decides the return lines and the refund from the
// order lines and the quantities already returned. Refunds always use the
// price frozen on the order line, never the current catalog price.
func resolveReturn(in ReturnInput, order Order, returned map[int64]int) (ReturnPlan, error) {
	verr := &ValidationError{}
	if order.Status == OrderCancelled {
		verr.addProblem("order #%d was cancelled and cannot be returned", order.ID)
		return ReturnPlan{}, verr
	}

	// Units already returned are charged against the order lines in order.
	remaining := make([]int, len(order.Items))
	used := make(map[int64]int, len(returned))
	for id, q := range returned {
		used[id] = q
	}
	for i, it := range order.Items {
		take := min(used[it.ProductID], it.Quantity)
		used[it.ProductID] -= take
		remaining[i] = it.Quantity - take
	}

	var items []ReturnItem
	if len(in.ProductIDs) == 0 {
		for i, it := range order.Items {
			if remaining[i] > 0 {
				items = append(items, ReturnItem{
					ProductID:       it.ProductID,
					Quantity:        remaining[i],
					PriceAtPurchase: it.PriceAtPurchase,
				})
			}
		}
		if len(items) == 0 {
			verr.addProblem("every item on order #%d has already been returned", order.ID)
		}
	} else {
		ids := make([]int64, 0, len(in.ProductIDs))
		requested := make(map[int64]int, len(in.ProductIDs))
		for i, id := range in.ProductIDs {
			q := in.Quantities[i]
			if q <= 0 {
				verr.addProblem("quantity for product #%d must be greater than zero", id)
				continue
			}
			if _, ok := requested[id]; !ok {
				ids = append(ids, id)
			}
			requested[id] += q
		}

		for _, id := range ids {
			ordered, available := 0, 0
			for i, it := range order.Items {
				if it.ProductID == id {
					ordered += it.Quantity
					available += remaining[i]
				}
			}
			want := requested[id]
			switch {
			case ordered == 0:
				verr.addProblem("product #%d is not part of order #%d", id, order.ID)
				continue
			case want > available:
				verr.addProblem("product #%d: requested %d but only %d of %d ordered unit(s) remain returnable", id, want, available, ordered)
				continue
			}
			for i, it := range order.Items {
				if want == 0 {
					break
				}
				if it.ProductID != id || remaining[i] == 0 {
					continue
				}
				take := min(want, remaining[i])
				want -= take
				items = append(items, ReturnItem{
					ProductID:       id,
					Quantity:        take,
					PriceAtPurchase: it.PriceAtPurchase,
				})
			}
		}
	}

	if !verr.empty() {
		return ReturnPlan{}, verr
	}
	return ReturnPlan{
		Reason:            in.Reason,
		Items:             items,
		RefundTotalAmount: RefundTotal(items),
	}, nil
}

// RefundTotal is Σ quantity × price_at_purchase over the return lines.
func RefundTotal(items []ReturnItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(lineTotal(it.PriceAtPurchase, it.Quantity))
	}
	return total
}
