// Package pgstore is the Postgres commerce.Store built on bun.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tanpawarit/chative-commerce-agent/agent/commerce"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
	"github.com/uptrace/bun"
)

type Store struct {
	db  *bun.DB
	now func() time.Time
}

var _ commerce.Store = (*Store)(nil)

func New(db *bun.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) GetProducts(ctx context.Context, ids []int64) (map[int64]commerce.Product, error) {
	out := make(map[int64]commerce.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []productRow
	if err := s.db.NewSelect().Model(&rows).Where("p.id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	for i := range rows {
		out[rows[i].ID] = rows[i].toDomain()
	}
	return out, nil
}

func (s *Store) ListProducts(ctx context.Context, filter commerce.ProductFilter) ([]commerce.Product, error) {
	var rows []productRow
	q := s.db.NewSelect().Model(&rows).Order("p.id ASC")
	if filter.Category != "" {
		q = q.Where("LOWER(p.category) = LOWER(?)", filter.Category)
	}
	if filter.Query != "" {
		pattern := "%" + escapeLike(filter.Query) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("p.name ILIKE ?", pattern).WhereOr("p.description ILIKE ?", pattern)
		})
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]commerce.Product, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) ShippingRates(ctx context.Context, serviceType string) ([]commerce.ShippingRate, error) {
	var rows []shippingRateRow
	err := s.db.NewSelect().Model(&rows).
		Where("LOWER(sr.service_type) = LOWER(?)", serviceType).
		Order("sr.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select shipping rates: %w", err)
	}
	out := make([]commerce.ShippingRate, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*commerce.Order, error) {
	row, err := loadOrder(ctx, s.db, id, false)
	if err != nil {
		return nil, err
	}
	o := row.toDomain()
	return &o, nil
}

func loadOrder(ctx context.Context, db bun.IDB, id int64, lock bool) (*orderRow, error) {
	row := new(orderRow)
	q := db.NewSelect().Model(row).Where("o.id = ?", id)
	if lock {
		q = q.For("UPDATE OF o")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: order #%d", contractx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("select order: %w", err)
	}
	if err := db.NewSelect().Model(&row.Items).Where("oi.order_id = ?", id).Order("oi.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	return row, nil
}

// CreateOrder locks the product rows in ascending id order so concurrent
// orders over overlapping products cannot deadlock.
func (s *Store) CreateOrder(ctx context.Context, header commerce.NewOrder, productIDs []int64, build commerce.OrderBuilder) (*commerce.Order, error) {
	ids := append([]int64(nil), productIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var created *orderRow
	err := s.inTx(ctx, "create_order", func(ctx context.Context, tx bun.Tx) error {
		var rows []productRow
		if len(ids) > 0 {
			if err := tx.NewSelect().Model(&rows).
				Where("p.id IN (?)", bun.In(ids)).
				Order("p.id ASC").
				For("UPDATE").
				Scan(ctx); err != nil {
				return fmt.Errorf("lock products: %w", err)
			}
		}
		locked := make(map[int64]commerce.Product, len(rows))
		for i := range rows {
			locked[rows[i].ID] = rows[i].toDomain()
		}

		plan, err := build(locked)
		if err != nil {
			return err
		}
		if len(plan.Items) == 0 {
			return fmt.Errorf("%w: order has no items", contractx.ErrValidation)
		}

		now := s.now()
		order := &orderRow{
			CustomerName:    header.CustomerName,
			CustomerEmail:   header.CustomerEmail,
			CustomerPhone:   header.CustomerPhone,
			ShippingAddress: header.ShippingAddress,
			Status:          string(commerce.OrderPending),
			TotalAmount:     plan.TotalAmount,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if _, err := tx.NewInsert().Model(order).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		items := make([]*orderItemRow, 0, len(plan.Items))
		for _, it := range plan.Items {
			items = append(items, &orderItemRow{
				OrderID:         order.ID,
				ProductID:       it.ProductID,
				ProductName:     it.ProductName,
				Quantity:        it.Quantity,
				PriceAtPurchase: it.PriceAtPurchase,
			})
		}
		if _, err := tx.NewInsert().Model(&items).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}

		for _, it := range plan.Items {
			res, err := tx.NewUpdate().Model((*productRow)(nil)).
				Set("stock_quantity = stock_quantity - ?", it.Quantity).
				Where("id = ?", it.ProductID).
				Where("stock_quantity >= ?", it.Quantity).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			} else if n != 1 {
				return fmt.Errorf("%w: stock for product #%d changed", contractx.ErrConsistency, it.ProductID)
			}
		}

		order.Items = items
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	o := created.toDomain()
	return &o, nil
}

func (s *Store) SetOrderStatus(ctx context.Context, id int64, to commerce.OrderStatus, from []commerce.OrderStatus) (*commerce.Order, error) {
	var updated *orderRow
	err := s.inTx(ctx, "set_order_status", func(ctx context.Context, tx bun.Tx) error {
		row, err := loadOrder(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if !allowed(row.Status, from) {
			return fmt.Errorf("%w: order #%d is %s and cannot become %s", contractx.ErrValidation, id, row.Status, to)
		}
		row.Status = string(to)
		row.UpdatedAt = s.now()
		if _, err := tx.NewUpdate().Model(row).Column("status", "updated_at").WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	o := updated.toDomain()
	return &o, nil
}

func (s *Store) ListReturns(ctx context.Context, orderID int64) ([]commerce.ReturnOrder, error) {
	var rows []returnRow
	err := s.db.NewSelect().Model(&rows).
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("ri.id ASC")
		}).
		Where("ro.order_id = ?", orderID).
		Order("ro.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select returns: %w", err)
	}
	out := make([]commerce.ReturnOrder, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) ReturnedQuantities(ctx context.Context, orderID int64) (map[int64]int, error) {
	return returnedQuantities(ctx, s.db, orderID)
}

type returnedRow struct {
	ProductID int64 `bun:"product_id"`
	Quantity  int   `bun:"quantity"`
}

func returnedQuantities(ctx context.Context, db bun.IDB, orderID int64) (map[int64]int, error) {
	var rows []returnedRow
	err := db.NewSelect().
		TableExpr("return_items AS ri").
		Join("JOIN return_orders AS ro ON ro.id = ri.return_id").
		ColumnExpr("ri.product_id").
		ColumnExpr("SUM(ri.quantity) AS quantity").
		Where("ro.order_id = ?", orderID).
		Where("ro.status <> ?", string(commerce.ReturnRejected)).
		GroupExpr("ri.product_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("sum returned quantities: %w", err)
	}
	out := make(map[int64]int, len(rows))
	for _, r := range rows {
		out[r.ProductID] = r.Quantity
	}
	return out, nil
}

// CreateReturn serialises returns of one order on the order row lock, so the
// already-returned quantities it reads cannot change before it commits.
func (s *Store) CreateReturn(ctx context.Context, orderID int64, resolve commerce.ReturnResolver) (*commerce.ReturnOrder, error) {
	var created *returnRow
	err := s.inTx(ctx, "create_return", func(ctx context.Context, tx bun.Tx) error {
		order, err := loadOrder(ctx, tx, orderID, true)
		if err != nil {
			return err
		}
		returned, err := returnedQuantities(ctx, tx, orderID)
		if err != nil {
			return err
		}

		plan, err := resolve(order.toDomain(), returned)
		if err != nil {
			return err
		}
		if len(plan.Items) == 0 {
			return fmt.Errorf("%w: return has no items", contractx.ErrValidation)
		}

		now := s.now()
		ret := &returnRow{
			OrderID:           orderID,
			ReturnReason:      plan.Reason,
			Status:            string(commerce.ReturnPending),
			RefundTotalAmount: plan.RefundTotalAmount,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if _, err := tx.NewInsert().Model(ret).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert return: %w", err)
		}

		items := make([]*returnItemRow, 0, len(plan.Items))
		for _, it := range plan.Items {
			items = append(items, &returnItemRow{
				ReturnID:        ret.ID,
				ProductID:       it.ProductID,
				Quantity:        it.Quantity,
				PriceAtPurchase: it.PriceAtPurchase,
			})
		}
		if _, err := tx.NewInsert().Model(&items).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert return items: %w", err)
		}

		ret.Items = items
		created = ret
		return nil
	})
	if err != nil {
		return nil, err
	}
	r := created.toDomain()
	return &r, nil
}

func (s *Store) SetReturnStatus(ctx context.Context, id int64, to commerce.ReturnStatus, from []commerce.ReturnStatus) (*commerce.ReturnOrder, error) {
	var updated *returnRow
	err := s.inTx(ctx, "set_return_status", func(ctx context.Context, tx bun.Tx) error {
		row := new(returnRow)
		err := tx.NewSelect().Model(row).
			Relation("Items").
			Where("ro.id = ?", id).
			For("UPDATE OF ro").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: return #%d", contractx.ErrNotFound, id)
			}
			return fmt.Errorf("select return: %w", err)
		}
		if !allowed(row.Status, from) {
			return fmt.Errorf("%w: return #%d is %s and cannot become %s", contractx.ErrValidation, id, row.Status, to)
		}
		row.Status = string(to)
		row.UpdatedAt = s.now()
		if _, err := tx.NewUpdate().Model(row).Column("status", "updated_at").WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update return status: %w", err)
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	r := updated.toDomain()
	return &r, nil
}

func (s *Store) CreateTicket(ctx context.Context, t commerce.NewTicket) (*commerce.SupportTicket, error) {
	row := &ticketRow{
		CustomerName:     t.CustomerName,
		CustomerEmail:    t.CustomerEmail,
		IssueDescription: t.IssueDescription,
		Priority:         string(t.Priority),
		Status:           "open",
		CreatedAt:        s.now(),
	}
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}
	ticket := row.toDomain()
	return &ticket, nil
}

func allowed[T ~string](current string, from []T) bool {
	for _, f := range from {
		if string(f) == current {
			return true
		}
	}
	return false
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
