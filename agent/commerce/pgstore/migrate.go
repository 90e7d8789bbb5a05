package pgstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Migrate creates the commerce tables when they do not exist yet.
func Migrate(ctx context.Context, db bun.IDB) error {
	tables := []struct {
		model any
		fks   []string
	}{
		{model: (*productRow)(nil)},
		{model: (*shippingRateRow)(nil)},
		{model: (*ticketRow)(nil)},
		{model: (*orderRow)(nil)},
		{model: (*orderItemRow)(nil), fks: []string{
			`("order_id") REFERENCES "orders" ("id") ON DELETE CASCADE`,
			`("product_id") REFERENCES "products" ("id")`,
		}},
		{model: (*returnRow)(nil), fks: []string{
			`("order_id") REFERENCES "orders" ("id") ON DELETE CASCADE`,
		}},
		{model: (*returnItemRow)(nil), fks: []string{
			`("return_id") REFERENCES "return_orders" ("id") ON DELETE CASCADE`,
			`("product_id") REFERENCES "products" ("id")`,
		}},
	}

	for _, t := range tables {
		q := db.NewCreateTable().Model(t.model).IfNotExists()
		for _, fk := range t.fks {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("migrate %T: %w", t.model, err)
		}
	}

	indexes := []struct {
		model   any
		name    string
		columns []string
	}{
		{(*orderItemRow)(nil), "order_items_order_id_idx", []string{"order_id"}},
		{(*returnRow)(nil), "return_orders_order_id_idx", []string{"order_id"}},
		{(*returnItemRow)(nil), "return_items_return_id_idx", []string{"return_id"}},
		{(*shippingRateRow)(nil), "shipping_rates_service_type_idx", []string{"service_type"}},
	}
	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.columns...).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("migrate index %s: %w", idx.name, err)
		}
	}
	return nil
}
