package commerce

import "context"

// OrderBuilder turns the products locked by the store into the order to write.
// It runs inside the create-order transaction and must be free of side effects,
// since the store may run it again when it retries the transaction.
type OrderBuilder func(locked map[int64]Product) (OrderPlan, error)

// ReturnResolver turns the locked order and the quantities already returned
// against it into the return to write. Same purity rules as OrderBuilder.
type ReturnResolver func(order Order, returned map[int64]int) (ReturnPlan, error)

type CatalogStore interface {
	// GetProducts returns the requested products keyed by id; unknown ids are absent.
	GetProducts(ctx context.Context, ids []int64) (map[int64]Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	ShippingRates(ctx context.Context, serviceType string) ([]ShippingRate, error)
}

type OrderStore interface {
	GetOrder(ctx context.Context, id int64) (*Order, error)

	// CreateOrder locks productIDs, runs build and writes the header, the line
	// items and the stock decrements in one transaction.
	CreateOrder(ctx context.Context, header NewOrder, productIDs []int64, build OrderBuilder) (*Order, error)

	// SetOrderStatus moves an order to `to` only when its current status is in `from`.
	SetOrderStatus(ctx context.Context, id int64, to OrderStatus, from []OrderStatus) (*Order, error)
}

type ReturnStore interface {
	ListReturns(ctx context.Context, orderID int64) ([]ReturnOrder, error)

	// ReturnedQuantities sums the quantities of non-rejected returns per product.
	ReturnedQuantities(ctx context.Context, orderID int64) (map[int64]int, error)

	// CreateReturn locks the order, re-reads its returned quantities, runs
	// resolve and writes exactly one header plus its items in one transaction.
	CreateReturn(ctx context.Context, orderID int64, resolve ReturnResolver) (*ReturnOrder, error)

	SetReturnStatus(ctx context.Context, id int64, to ReturnStatus, from []ReturnStatus) (*ReturnOrder, error)
}

type TicketStore interface {
	CreateTicket(ctx context.Context, t NewTicket) (*SupportTicket, error)
}

type Store interface {
	CatalogStore
	OrderStore
	ReturnStore
	TicketStore
}
