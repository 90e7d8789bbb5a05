package pgstore

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tanpawarit/chative-commerce-agent/agent/commerce"
	"github.com/uptrace/bun"
)

type productRow struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID            int64           `bun:"id,pk,autoincrement"`
	Name          string          `bun:"name,notnull"`
	Description   string          `bun:"description"`
	Category      string          `bun:"category"`
	Price         decimal.Decimal `bun:"price,type:numeric(10,2),notnull"`
	WeightLbs     decimal.Decimal `bun:"weight_lbs,type:numeric(10,2),notnull,default:0"`
	StockQuantity int             `bun:"stock_quantity,notnull,default:0"`
}

type orderRow struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID              int64           `bun:"id,pk,autoincrement"`
	CustomerName    string          `bun:"customer_name,notnull"`
	CustomerEmail   string          `bun:"customer_email,notnull"`
	CustomerPhone   string          `bun:"customer_phone"`
	ShippingAddress string          `bun:"shipping_address,notnull"`
	Status          string          `bun:"status,notnull,default:'pending'"`
	TotalAmount     decimal.Decimal `bun:"total_amount,type:numeric(10,2),notnull"`
	CreatedAt       time.Time       `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt       time.Time       `bun:"updated_at,notnull,default:current_timestamp"`

	Items []*orderItemRow `bun:"rel:has-many,join:id=order_id"`
}

type orderItemRow struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID              int64           `bun:"id,pk,autoincrement"`
	OrderID         int64           `bun:"order_id,notnull"`
	ProductID       int64           `bun:"product_id,notnull"`
	ProductName     string          `bun:"product_name"`
	Quantity        int             `bun:"quantity,notnull"`
	PriceAtPurchase decimal.Decimal `bun:"price_at_purchase,type:numeric(10,2),notnull"`
}

type returnRow struct {
	bun.BaseModel `bun:"table:return_orders,alias:ro"`

	ID                int64           `bun:"id,pk,autoincrement"`
	OrderID           int64           `bun:"order_id,notnull"`
	ReturnReason      string          `bun:"return_reason,notnull"`
	Status            string          `bun:"status,notnull,default:'pending'"`
	RefundTotalAmount decimal.Decimal `bun:"refund_total_amount,type:numeric(10,2),notnull"`
	CreatedAt         time.Time       `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt         time.Time       `bun:"updated_at,notnull,default:current_timestamp"`

	Items []*returnItemRow `bun:"rel:has-many,join:id=return_id"`
}

type returnItemRow struct {
	bun.BaseModel `bun:"table:return_items,alias:ri"`

	ID              int64           `bun:"id,pk,autoincrement"`
	ReturnID        int64           `bun:"return_id,notnull"`
	ProductID       int64           `bun:"product_id,notnull"`
	Quantity        int             `bun:"quantity,notnull"`
	PriceAtPurchase decimal.Decimal `bun:"price_at_purchase,type:numeric(10,2),notnull"`
}

type shippingRateRow struct {
	bun.BaseModel `bun:"table:shipping_rates,alias:sr"`

	ID            int64           `bun:"id,pk,autoincrement"`
	Carrier       string          `bun:"carrier,notnull"`
	ServiceType   string          `bun:"service_type,notnull"`
	BaseRate      decimal.Decimal `bun:"base_rate,type:numeric(10,2),notnull"`
	PerLbRate     decimal.Decimal `bun:"per_lb_rate,type:numeric(10,2),notnull"`
	EstimatedDays int             `bun:"estimated_days,notnull"`
}

type ticketRow struct {
	bun.BaseModel `bun:"table:support_tickets,alias:st"`

	ID               int64     `bun:"id,pk,autoincrement"`
	CustomerName     string    `bun:"customer_name,notnull"`
	CustomerEmail    string    `bun:"customer_email,notnull"`
	IssueDescription string    `bun:"issue_description,notnull"`
	Priority         string    `bun:"priority,notnull,default:'medium'"`
	Status           string    `bun:"status,notnull,default:'open'"`
	CreatedAt        time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func (r *productRow) toDomain() commerce.Product {
	return commerce.Product{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description,
		Category:      r.Category,
		Price:         r.Price,
		WeightLbs:     r.WeightLbs,
		StockQuantity: r.StockQuantity,
	}
}

func (r *orderRow) toDomain() commerce.Order {
	o := commerce.Order{
		ID:              r.ID,
		CustomerName:    r.CustomerName,
		CustomerEmail:   r.CustomerEmail,
		CustomerPhone:   r.CustomerPhone,
		ShippingAddress: r.ShippingAddress,
		Status:          commerce.OrderStatus(r.Status),
		TotalAmount:     r.TotalAmount,
		Items:           make([]commerce.OrderItem, 0, len(r.Items)),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	for _, it := range r.Items {
		o.Items = append(o.Items, commerce.OrderItem{
			ID:              it.ID,
			OrderID:         it.OrderID,
			ProductID:       it.ProductID,
			ProductName:     it.ProductName,
			Quantity:        it.Quantity,
			PriceAtPurchase: it.PriceAtPurchase,
		})
	}
	return o
}

func (r *returnRow) toDomain() commerce.ReturnOrder {
	ret := commerce.ReturnOrder{
		ID:                r.ID,
		OrderID:           r.OrderID,
		Reason:            r.ReturnReason,
		Status:            commerce.ReturnStatus(r.Status),
		RefundTotalAmount: r.RefundTotalAmount,
		Items:             make([]commerce.ReturnItem, 0, len(r.Items)),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	for _, it := range r.Items {
		ret.Items = append(ret.Items, commerce.ReturnItem{
			ID:              it.ID,
			ReturnID:        it.ReturnID,
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			PriceAtPurchase: it.PriceAtPurchase,
		})
	}
	return ret
}

func (r *shippingRateRow) toDomain() commerce.ShippingRate {
	return commerce.ShippingRate{
		ID:            r.ID,
		Carrier:       r.Carrier,
		ServiceType:   r.ServiceType,
		BaseRate:      r.BaseRate,
		PerLbRate:     r.PerLbRate,
		EstimatedDays: r.EstimatedDays,
	}
}

func (r *ticketRow) toDomain() commerce.SupportTicket {
	return commerce.SupportTicket{
		ID:               r.ID,
		CustomerName:     r.CustomerName,
		CustomerEmail:    r.CustomerEmail,
		IssueDescription: r.IssueDescription,
		Priority:         commerce.TicketPriority(r.Priority),
		Status:           r.Status,
		CreatedAt:        r.CreatedAt,
	}
}
