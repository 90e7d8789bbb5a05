package commerce

import "time"

// Views are the JSON shapes handed to the reasoning service and the HTTP API.
// Money is rendered with two decimals.

type ProductView struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Category      string `json:"category,omitempty"`
	Price         string `json:"price"`
	WeightLbs     string `json:"weight_lbs"`
	StockQuantity int    `json:"stock_quantity"`
}

type OrderItemView struct {
	ProductID       int64  `json:"product_id"`
	ProductName     string `json:"product_name,omitempty"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase string `json:"price_at_purchase"`
	ItemTotal       string `json:"item_total"`
}

type OrderView struct {
	OrderID         int64           `json:"order_id"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email"`
	CustomerPhone   string          `json:"customer_phone"`
	ShippingAddress string          `json:"shipping_address"`
	Status          OrderStatus     `json:"status"`
	TotalAmount     string          `json:"total_amount"`
	Items           []OrderItemView `json:"items"`
	Returns         []ReturnView    `json:"returns,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type ReturnItemView struct {
	ProductID       int64  `json:"product_id"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase string `json:"price_at_purchase"`
}

type ReturnView struct {
	ReturnID          int64            `json:"return_id"`
	OrderID           int64            `json:"order_id"`
	Reason            string           `json:"return_reason"`
	Status            ReturnStatus     `json:"status"`
	RefundTotalAmount string           `json:"refund_total_amount"`
	Items             []ReturnItemView `json:"items"`
	CreatedAt         time.Time        `json:"created_at"`
}

type TicketView struct {
	TicketID         int64          `json:"ticket_id"`
	CustomerName     string         `json:"customer_name"`
	CustomerEmail    string         `json:"customer_email"`
	IssueDescription string         `json:"issue_description"`
	Priority         TicketPriority `json:"priority"`
	Status           string         `json:"status"`
}

func NewProductView(p Product) ProductView {
	return ProductView{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Category:      p.Category,
		Price:         p.Price.StringFixed(2),
		WeightLbs:     p.WeightLbs.StringFixed(2),
		StockQuantity: p.StockQuantity,
	}
}

func NewOrderView(o Order, returns []ReturnOrder) OrderView {
	v := OrderView{
		OrderID:         o.ID,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		CustomerPhone:   o.CustomerPhone,
		ShippingAddress: o.ShippingAddress,
		Status:          o.Status,
		TotalAmount:     o.TotalAmount.StringFixed(2),
		Items:           make([]OrderItemView, 0, len(o.Items)),
		CreatedAt:       o.CreatedAt,
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, OrderItemView{
			ProductID:       it.ProductID,
			ProductName:     it.ProductName,
			Quantity:        it.Quantity,
			PriceAtPurchase: it.PriceAtPurchase.StringFixed(2),
			ItemTotal:       lineTotal(it.PriceAtPurchase, it.Quantity).StringFixed(2),
		})
	}
	for _, r := range returns {
		v.Returns = append(v.Returns, NewReturnView(r))
	}
	return v
}

func NewReturnView(r ReturnOrder) ReturnView {
	v := ReturnView{
		ReturnID:          r.ID,
		OrderID:           r.OrderID,
		Reason:            r.Reason,
		Status:            r.Status,
		RefundTotalAmount: r.RefundTotalAmount.StringFixed(2),
		Items:             make([]ReturnItemView, 0, len(r.Items)),
		CreatedAt:         r.CreatedAt,
	}
	for _, it := range r.Items {
		v.Items = append(v.Items, ReturnItemView{
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			PriceAtPurchase: it.PriceAtPurchase.StringFixed(2),
		})
	}
	return v
}

func NewTicketView(t SupportTicket) TicketView {
	return TicketView{
		TicketID:         t.ID,
		CustomerName:     t.CustomerName,
		CustomerEmail:    t.CustomerEmail,
		IssueDescription: t.IssueDescription,
		Priority:         t.Priority,
		Status:           t.Status,
	}
}
