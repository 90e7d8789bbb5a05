package commerce

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

type ReturnStatus string

const (
	ReturnPending   ReturnStatus = "pending"
	ReturnApproved  ReturnStatus = "approved"
	ReturnProcessed ReturnStatus = "processed"
	ReturnRejected  ReturnStatus = "rejected"
)

type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

type Product struct {
	ID            int64
	Name          string
	Description   string
	Category      string
	Price         decimal.Decimal
	WeightLbs     decimal.Decimal
	StockQuantity int
}

type Order struct {
	ID              int64
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
	Status          OrderStatus
	TotalAmount     decimal.Decimal
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem freezes the catalog price at commit time in PriceAtPurchase.
type OrderItem struct {
	ID              int64
	OrderID         int64
	ProductID       int64
	ProductName     string
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

type ReturnOrder struct {
	ID                int64
	OrderID           int64
	Reason            string
	Status            ReturnStatus
	RefundTotalAmount decimal.Decimal
	Items             []ReturnItem
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ReturnItem copies PriceAtPurchase from the originating order line.
type ReturnItem struct {
	ID              int64
	ReturnID        int64
	ProductID       int64
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

type ShippingRate struct {
	ID            int64
	Carrier       string
	ServiceType   string
	BaseRate      decimal.Decimal
	PerLbRate     decimal.Decimal
	EstimatedDays int
}

type SupportTicket struct {
	ID               int64
	CustomerName     string
	CustomerEmail    string
	IssueDescription string
	Priority         TicketPriority
	Status           string
	CreatedAt        time.Time
}

type ProductFilter struct {
	Category string
	Query    string
}

// NewOrder is the header of an order about to be committed.
type NewOrder struct {
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
}

// OrderPlan is what gets written for an order once products are locked.
type OrderPlan struct {
	Items       []OrderItem
	TotalAmount decimal.Decimal
}

// ReturnPlan is what gets written for a return once the order is locked.
type ReturnPlan struct {
	Reason            string
	Items             []ReturnItem
	RefundTotalAmount decimal.Decimal
}

type NewTicket struct {
	CustomerName     string
	CustomerEmail    string
	IssueDescription string
	Priority         TicketPriority
}

func lineTotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}
