package commerce

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	FieldCustomerName    = "customer_name"
	FieldCustomerEmail   = "customer_email"
	FieldCustomerPhone   = "customer_phone"
	FieldShippingAddress = "shipping_address"
	FieldProductIDs      = "product_ids"
	FieldQuantities      = "quantities"
)

// OrderInput is shared by draft and create; every field may be empty on a draft.
type OrderInput struct {
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
	ProductIDs      []int64
	Quantities      []int
}

func (in OrderInput) normalized() OrderInput {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.ShippingAddress = strings.TrimSpace(in.ShippingAddress)
	return in
}

func (in OrderInput) header() NewOrder {
	return NewOrder{
		CustomerName:    in.CustomerName,
		CustomerEmail:   in.CustomerEmail,
		CustomerPhone:   in.CustomerPhone,
		ShippingAddress: in.ShippingAddress,
	}
}

// fieldReport lists missing and provided fields in a fixed order.
func (in OrderInput) fieldReport() (missing []string, provided []string) {
	check := func(name string, ok bool) {
		if ok {
			provided = append(provided, name)
		} else {
			missing = append(missing, name)
		}
	}
	check(FieldCustomerName, in.CustomerName != "")
	check(FieldCustomerEmail, in.CustomerEmail != "")
	check(FieldCustomerPhone, in.CustomerPhone != "")
	check(FieldShippingAddress, in.ShippingAddress != "")
	check(FieldProductIDs, len(in.ProductIDs) > 0)
	check(FieldQuantities, len(in.Quantities) > 0)
	return missing, provided
}

// requestedIDs returns the distinct product ids in first-seen order.
func (in OrderInput) requestedIDs() []int64 {
	seen := make(map[int64]struct{}, len(in.ProductIDs))
	ids := make([]int64, 0, len(in.ProductIDs))
	for _, id := range in.ProductIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

type orderLine struct {
	product  Product
	quantity int
}

// orderCheck is the outcome of the validation routine shared by draft and create.
type orderCheck struct {
	input    OrderInput
	missing  []string
	provided []string
	invalid  []InvalidProduct
	problems []string
	lines    []orderLine
}

func (c orderCheck) ready() bool {
	return len(c.missing) == 0 && len(c.invalid) == 0 && len(c.problems) == 0
}

func (c orderCheck) err() error {
	if c.ready() {
		return nil
	}
	return &ValidationError{
		MissingFields:   c.missing,
		InvalidProducts: c.invalid,
		Problems:        c.problems,
	}
}

func (c orderCheck) totals() (cost decimal.Decimal, weight decimal.Decimal) {
	for _, l := range c.lines {
		cost = cost.Add(lineTotal(l.product.Price, l.quantity))
		weight = weight.Add(lineTotal(l.product.WeightLbs, l.quantity))
	}
	return cost, weight
}

// plan prices every line at the current catalog price.
func (c orderCheck) plan() OrderPlan {
	items := make([]OrderItem, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, OrderItem{
			ProductID:       l.product.ID,
			ProductName:     l.product.Name,
			Quantity:        l.quantity,
			PriceAtPurchase: l.product.Price,
		})
	}
	total, _ := c.totals()
	return OrderPlan{Items: items, TotalAmount: total}
}

// evaluateOrder is the validation routine shared by draft and create. It is a
// pure function of the input and the product snapshot it is given.
func evaluateOrder(in OrderInput, products map[int64]Product) orderCheck {
	in = in.normalized()
	c := orderCheck{input: in}
	c.missing, c.provided = in.fieldReport()

	if len(in.ProductIDs) > 0 && len(in.Quantities) > 0 && len(in.ProductIDs) != len(in.Quantities) {
		c.problems = append(c.problems, "product_ids and quantities must have the same length")
	}

	// Aggregate repeated product ids so stock is checked against the sum.
	requested := make(map[int64]int, len(in.ProductIDs))
	badQuantity := make(map[int64]bool)
	for i, id := range in.ProductIDs {
		if i >= len(in.Quantities) {
			continue
		}
		q := in.Quantities[i]
		if q <= 0 {
			badQuantity[id] = true
			continue
		}
		requested[id] += q
	}

	for _, id := range in.requestedIDs() {
		p, ok := products[id]
		switch {
		case !ok:
			c.invalid = append(c.invalid, InvalidProduct{ProductID: id, Reason: ReasonNotFound})
		case badQuantity[id]:
			c.invalid = append(c.invalid, InvalidProduct{ProductID: id, Reason: ReasonInvalidQuantity})
		case requested[id] == 0:
			// Quantity missing for this position; already reported as a length mismatch.
		case requested[id] > p.StockQuantity:
			c.invalid = append(c.invalid, InvalidProduct{
				ProductID: id,
				Reason:    ReasonInsufficientStock,
				Requested: requested[id],
				Available: p.StockQuantity,
			})
		default:
			c.lines = append(c.lines, orderLine{product: p, quantity: requested[id]})
		}
	}

	return c
}
