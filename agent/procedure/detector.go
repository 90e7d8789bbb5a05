package procedure

import (
	"strings"
	"unicode"
)

// Rule maps one tool name to the phrases that make it relevant.
type Rule struct {
	Tool  string
	Terms []string
}

// DefaultRules is the keyword table for the commerce tools. Order matters:
// detected tools are reported in table order.
var DefaultRules = []Rule{
	{Tool: "draft_order", Terms: []string{
		"place an order", "place order", "make an order", "new order", "want to order", "like to order",
		"want to buy", "like to buy", "buy", "purchase", "checkout", "check out",
	}},
	{Tool: "create_order", Terms: []string{
		"place an order", "place order", "make an order", "new order", "want to order", "like to order",
		"want to buy", "like to buy", "buy", "purchase", "checkout", "check out", "confirm", "go ahead",
	}},
	{Tool: "order_status", Terms: []string{
		"order status", "status of my order", "where is my order", "my order", "track", "tracking",
		"shipped yet", "delivered", "arrive", "arrived",
		"return", "returns", "returning", "refund", "send back", "send it back",
	}},
	{Tool: "initiate_return", Terms: []string{
		"return", "returns", "returning", "refund", "money back", "send back", "send it back",
		"exchange", "defective", "broken", "wrong item",
	}},
	{Tool: "product_catalog", Terms: []string{
		"show me", "catalog", "catalogue", "products", "browse", "do you sell", "do you have",
		"looking for", "recommend", "price of", "how much is", "how much does",
	}},
	{Tool: "check_inventory", Terms: []string{
		"in stock", "stock", "available", "availability", "inventory", "sold out",
	}},
	{Tool: "estimate_shipping", Terms: []string{
		"ship", "shipping", "shipped to", "delivery cost", "delivery time", "how long", "zip", "postage", "overnight", "express",
	}},
	{Tool: "create_support_ticket", Terms: []string{
		"ticket", "complaint", "complain", "speak to", "talk to", "human", "manager", "escalate",
		"damaged", "not working", "doesn t work", "does not work",
	}},
	{Tool: "search_knowledge_base", Terms: []string{
		"policy", "policies", "warranty", "faq", "how do i", "how to", "troubleshoot", "guide", "instructions",
	}},
}

// Detector is a pure keyword lookup from an utterance to candidate tool names.
type Detector struct {
	rules []compiledRule
}

type compiledRule struct {
	tool  string
	terms []string
}

func NewDetector(rules []Rule) *Detector {
	d := &Detector{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		cr := compiledRule{tool: r.Tool}
		for _, term := range r.Terms {
			if n := normalize(term); strings.TrimSpace(n) != "" {
				cr.terms = append(cr.terms, n)
			}
		}
		d.rules = append(d.rules, cr)
	}
	return d
}

// Detect returns the tools whose terms occur in text as whole words, in rule
// order and without duplicates. No match yields an empty result.
func (d *Detector) Detect(text string) []string {
	norm := normalize(text)
	if strings.TrimSpace(norm) == "" {
		return nil
	}
	var (
		out  []string
		seen = make(map[string]struct{}, len(d.rules))
	)
	for _, r := range d.rules {
		if _, ok := seen[r.tool]; ok {
			continue
		}
		for _, term := range r.terms {
			if strings.Contains(norm, term) {
				seen[r.tool] = struct{}{}
				out = append(out, r.tool)
				break
			}
		}
	}
	return out
}

// normalize lowercases, turns every non-alphanumeric rune into a single space
// and pads both ends so terms only match on word boundaries.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}
