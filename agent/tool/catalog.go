package tool

import (
	"github.com/cloudwego/eino/schema"
)

const (
	ToolDraftOrder          = "draft_order"
	ToolCreateOrder         = "create_order"
	ToolOrderStatus         = "order_status"
	ToolInitiateReturn      = "initiate_return"
	ToolProductCatalog      = "product_catalog"
	ToolCheckInventory      = "check_inventory"
	ToolEstimateShipping    = "estimate_shipping"
	ToolCreateSupportTicket = "create_support_ticket"
	ToolSearchKnowledgeBase = "search_knowledge_base"
)

func orderParams(required bool) map[string]*schema.ParameterInfo {
	return map[string]*schema.ParameterInfo{
		"customer_name":    {Type: schema.String, Desc: "Customer full name", Required: required},
		"customer_email":   {Type: schema.String, Desc: "Customer email address", Required: required},
		"customer_phone":   {Type: schema.String, Desc: "Customer phone number", Required: required},
		"shipping_address": {Type: schema.String, Desc: "Full shipping address", Required: required},
		"product_ids": {
			Type:     schema.Array,
			Desc:     "Product ids to order",
			ElemInfo: &schema.ParameterInfo{Type: schema.Integer},
			Required: required,
		},
		"quantities": {
			Type:     schema.Array,
			Desc:     "Quantity for each product id, same length and order as product_ids",
			ElemInfo: &schema.ParameterInfo{Type: schema.Integer},
			Required: required,
		},
	}
}

// Infos returns the tool schemas offered to the reasoning service.
func Infos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name:        ToolDraftOrder,
			Desc:        "Validate a possibly incomplete order without placing it. Reports missing fields and invalid products, and a priced summary once everything is present. Always call this before create_order.",
			ParamsOneOf: schema.NewParamsOneOfByParams(orderParams(false)),
		},
		{
			Name:        ToolCreateOrder,
			Desc:        "Place an order after draft_order reported ready_to_order and the customer confirmed the summary.",
			ParamsOneOf: schema.NewParamsOneOfByParams(orderParams(true)),
		},
		{
			Name: ToolOrderStatus,
			Desc: "Look up an order with its line items and any returns.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"order_id": {Type: schema.Integer, Desc: "Order number", Required: true},
			}),
		},
		{
			Name: ToolInitiateReturn,
			Desc: "Open a return for an order. Omit product_ids to return everything not yet returned; otherwise give product_ids with matching quantities.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"order_id":      {Type: schema.Integer, Desc: "Order number", Required: true},
				"return_reason": {Type: schema.String, Desc: "Why the customer is returning the items", Required: true},
				"product_ids": {
					Type:     schema.Array,
					Desc:     "Products to return",
					ElemInfo: &schema.ParameterInfo{Type: schema.Integer},
				},
				"quantities": {
					Type:     schema.Array,
					Desc:     "Quantity to return for each product id",
					ElemInfo: &schema.ParameterInfo{Type: schema.Integer},
				},
			}),
		},
		{
			Name: ToolProductCatalog,
			Desc: "Browse or search the product catalog.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"category":     {Type: schema.String, Desc: "Restrict to one category"},
				"search_query": {Type: schema.String, Desc: "Text to match in product name or description"},
			}),
		},
		{
			Name: ToolCheckInventory,
			Desc: "Check how many units of a product are in stock.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"product_id": {Type: schema.Integer, Desc: "Product id", Required: true},
			}),
		},
		{
			Name: ToolEstimateShipping,
			Desc: "Estimate shipping cost and time to a destination.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"destination_zip": {Type: schema.String, Desc: "Destination ZIP code", Required: true},
				"weight":          {Type: schema.Number, Desc: "Package weight in lbs", Required: true},
				"service_level": {
					Type:     schema.String,
					Desc:     "Shipping speed",
					Enum:     []string{"standard", "express", "overnight"},
					Required: true,
				},
			}),
		},
		{
			Name: ToolCreateSupportTicket,
			Desc: "Create a support ticket for issues that need a human.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"customer_name":     {Type: schema.String, Desc: "Customer full name", Required: true},
				"customer_email":    {Type: schema.String, Desc: "Customer email address", Required: true},
				"issue_description": {Type: schema.String, Desc: "Description of the issue", Required: true},
				"priority": {
					Type: schema.String,
					Desc: "Ticket priority",
					Enum: []string{"low", "medium", "high", "urgent"},
				},
			}),
		},
		{
			Name: ToolSearchKnowledgeBase,
			Desc: "Search help articles and store policies.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {Type: schema.String, Desc: "What to look for", Required: true},
			}),
		},
	}
}
