package tool

import (
	"fmt"
	"math"
	"reflect"

	"github.com/mitchellh/mapstructure"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
)

type orderArgs struct {
	CustomerName    string  `mapstructure:"customer_name"`
	CustomerEmail   string  `mapstructure:"customer_email"`
	CustomerPhone   string  `mapstructure:"customer_phone"`
	ShippingAddress string  `mapstructure:"shipping_address"`
	ProductIDs      []int64 `mapstructure:"product_ids"`
	Quantities      []int   `mapstructure:"quantities"`
}

type orderIDArgs struct {
	OrderID int64 `mapstructure:"order_id"`
}

type returnArgs struct {
	OrderID      int64   `mapstructure:"order_id"`
	ReturnReason string  `mapstructure:"return_reason"`
	ProductIDs   []int64 `mapstructure:"product_ids"`
	Quantities   []int   `mapstructure:"quantities"`
}

type catalogArgs struct {
	Category    string `mapstructure:"category"`
	SearchQuery string `mapstructure:"search_query"`
}

type inventoryArgs struct {
	ProductID int64 `mapstructure:"product_id"`
}

type shippingArgs struct {
	DestinationZip string  `mapstructure:"destination_zip"`
	Weight         float64 `mapstructure:"weight"`
	ServiceLevel   string  `mapstructure:"service_level"`
}

type ticketArgs struct {
	CustomerName     string `mapstructure:"customer_name"`
	CustomerEmail    string `mapstructure:"customer_email"`
	IssueDescription string `mapstructure:"issue_description"`
	Priority         string `mapstructure:"priority"`
}

type searchArgs struct {
	Query string `mapstructure:"query"`
}

// decodeArgs fills out from the reasoning service's arguments. Numbers given
// as strings are accepted, fractional numbers for integer fields are not.
func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       rejectFractionalInts,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("%w: invalid arguments: %v", contractx.ErrValidation, err)
	}
	return nil
}

func rejectFractionalInts(from reflect.Type, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return data, nil
	}
	if from.Kind() != reflect.Float32 && from.Kind() != reflect.Float64 {
		return data, nil
	}
	f := reflect.ValueOf(data).Float()
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("expected a whole number, got %v", f)
	}
	return data, nil
}
