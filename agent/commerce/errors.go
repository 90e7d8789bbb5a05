package commerce

import (
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
)

const (
	ReasonNotFound          = "not_found"
	ReasonInsufficientStock = "insufficient_stock"
	ReasonInvalidQuantity   = "invalid_quantity"
)

type InvalidProduct struct {
	ProductID int64  `json:"product_id"`
	Reason    string `json:"reason"`
	Requested int    `json:"requested,omitempty"`
	Available int    `json:"available,omitempty"`
}

func (p InvalidProduct) String() string {
	switch p.Reason {
	case ReasonNotFound:
		return fmt.Sprintf("product #%d does not exist", p.ProductID)
	case ReasonInsufficientStock:
		return fmt.Sprintf("product #%d: requested %d but only %d in stock", p.ProductID, p.Requested, p.Available)
	case ReasonInvalidQuantity:
		return fmt.Sprintf("product #%d: quantity must be greater than zero", p.ProductID)
	default:
		return fmt.Sprintf("product #%d: %s", p.ProductID, p.Reason)
	}
}

// ValidationError is a locally recoverable rejection. It is reported back to
// the reasoning service so it can ask the customer for a correction.
type ValidationError struct {
	MissingFields   []string
	InvalidProducts []InvalidProduct
	Problems        []string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, 3)
	if len(e.MissingFields) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(e.MissingFields, ", "))
	}
	if len(e.InvalidProducts) > 0 {
		invalid := make([]string, 0, len(e.InvalidProducts))
		for _, p := range e.InvalidProducts {
			invalid = append(invalid, p.String())
		}
		parts = append(parts, "invalid products: "+strings.Join(invalid, "; "))
	}
	parts = append(parts, e.Problems...)
	if len(parts) == 0 {
		return contractx.ErrValidation.Error()
	}
	return contractx.ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return contractx.ErrValidation
}

func (e *ValidationError) empty() bool {
	return len(e.MissingFields) == 0 && len(e.InvalidProducts) == 0 && len(e.Problems) == 0
}

func (e *ValidationError) addProblem(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// storeErr keeps domain classifications and marks everything else as a
// dependency failure.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, contractx.ErrValidation),
		errors.Is(err, contractx.ErrConsistency),
		errors.Is(err, contractx.ErrNotFound),
		errors.Is(err, contractx.ErrDependency):
		return err
	}
	return fmt.Errorf("%w: %s: %v", contractx.ErrDependency, op, err)
}

// stale converts a validation failure found inside a transaction into a
// consistency failure: the pre-check passed, so the data changed under us.
func stale(err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return fmt.Errorf("%w: %s", contractx.ErrConsistency, strings.TrimPrefix(verr.Error(), contractx.ErrValidation.Error()+": "))
	}
	return err
}
