package production

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// LineItem is one product line of an order.
type LineItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// OrderSource resolves an order's line items. It must fail with an error for
// an order that does not exist so the workflow can tell "no items" apart
// from "no such order".
type OrderSource interface {
	OrderLineItems(ctx context.Context, orderID uuid.UUID) ([]LineItem, error)
}

// InsufficientMaterialsError reports a denied authorization. It is a business
// outcome, not an infrastructure failure; handlers map it to a 400 with the
// full shortfall breakdown while lookup failures become a 500.
type InsufficientMaterialsError struct {
	Decision Decision
}

func (e *InsufficientMaterialsError) Error() string {
	return "insufficient raw materials for production: " + e.Decision.Message
}

// Workflow is the end-to-end decision for "can this order produce this
// quantity right now", spanning every product line of the order. It is a
// single-pass, stateless evaluation: nothing is cached between calls because
// stock levels can change, and re-invoking it after a transient read failure
// is always safe.
type Workflow struct {
	orders  OrderSource
	checker *Checker
}

func NewWorkflow(orders OrderSource, checker *Checker) *Workflow {
	return &Workflow{orders: orders, checker: checker}
}

// Authorize checks whether producedQty units can be produced for every
// distinct product on the order. Each product's requirements are scaled by
// producedQty itself, not by the line item's ordered quantity: the log's
// produced quantity drives material consumption regardless of what was
// originally ordered.
//
// An error return means the evaluation itself failed (missing order, store
// failure); the caller must not treat it as a denial. A denial comes back as
// a Decision with CanProduce=false and a nil error.
func (w *Workflow) Authorize(ctx context.Context, orderID uuid.UUID, producedQty int) (Decision, error) {
	if producedQty <= 0 {
		return Decision{}, fmt.Errorf("produced quantity must be positive, got %d", producedQty)
	}

	items, err := w.orders.OrderLineItems(ctx, orderID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to resolve order %s: %w", orderID, err)
	}

	var (
		results    []MaterialCheckResult
		shortfalls []MaterialCheckResult
		failed     []string
		seen       = make(map[uuid.UUID]bool, len(items))
	)

	for _, item := range items {
		if seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true

		decision, err := w.checker.CheckAvailability(ctx, item.ProductID, producedQty)
		if err != nil {
			return Decision{}, err
		}

		results = append(results, decision.Results...)
		if !decision.CanProduce {
			shortfalls = append(shortfalls, decision.ShortfallMaterials...)
			for _, s := range decision.ShortfallMaterials {
				failed = append(failed, s.MaterialName)
			}
		}
	}

	if len(shortfalls) > 0 {
		return Decision{
			CanProduce:         false,
			Message:            "Insufficient materials: " + strings.Join(failed, ", "),
			Results:            results,
			ShortfallMaterials: shortfalls,
		}, nil
	}

	if results == nil {
		results = []MaterialCheckResult{}
	}
	return Decision{
		CanProduce: true,
		Message:    "All materials available for production",
		Results:    results,
	}, nil
}
