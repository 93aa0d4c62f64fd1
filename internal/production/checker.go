package production

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequirementRow is one material requirement of a product joined with the
// material's current stock level at evaluation time.
type RequirementRow struct {
	RawMaterialID    uuid.UUID
	Name             string
	Unit             string
	QuantityRequired decimal.Decimal // per one unit of product
	CurrentStock     decimal.Decimal
}

// RequirementSource resolves a product's material requirements. An empty
// slice means the product simply has no declared requirements; it is not an
// error.
type RequirementSource interface {
	RequirementsForProduct(ctx context.Context, productID uuid.UUID) ([]RequirementRow, error)
}

// MaterialCheckResult is the per-material outcome of an availability check.
type MaterialCheckResult struct {
	RawMaterialID     uuid.UUID       `json:"raw_material_id"`
	MaterialName      string          `json:"material_name"`
	ProductID         uuid.UUID       `json:"product_id"`
	RequiredQuantity  decimal.Decimal `json:"required_quantity"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	Unit              string          `json:"unit"`
	CanProduce        bool            `json:"can_produce"`
	Shortfall         decimal.Decimal `json:"shortfall"` // max(0, required - available)
}

// Decision is the aggregate outcome of an availability check. CanProduce is
// true iff every constituent result can produce; a product with no declared
// requirements is unconditionally producible.
type Decision struct {
	CanProduce         bool                  `json:"can_produce"`
	Message            string                `json:"message"`
	Results            []MaterialCheckResult `json:"results"`
	ShortfallMaterials []MaterialCheckResult `json:"shortfall_materials,omitempty"`
}

// Checker evaluates raw-material sufficiency for a requested production
// quantity. It never mutates stock; decrementing on actual production is the
// caller's concern.
type Checker struct {
	requirements RequirementSource
}

func NewChecker(requirements RequirementSource) *Checker {
	return &Checker{requirements: requirements}
}

// CheckAvailability computes per-material shortfall for producing quantity
// units of the product. A returned error means the check could not be
// evaluated at all; a Decision with CanProduce=false means it was evaluated
// and denied.
func (c *Checker) CheckAvailability(ctx context.Context, productID uuid.UUID, quantity int) (Decision, error) {
	if quantity <= 0 {
		return Decision{}, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	rows, err := c.requirements.RequirementsForProduct(ctx, productID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to fetch material requirements: %w", err)
	}

	if len(rows) == 0 {
		return Decision{
			CanProduce: true,
			Message:    "No material requirements defined for this product",
			Results:    []MaterialCheckResult{},
		}, nil
	}

	qty := decimal.NewFromInt(int64(quantity))
	results := make([]MaterialCheckResult, 0, len(rows))
	var shortfalls []MaterialCheckResult

	for _, row := range rows {
		required := row.QuantityRequired.Mul(qty)
		shortfall := required.Sub(row.CurrentStock)
		if shortfall.IsNegative() {
			shortfall = decimal.Zero
		}

		result := MaterialCheckResult{
			RawMaterialID:     row.RawMaterialID,
			MaterialName:      row.Name,
			ProductID:         productID,
			RequiredQuantity:  required,
			AvailableQuantity: row.CurrentStock,
			Unit:              row.Unit,
			CanProduce:        row.CurrentStock.GreaterThanOrEqual(required),
			Shortfall:         shortfall,
		}
		results = append(results, result)
		if !result.CanProduce {
			shortfalls = append(shortfalls, result)
		}
	}

	if len(shortfalls) > 0 {
		names := make([]string, 0, len(shortfalls))
		for _, s := range shortfalls {
			names = append(names, s.MaterialName)
		}
		return Decision{
			CanProduce:         false,
			Message:            "Insufficient materials: " + strings.Join(names, ", "),
			Results:            results,
			ShortfallMaterials: shortfalls,
		}, nil
	}

	return Decision{
		CanProduce: true,
		Message:    "All materials available for production",
		Results:    results,
	}, nil
}
