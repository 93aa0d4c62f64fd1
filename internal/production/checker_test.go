package production

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeRequirementSource struct {
	rows map[uuid.UUID][]RequirementRow
	err  error
}

func (f *fakeRequirementSource) RequirementsForProduct(_ context.Context, productID uuid.UUID) ([]RequirementRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[productID], nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCheckAvailability_SufficientStock(t *testing.T) {
	productID := uuid.New()
	materialID := uuid.New()

	// 2 kg per unit, 10 kg on hand, producing 4 => requires 8 kg.
	src := &fakeRequirementSource{rows: map[uuid.UUID][]RequirementRow{
		productID: {
			{RawMaterialID: materialID, Name: "Steel", Unit: "kg", QuantityRequired: dec("2"), CurrentStock: dec("10")},
		},
	}}
	checker := NewChecker(src)

	decision, err := checker.CheckAvailability(context.Background(), productID, 4)
	require.NoError(t, err)
	require.True(t, decision.CanProduce)
	require.Equal(t, "All materials available for production", decision.Message)
	require.Len(t, decision.Results, 1)
	require.Empty(t, decision.ShortfallMaterials)

	r := decision.Results[0]
	require.True(t, r.RequiredQuantity.Equal(dec("8")))
	require.True(t, r.AvailableQuantity.Equal(dec("10")))
	require.True(t, r.CanProduce)
	require.True(t, r.Shortfall.IsZero())
}

func TestCheckAvailability_InsufficientStock(t *testing.T) {
	productID := uuid.New()

	// Same product at quantity 6 => requires 12 kg against 10 kg on hand.
	src := &fakeRequirementSource{rows: map[uuid.UUID][]RequirementRow{
		productID: {
			{RawMaterialID: uuid.New(), Name: "Steel", Unit: "kg", QuantityRequired: dec("2"), CurrentStock: dec("10")},
		},
	}}
	checker := NewChecker(src)

	decision, err := checker.CheckAvailability(context.Background(), productID, 6)
	require.NoError(t, err)
	require.False(t, decision.CanProduce)
	require.Contains(t, decision.Message, "Insufficient materials: Steel")
	require.Len(t, decision.ShortfallMaterials, 1)

	r := decision.Results[0]
	require.True(t, r.RequiredQuantity.Equal(dec("12")))
	require.True(t, r.Shortfall.Equal(dec("2")))
	require.False(t, r.CanProduce)
}

func TestCheckAvailability_NoRequirements(t *testing.T) {
	productID := uuid.New()
	checker := NewChecker(&fakeRequirementSource{rows: map[uuid.UUID][]RequirementRow{}})

	// Absence of declared requirements means unconstrained, even at large quantities.
	decision, err := checker.CheckAvailability(context.Background(), productID, 1000)
	require.NoError(t, err)
	require.True(t, decision.CanProduce)
	require.Equal(t, "No material requirements defined for this product", decision.Message)
	require.Empty(t, decision.Results)
	require.Empty(t, decision.ShortfallMaterials)
}

func TestCheckAvailability_MultipleMaterialsAndSemantics(t *testing.T) {
	productID := uuid.New()

	src := &fakeRequirementSource{rows: map[uuid.UUID][]RequirementRow{
		productID: {
			{RawMaterialID: uuid.New(), Name: "Steel", Unit: "kg", QuantityRequired: dec("2"), CurrentStock: dec("100")},
			{RawMaterialID: uuid.New(), Name: "Paint", Unit: "l", QuantityRequired: dec("0.5"), CurrentStock: dec("1")},
			{RawMaterialID: uuid.New(), Name: "Bolts", Unit: "pcs", QuantityRequired: dec("8"), CurrentStock: dec("40")},
		},
	}}
	checker := NewChecker(src)

	decision, err := checker.CheckAvailability(context.Background(), productID, 5)
	require.NoError(t, err)

	// One failing material forces overall denial.
	require.False(t, decision.CanProduce)
	require.Len(t, decision.Results, 3)
	require.Len(t, decision.ShortfallMaterials, 1)
	require.Equal(t, "Paint", decision.ShortfallMaterials[0].MaterialName)
	require.True(t, decision.ShortfallMaterials[0].Shortfall.Equal(dec("1.5")))

	for _, r := range decision.Results {
		// Shortfall is never negative and always consistent with CanProduce.
		require.False(t, r.Shortfall.IsNegative())
		require.Equal(t, r.Shortfall.IsZero(), r.CanProduce)
	}
}

func TestCheckAvailability_ExactStockIsSufficient(t *testing.T) {
	productID := uuid.New()
	src := &fakeRequirementSource{rows: map[uuid.UUID][]RequirementRow{
		productID: {
			{RawMaterialID: uuid.New(), Name: "Resin", Unit: "kg", QuantityRequired: dec("2.5"), CurrentStock: dec("25")},
		},
	}}
	checker := NewChecker(src)

	// Comparison is >= with no tolerance: exactly enough stock passes.
	decision, err := checker.CheckAvailability(context.Background(), productID, 10)
	require.NoError(t, err)
	require.True(t, decision.CanProduce)
	require.True(t, decision.Results[0].Shortfall.IsZero())
}

func TestCheckAvailability_MonotonicInQuantity(t *testing.T) {
	productID := uuid.New()
	src := &fakeRequirementSource{rows: map[uuid.UUID][]RequirementRow{
		productID: {
			{RawMaterialID: uuid.New(), Name: "Steel", Unit: "kg", QuantityRequired: dec("3"), CurrentStock: dec("10")},
		},
	}}
	checker := NewChecker(src)

	prev := decimal.Zero
	denied := false
	for qty := 1; qty <= 10; qty++ {
		decision, err := checker.CheckAvailability(context.Background(), productID, qty)
		require.NoError(t, err)

		shortfall := decision.Results[0].Shortfall
		// Shortfall never decreases as the requested quantity grows, so a
		// denied check can never flip back to approved.
		require.True(t, shortfall.GreaterThanOrEqual(prev), "qty=%d", qty)
		if denied {
			require.False(t, decision.CanProduce, "qty=%d", qty)
		}
		if !decision.CanProduce {
			denied = true
		}
		prev = shortfall
	}
	require.True(t, denied)
}

func TestCheckAvailability_InvalidQuantity(t *testing.T) {
	checker := NewChecker(&fakeRequirementSource{})

	_, err := checker.CheckAvailability(context.Background(), uuid.New(), 0)
	require.Error(t, err)

	_, err = checker.CheckAvailability(context.Background(), uuid.New(), -3)
	require.Error(t, err)
}

func TestCheckAvailability_LookupFailurePropagates(t *testing.T) {
	lookupErr := errors.New("connection refused")
	checker := NewChecker(&fakeRequirementSource{err: lookupErr})

	decision, err := checker.CheckAvailability(context.Background(), uuid.New(), 1)
	require.ErrorIs(t, err, lookupErr)
	// No partial decision on lookup failure.
	require.Zero(t, decision)
}
