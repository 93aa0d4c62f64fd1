package production

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeOrderSource struct {
	items map[uuid.UUID][]LineItem
	err   error
}

func (f *fakeOrderSource) OrderLineItems(_ context.Context, orderID uuid.UUID) ([]LineItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	items, ok := f.items[orderID]
	if !ok {
		return nil, errors.New("order not found")
	}
	return items, nil
}

func TestAuthorize_MixedConstrainedAndUnconstrained(t *testing.T) {
	orderID := uuid.New()
	constrained := uuid.New()   // 2 kg steel per unit, 10 kg on hand
	unconstrained := uuid.New() // no declared requirements

	orders := &fakeOrderSource{items: map[uuid.UUID][]LineItem{
		orderID: {
			{ProductID: constrained, Quantity: 4},
			{ProductID: unconstrained, Quantity: 9},
		},
	}}
	requirements := &fakeRequirementSource{rows: map[uuid.UUID][]RequirementRow{
		constrained: {
			{RawMaterialID: uuid.New(), Name: "Steel", Unit: "kg", QuantityRequired: dec("2"), CurrentStock: dec("10")},
		},
	}}

	w := NewWorkflow(orders, NewChecker(requirements))

	decision, err := w.Authorize(context.Background(), orderID, 4)
	require.NoError(t, err)
	require.True(t, decision.CanProduce)
	require.Len(t, decision.Results, 1)
	require.Empty(t, decision.ShortfallMaterials)
}

func TestAuthorize_SingleFailingProductDeniesOrder(t *testing.T) {
	orderID := uuid.New()
	okProduct := uuid.New()
	shortProduct := uuid.New()

	orders := &fakeOrderSource{items: map[uuid.UUID][]LineItem{
		orderID: {
			{ProductID: okProduct, Quantity: 2},
			{ProductID: shortProduct, Quantity: 2},
		},
	}}
	requirements := &fakeRequirementSource{rows: map[uuid.UUID][]RequirementRow{
		okProduct: {
			{RawMaterialID: uuid.New(), Name: "Steel", Unit: "kg", QuantityRequired: dec("1"), CurrentStock: dec("100")},
		},
		shortProduct: {
			{RawMaterialID: uuid.New(), Name: "Copper", Unit: "kg", QuantityRequired: dec("4"), CurrentStock: dec("5")},
		},
	}}

	w := NewWorkflow(orders, NewChecker(requirements))

	decision, err := w.Authorize(context.Background(), orderID, 3)
	require.NoError(t, err)
	require.False(t, decision.CanProduce)
	require.Contains(t, decision.Message, "Copper")
	require.Len(t, decision.Results, 2)
	require.Len(t, decision.ShortfallMaterials, 1)

	short := decision.ShortfallMaterials[0]
	require.Equal(t, shortProduct, short.ProductID)
	require.True(t, short.Shortfall.Equal(dec("7"))) // 4*3 - 5
}

func TestAuthorize_ScalesByProducedQtyNotOrderedQty(t *testing.T) {
	orderID := uuid.New()
	productID := uuid.New()

	// Ordered quantity is 100, but the production run logs only 2 units.
	// Requirements scale by the run's produced quantity, not the order line.
	orders := &fakeOrderSource{items: map[uuid.UUID][]LineItem{
		orderID: {{ProductID: productID, Quantity: 100}},
	}}
	requirements := &fakeRequirementSource{rows: map[uuid.UUID][]RequirementRow{
		productID: {
			{RawMaterialID: uuid.New(), Name: "Steel", Unit: "kg", QuantityRequired: dec("2"), CurrentStock: dec("10")},
		},
	}}

	w := NewWorkflow(orders, NewChecker(requirements))

	decision, err := w.Authorize(context.Background(), orderID, 2)
	require.NoError(t, err)
	require.True(t, decision.CanProduce)
	require.True(t, decision.Results[0].RequiredQuantity.Equal(dec("4")))
}

func TestAuthorize_DuplicateProductLinesCheckedOnce(t *testing.T) {
	orderID := uuid.New()
	productID := uuid.New()

	orders := &fakeOrderSource{items: map[uuid.UUID][]LineItem{
		orderID: {
			{ProductID: productID, Quantity: 1},
			{ProductID: productID, Quantity: 5},
		},
	}}
	requirements := &fakeRequirementSource{rows: map[uuid.UUID][]RequirementRow{
		productID: {
			{RawMaterialID: uuid.New(), Name: "Steel", Unit: "kg", QuantityRequired: dec("1"), CurrentStock: dec("10")},
		},
	}}

	w := NewWorkflow(orders, NewChecker(requirements))

	decision, err := w.Authorize(context.Background(), orderID, 3)
	require.NoError(t, err)
	require.Len(t, decision.Results, 1)
}

func TestAuthorize_EmptyOrderIsVacuouslyApproved(t *testing.T) {
	orderID := uuid.New()
	orders := &fakeOrderSource{items: map[uuid.UUID][]LineItem{orderID: {}}}

	w := NewWorkflow(orders, NewChecker(&fakeRequirementSource{}))

	decision, err := w.Authorize(context.Background(), orderID, 1)
	require.NoError(t, err)
	require.True(t, decision.CanProduce)
	require.Empty(t, decision.Results)
}

func TestAuthorize_MissingOrderFailsLoudly(t *testing.T) {
	orders := &fakeOrderSource{items: map[uuid.UUID][]LineItem{}}
	w := NewWorkflow(orders, NewChecker(&fakeRequirementSource{}))

	decision, err := w.Authorize(context.Background(), uuid.New(), 1)
	require.Error(t, err)
	require.Zero(t, decision)
}

func TestAuthorize_RequirementLookupFailureAborts(t *testing.T) {
	orderID := uuid.New()
	productID := uuid.New()

	orders := &fakeOrderSource{items: map[uuid.UUID][]LineItem{
		orderID: {{ProductID: productID, Quantity: 1}},
	}}
	lookupErr := errors.New("timeout")
	w := NewWorkflow(orders, NewChecker(&fakeRequirementSource{err: lookupErr}))

	decision, err := w.Authorize(context.Background(), orderID, 1)
	require.ErrorIs(t, err, lookupErr)
	require.Zero(t, decision)
}

func TestAuthorize_InvalidProducedQty(t *testing.T) {
	w := NewWorkflow(&fakeOrderSource{}, NewChecker(&fakeRequirementSource{}))

	_, err := w.Authorize(context.Background(), uuid.New(), 0)
	require.Error(t, err)
}

func TestInsufficientMaterialsError_Message(t *testing.T) {
	err := &InsufficientMaterialsError{Decision: Decision{
		CanProduce: false,
		Message:    "Insufficient materials: Steel",
	}}
	require.Contains(t, err.Error(), "Insufficient materials: Steel")
}
