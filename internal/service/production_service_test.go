package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"erp-backend/internal/model"
	"erp-backend/internal/production"
	"erp-backend/internal/repository"
	ws "erp-backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type stubTxManager struct{}

func (stubTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeOrderRepo struct {
	orders        map[uuid.UUID]*model.Order
	statusUpdates map[uuid.UUID]string
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:        map[uuid.UUID]*model.Order{},
		statusUpdates: map[uuid.UUID]string{},
	}
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *model.Order) error {
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) CreateItem(ctx context.Context, item *model.OrderItem) error { return nil }

func (f *fakeOrderRepo) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return order, nil
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	f.statusUpdates[id] = status
	f.orders[id].Status = status
	return nil
}

func (f *fakeOrderRepo) List(ctx context.Context, page, limit int, status string) ([]model.Order, int64, error) {
	return nil, 0, nil
}

func (f *fakeOrderRepo) OrderLineItems(ctx context.Context, orderID uuid.UUID) ([]production.LineItem, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, errors.New("record not found")
	}
	var items []production.LineItem
	for _, item := range order.Items {
		items = append(items, production.LineItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return items, nil
}

type stockMaterialRepo struct {
	materials    map[uuid.UUID]*model.RawMaterial
	requirements map[uuid.UUID][]model.MaterialRequirement // productID -> rows
	movements    []model.StockMovement
}

func newStockMaterialRepo() *stockMaterialRepo {
	return &stockMaterialRepo{
		materials:    map[uuid.UUID]*model.RawMaterial{},
		requirements: map[uuid.UUID][]model.MaterialRequirement{},
	}
}

func (f *stockMaterialRepo) addMaterial(name, unit, stock string) uuid.UUID {
	id := uuid.New()
	f.materials[id] = &model.RawMaterial{
		ID:           id,
		Name:         name,
		Unit:         unit,
		CurrentStock: decimal.RequireFromString(stock),
	}
	return id
}

func (f *stockMaterialRepo) require(productID, materialID uuid.UUID, qty string) {
	f.requirements[productID] = append(f.requirements[productID], model.MaterialRequirement{
		ProductID:        productID,
		RawMaterialID:    materialID,
		QuantityRequired: decimal.RequireFromString(qty),
		Unit:             f.materials[materialID].Unit,
	})
}

func (f *stockMaterialRepo) rows(productID uuid.UUID) []production.RequirementRow {
	var rows []production.RequirementRow
	for _, req := range f.requirements[productID] {
		material := f.materials[req.RawMaterialID]
		rows = append(rows, production.RequirementRow{
			RawMaterialID:    req.RawMaterialID,
			Name:             material.Name,
			Unit:             req.Unit,
			QuantityRequired: req.QuantityRequired,
			CurrentStock:     material.CurrentStock,
		})
	}
	return rows
}

func (f *stockMaterialRepo) Create(ctx context.Context, m *model.RawMaterial) error { return nil }
func (f *stockMaterialRepo) Update(ctx context.Context, m *model.RawMaterial) error { return nil }
func (f *stockMaterialRepo) Delete(ctx context.Context, id uuid.UUID) error         { return nil }

func (f *stockMaterialRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.RawMaterial, error) {
	return f.FindByIDForUpdate(ctx, id)
}

func (f *stockMaterialRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.RawMaterial, error) {
	material, ok := f.materials[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	copied := *material
	return &copied, nil
}

func (f *stockMaterialRepo) List(ctx context.Context, page, limit int, search string) ([]model.RawMaterial, int64, error) {
	return nil, 0, nil
}

func (f *stockMaterialRepo) ListBelowMinStock(ctx context.Context) ([]model.RawMaterial, error) {
	return nil, nil
}

func (f *stockMaterialRepo) UpdateStock(ctx context.Context, id uuid.UUID, stock decimal.Decimal) error {
	f.materials[id].CurrentStock = stock
	return nil
}

func (f *stockMaterialRepo) RecordMovement(ctx context.Context, movement *model.StockMovement) error {
	f.movements = append(f.movements, *movement)
	return nil
}

func (f *stockMaterialRepo) RequirementsForProduct(ctx context.Context, productID uuid.UUID) ([]production.RequirementRow, error) {
	return f.rows(productID), nil
}

func (f *stockMaterialRepo) RequirementsForProductForUpdate(ctx context.Context, productID uuid.UUID) ([]production.RequirementRow, error) {
	return f.rows(productID), nil
}

func (f *stockMaterialRepo) ReplaceRequirements(ctx context.Context, productID uuid.UUID, requirements []model.MaterialRequirement) error {
	f.requirements[productID] = requirements
	return nil
}

type memProductionRepo struct {
	logs []model.ProductionLog
}

func (f *memProductionRepo) Create(ctx context.Context, log *model.ProductionLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	f.logs = append(f.logs, *log)
	return nil
}

func (f *memProductionRepo) List(ctx context.Context, page, limit int, orderID *uuid.UUID) ([]model.ProductionLog, int64, error) {
	return f.logs, int64(len(f.logs)), nil
}

func (f *memProductionRepo) SummaryByOrder(ctx context.Context, from, to time.Time) ([]repository.ProductionSummaryRow, error) {
	return nil, nil
}

type memAuditRepo struct {
	entries []model.AuditLog
}

func (f *memAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *memAuditRepo) List(ctx context.Context, page, limit int, action string) ([]model.AuditLog, int64, error) {
	return f.entries, int64(len(f.entries)), nil
}

// --- helpers ---

type productionFixture struct {
	service   ProductionService
	orders    *fakeOrderRepo
	materials *stockMaterialRepo
	logs      *memProductionRepo
	audit     *memAuditRepo
}

func newProductionFixture(t *testing.T) *productionFixture {
	t.Helper()

	hub := ws.NewHub()
	go hub.Run()

	orders := newFakeOrderRepo()
	materials := newStockMaterialRepo()
	logs := &memProductionRepo{}
	audit := &memAuditRepo{}

	svc := NewProductionService(orders, materials, logs, audit, stubTxManager{}, hub)
	return &productionFixture{service: svc, orders: orders, materials: materials, logs: logs, audit: audit}
}

func (fx *productionFixture) addOrder(status string, items ...model.OrderItem) uuid.UUID {
	order := &model.Order{
		ID:        uuid.New(),
		OrderCode: "ORD-001",
		Status:    status,
		Items:     items,
	}
	fx.orders.orders[order.ID] = order
	return order.ID
}

// --- tests ---

func TestCreateProductionLog_ApprovedRunDecrementsStock(t *testing.T) {
	fx := newProductionFixture(t)

	productID := uuid.New()
	steel := fx.materials.addMaterial("Steel", "kg", "10")
	fx.materials.require(productID, steel, "2")

	orderID := fx.addOrder(model.OrderStatusPending, model.OrderItem{ProductID: productID, Quantity: 100})

	logEntry, decision, err := fx.service.CreateProductionLog(context.Background(), uuid.NewString(), CreateProductionLogRequest{
		OrderID:     orderID.String(),
		ProducedQty: 4,
	})
	require.NoError(t, err)
	require.True(t, decision.CanProduce)
	require.NotNil(t, logEntry)
	require.Equal(t, 4, logEntry.ProducedQty)

	// 10 - 2*4 = 2
	require.True(t, fx.materials.materials[steel].CurrentStock.Equal(decimal.RequireFromString("2")))

	require.Len(t, fx.materials.movements, 1)
	movement := fx.materials.movements[0]
	require.Equal(t, model.MovementTypeOut, movement.MovementType)
	require.Equal(t, model.MovementReasonProduction, movement.Reason)
	require.True(t, movement.QuantityChanged.Equal(decimal.RequireFromString("8")))
	require.True(t, movement.StockAfter.Equal(decimal.RequireFromString("2")))
	require.NotNil(t, movement.ProductionLogID)
	require.Equal(t, logEntry.ID, *movement.ProductionLogID)

	require.Equal(t, model.OrderStatusInProduction, fx.orders.statusUpdates[orderID])

	require.Len(t, fx.audit.entries, 1)
	require.Equal(t, model.ActionCreateProductionLog, fx.audit.entries[0].Action)
}

func TestCreateProductionLog_DeniedLeavesEverythingUntouched(t *testing.T) {
	fx := newProductionFixture(t)

	productID := uuid.New()
	steel := fx.materials.addMaterial("Steel", "kg", "10")
	fx.materials.require(productID, steel, "2")

	orderID := fx.addOrder(model.OrderStatusPending, model.OrderItem{ProductID: productID, Quantity: 100})

	_, decision, err := fx.service.CreateProductionLog(context.Background(), uuid.NewString(), CreateProductionLogRequest{
		OrderID:     orderID.String(),
		ProducedQty: 6, // needs 12, only 10 in stock
	})
	require.Error(t, err)

	var denied *production.InsufficientMaterialsError
	require.ErrorAs(t, err, &denied)
	require.False(t, denied.Decision.CanProduce)
	require.False(t, decision.CanProduce)
	require.Len(t, denied.Decision.ShortfallMaterials, 1)
	require.True(t, denied.Decision.ShortfallMaterials[0].Shortfall.Equal(decimal.RequireFromString("2")))

	require.True(t, fx.materials.materials[steel].CurrentStock.Equal(decimal.RequireFromString("10")))
	require.Empty(t, fx.materials.movements)
	require.Empty(t, fx.logs.logs)
	require.Empty(t, fx.audit.entries)
	require.Empty(t, fx.orders.statusUpdates)
}

func TestCreateProductionLog_SharedMaterialAcrossProducts(t *testing.T) {
	fx := newProductionFixture(t)

	// Both products draw from the same steel pool. Each passes its own check
	// at 6 kg against 10 in stock, but the combined 12 kg must still deny.
	steel := fx.materials.addMaterial("Steel", "kg", "10")
	productA := uuid.New()
	productB := uuid.New()
	fx.materials.require(productA, steel, "6")
	fx.materials.require(productB, steel, "6")

	orderID := fx.addOrder(model.OrderStatusPending,
		model.OrderItem{ProductID: productA, Quantity: 1},
		model.OrderItem{ProductID: productB, Quantity: 1},
	)

	_, _, err := fx.service.CreateProductionLog(context.Background(), uuid.NewString(), CreateProductionLogRequest{
		OrderID:     orderID.String(),
		ProducedQty: 1,
	})
	require.Error(t, err)

	var denied *production.InsufficientMaterialsError
	require.ErrorAs(t, err, &denied)
	require.True(t, fx.materials.materials[steel].CurrentStock.Equal(decimal.RequireFromString("10")))
}

func TestCreateProductionLog_CancelledOrderRejected(t *testing.T) {
	fx := newProductionFixture(t)

	productID := uuid.New()
	steel := fx.materials.addMaterial("Steel", "kg", "10")
	fx.materials.require(productID, steel, "1")

	orderID := fx.addOrder(model.OrderStatusCancelled, model.OrderItem{ProductID: productID, Quantity: 1})

	_, _, err := fx.service.CreateProductionLog(context.Background(), uuid.NewString(), CreateProductionLogRequest{
		OrderID:     orderID.String(),
		ProducedQty: 1,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "cancelled")
}

func TestCreateProductionLog_UnknownOrder(t *testing.T) {
	fx := newProductionFixture(t)

	_, _, err := fx.service.CreateProductionLog(context.Background(), uuid.NewString(), CreateProductionLogRequest{
		OrderID:     uuid.NewString(),
		ProducedQty: 1,
	})
	require.Error(t, err)
}
