package repository

import (
	"context"
	"testing"

	"erp-backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.Product{},
		&model.RawMaterial{},
		&model.MaterialRequirement{},
		&model.StockMovement{},
		&model.Order{},
		&model.OrderItem{},
	))

	return db
}

func TestRequirementsForProduct_JoinsStock(t *testing.T) {
	db := newTestDB(t)
	repo := NewRawMaterialRepository(db)
	ctx := context.Background()

	product := model.Product{SKU: "CHAIR-01", Name: "Chair", Unit: "pcs", Price: decimal.NewFromInt(50)}
	require.NoError(t, db.Create(&product).Error)

	steel := model.RawMaterial{Name: "Steel", Unit: "kg", CurrentStock: decimal.NewFromInt(10)}
	paint := model.RawMaterial{Name: "Paint", Unit: "l", CurrentStock: decimal.NewFromInt(3)}
	require.NoError(t, repo.Create(ctx, &steel))
	require.NoError(t, repo.Create(ctx, &paint))

	require.NoError(t, repo.ReplaceRequirements(ctx, product.ID, []model.MaterialRequirement{
		{ProductID: product.ID, RawMaterialID: steel.ID, QuantityRequired: decimal.NewFromInt(2), Unit: "kg"},
		{ProductID: product.ID, RawMaterialID: paint.ID, QuantityRequired: decimal.RequireFromString("0.5"), Unit: "l"},
	}))

	rows, err := repo.RequirementsForProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byName := map[string]int{}
	for i, row := range rows {
		byName[row.Name] = i
	}
	steelRow := rows[byName["Steel"]]
	require.True(t, steelRow.QuantityRequired.Equal(decimal.NewFromInt(2)))
	require.True(t, steelRow.CurrentStock.Equal(decimal.NewFromInt(10)))
	require.Equal(t, steel.ID, steelRow.RawMaterialID)
}

func TestRequirementsForProduct_EmptyWithoutError(t *testing.T) {
	db := newTestDB(t)
	repo := NewRawMaterialRepository(db)

	rows, err := repo.RequirementsForProduct(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestRequirementsForProduct_SkipsDeletedMaterials(t *testing.T) {
	db := newTestDB(t)
	repo := NewRawMaterialRepository(db)
	ctx := context.Background()

	product := model.Product{SKU: "TBL-01", Name: "Table", Unit: "pcs", Price: decimal.NewFromInt(120)}
	require.NoError(t, db.Create(&product).Error)

	wood := model.RawMaterial{Name: "Wood", Unit: "kg", CurrentStock: decimal.NewFromInt(40)}
	require.NoError(t, repo.Create(ctx, &wood))
	require.NoError(t, repo.ReplaceRequirements(ctx, product.ID, []model.MaterialRequirement{
		{ProductID: product.ID, RawMaterialID: wood.ID, QuantityRequired: decimal.NewFromInt(5), Unit: "kg"},
	}))

	require.NoError(t, repo.Delete(ctx, wood.ID))

	rows, err := repo.RequirementsForProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestReplaceRequirements_ReplacesExistingRows(t *testing.T) {
	db := newTestDB(t)
	repo := NewRawMaterialRepository(db)
	ctx := context.Background()

	product := model.Product{SKU: "LAMP-01", Name: "Lamp", Unit: "pcs", Price: decimal.NewFromInt(30)}
	require.NoError(t, db.Create(&product).Error)

	brass := model.RawMaterial{Name: "Brass", Unit: "kg", CurrentStock: decimal.NewFromInt(8)}
	glass := model.RawMaterial{Name: "Glass", Unit: "kg", CurrentStock: decimal.NewFromInt(12)}
	require.NoError(t, repo.Create(ctx, &brass))
	require.NoError(t, repo.Create(ctx, &glass))

	require.NoError(t, repo.ReplaceRequirements(ctx, product.ID, []model.MaterialRequirement{
		{ProductID: product.ID, RawMaterialID: brass.ID, QuantityRequired: decimal.NewFromInt(1), Unit: "kg"},
	}))
	require.NoError(t, repo.ReplaceRequirements(ctx, product.ID, []model.MaterialRequirement{
		{ProductID: product.ID, RawMaterialID: glass.ID, QuantityRequired: decimal.NewFromInt(2), Unit: "kg"},
	}))

	rows, err := repo.RequirementsForProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Glass", rows[0].Name)
}

func TestOrderLineItems_MissingOrderFails(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrderRepository(db)

	_, err := repo.OrderLineItems(context.Background(), uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrderLineItems_ReturnsItems(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderRepository(db)
	ctx := context.Background()

	order := model.Order{OrderCode: "ORD-001", Status: model.OrderStatusPending}
	require.NoError(t, orders.Create(ctx, &order))

	productID := uuid.New()
	require.NoError(t, orders.CreateItem(ctx, &model.OrderItem{
		OrderID:   order.ID,
		ProductID: productID,
		Quantity:  7,
		UnitPrice: decimal.NewFromInt(10),
	}))

	items, err := orders.OrderLineItems(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, productID, items[0].ProductID)
	require.Equal(t, 7, items[0].Quantity)
}
