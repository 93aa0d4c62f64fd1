package repository

import (
	"context"

	"erp-backend/internal/model"
	"erp-backend/internal/production"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RawMaterialRepository persists raw materials, their per-product
// requirements and the stock movement ledger. It also backs the production
// core's RequirementSource.
type RawMaterialRepository interface {
	Create(ctx context.Context, material *model.RawMaterial) error
	Update(ctx context.Context, material *model.RawMaterial) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.RawMaterial, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.RawMaterial, error)
	List(ctx context.Context, page, limit int, search string) ([]model.RawMaterial, int64, error)
	ListBelowMinStock(ctx context.Context) ([]model.RawMaterial, error)
	UpdateStock(ctx context.Context, id uuid.UUID, stock decimal.Decimal) error
	RecordMovement(ctx context.Context, movement *model.StockMovement) error
	RequirementsForProduct(ctx context.Context, productID uuid.UUID) ([]production.RequirementRow, error)
	RequirementsForProductForUpdate(ctx context.Context, productID uuid.UUID) ([]production.RequirementRow, error)
	ReplaceRequirements(ctx context.Context, productID uuid.UUID, requirements []model.MaterialRequirement) error
}

type rawMaterialRepository struct {
	db *gorm.DB
}

func NewRawMaterialRepository(db *gorm.DB) RawMaterialRepository {
	return &rawMaterialRepository{db: db}
}

func (r *rawMaterialRepository) Create(ctx context.Context, material *model.RawMaterial) error {
	return GetDB(ctx, r.db).Create(material).Error
}

func (r *rawMaterialRepository) Update(ctx context.Context, material *model.RawMaterial) error {
	return GetDB(ctx, r.db).Save(material).Error
}

func (r *rawMaterialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.RawMaterial{}).Error
}

func (r *rawMaterialRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.RawMaterial, error) {
	var material model.RawMaterial
	if err := GetDB(ctx, r.db).First(&material, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *rawMaterialRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.RawMaterial, error) {
	var material model.RawMaterial
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&material).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *rawMaterialRepository) List(ctx context.Context, page, limit int, search string) ([]model.RawMaterial, int64, error) {
	var materials []model.RawMaterial
	var total int64

	db := GetDB(ctx, r.db).Model(&model.RawMaterial{})
	if search != "" {
		db = db.Where("name ILIKE ?", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("name asc").Offset(offset).Limit(limit).Find(&materials).Error; err != nil {
		return nil, 0, err
	}

	return materials, total, nil
}

func (r *rawMaterialRepository) ListBelowMinStock(ctx context.Context) ([]model.RawMaterial, error) {
	var materials []model.RawMaterial
	err := GetDB(ctx, r.db).
		Where("current_stock < min_stock_level").
		Order("name asc").
		Find(&materials).Error
	return materials, err
}

func (r *rawMaterialRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock decimal.Decimal) error {
	return GetDB(ctx, r.db).Model(&model.RawMaterial{}).Where("id = ?", id).Update("current_stock", stock).Error
}

func (r *rawMaterialRepository) RecordMovement(ctx context.Context, movement *model.StockMovement) error {
	return GetDB(ctx, r.db).Create(movement).Error
}

func (r *rawMaterialRepository) RequirementsForProduct(ctx context.Context, productID uuid.UUID) ([]production.RequirementRow, error) {
	return r.requirements(GetDB(ctx, r.db), productID)
}

// RequirementsForProductForUpdate locks the joined raw-material rows for the
// duration of the surrounding transaction, so a concurrent production run
// cannot consume the same stock between check and decrement.
func (r *rawMaterialRepository) RequirementsForProductForUpdate(ctx context.Context, productID uuid.UUID) ([]production.RequirementRow, error) {
	db := GetDB(ctx, r.db).Clauses(clause.Locking{
		Strength: "UPDATE",
		Table:    clause.Table{Name: "rm"},
	})
	return r.requirements(db, productID)
}

func (r *rawMaterialRepository) requirements(db *gorm.DB, productID uuid.UUID) ([]production.RequirementRow, error) {
	rows := []production.RequirementRow{}
	err := db.
		Table("material_requirements AS mr").
		Select("mr.raw_material_id, rm.name, mr.unit, mr.quantity_required, rm.current_stock").
		Joins("JOIN raw_materials rm ON rm.id = mr.raw_material_id AND rm.deleted_at IS NULL").
		Where("mr.product_id = ?", productID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *rawMaterialRepository) ReplaceRequirements(ctx context.Context, productID uuid.UUID, requirements []model.MaterialRequirement) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("product_id = ?", productID).Delete(&model.MaterialRequirement{}).Error; err != nil {
		return err
	}
	if len(requirements) == 0 {
		return nil
	}
	return db.Create(&requirements).Error
}
