package repository

import (
	"context"
	"time"

	"erp-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductionRepository interface {
	Create(ctx context.Context, log *model.ProductionLog) error
	List(ctx context.Context, page, limit int, orderID *uuid.UUID) ([]model.ProductionLog, int64, error)
	SummaryByOrder(ctx context.Context, from, to time.Time) ([]ProductionSummaryRow, error)
}

// ProductionSummaryRow aggregates produced quantities per order for reporting.
type ProductionSummaryRow struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderCode     string    `json:"order_code"`
	TotalProduced int       `json:"total_produced"`
	RunCount      int       `json:"run_count"`
}

type productionRepository struct {
	db *gorm.DB
}

func NewProductionRepository(db *gorm.DB) ProductionRepository {
	return &productionRepository{db: db}
}

func (r *productionRepository) Create(ctx context.Context, log *model.ProductionLog) error {
	return GetDB(ctx, r.db).Create(log).Error
}

func (r *productionRepository) List(ctx context.Context, page, limit int, orderID *uuid.UUID) ([]model.ProductionLog, int64, error) {
	var logs []model.ProductionLog
	var total int64

	db := GetDB(ctx, r.db).Model(&model.ProductionLog{})
	if orderID != nil {
		db = db.Where("order_id = ?", *orderID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Order").
		Preload("Creator").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func (r *productionRepository) SummaryByOrder(ctx context.Context, from, to time.Time) ([]ProductionSummaryRow, error) {
	var rows []ProductionSummaryRow
	err := GetDB(ctx, r.db).
		Table("production_logs AS pl").
		Select("pl.order_id, o.order_code, SUM(pl.produced_qty) AS total_produced, COUNT(*) AS run_count").
		Joins("JOIN orders o ON o.id = pl.order_id").
		Where("pl.created_at BETWEEN ? AND ?", from, to).
		Group("pl.order_id, o.order_code").
		Order("total_produced DESC").
		Scan(&rows).Error
	return rows, err
}
