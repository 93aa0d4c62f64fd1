package service

import (
	"context"
	"fmt"
	"time"

	"erp-backend/internal/model"
	"erp-backend/internal/repository"
)

// ProductionReport summarizes production runs per order over a date range.
type ProductionReport struct {
	From time.Time                         `json:"from"`
	To   time.Time                         `json:"to"`
	Rows []repository.ProductionSummaryRow `json:"rows"`
}

// LowStockReport lists materials whose current stock sits below their
// configured minimum.
type LowStockReport struct {
	Count     int                 `json:"count"`
	Materials []model.RawMaterial `json:"materials"`
}

type ReportService interface {
	ProductionSummary(ctx context.Context, from, to string) (*ProductionReport, error)
	LowStock(ctx context.Context) (*LowStockReport, error)
}

type reportService struct {
	productionRepo repository.ProductionRepository
	materialRepo   repository.RawMaterialRepository
}

func NewReportService(productionRepo repository.ProductionRepository, materialRepo repository.RawMaterialRepository) ReportService {
	return &reportService{productionRepo: productionRepo, materialRepo: materialRepo}
}

// ProductionSummary accepts YYYY-MM-DD bounds; empty bounds default to the
// last 30 days.
func (s *reportService) ProductionSummary(ctx context.Context, from, to string) (*ProductionReport, error) {
	toTime := time.Now()
	fromTime := toTime.AddDate(0, 0, -30)

	var err error
	if from != "" {
		fromTime, err = time.Parse("2006-01-02", from)
		if err != nil {
			return nil, fmt.Errorf("invalid from date: %w", err)
		}
	}
	if to != "" {
		toTime, err = time.Parse("2006-01-02", to)
		if err != nil {
			return nil, fmt.Errorf("invalid to date: %w", err)
		}
		// Inclusive upper bound on the given day.
		toTime = toTime.AddDate(0, 0, 1)
	}

	rows, err := s.productionRepo.SummaryByOrder(ctx, fromTime, toTime)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate production summary: %w", err)
	}

	return &ProductionReport{From: fromTime, To: toTime, Rows: rows}, nil
}

func (s *reportService) LowStock(ctx context.Context) (*LowStockReport, error) {
	materials, err := s.materialRepo.ListBelowMinStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list low-stock materials: %w", err)
	}
	return &LowStockReport{Count: len(materials), Materials: materials}, nil
}
