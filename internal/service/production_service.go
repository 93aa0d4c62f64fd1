package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"erp-backend/internal/model"
	"erp-backend/internal/production"
	"erp-backend/internal/repository"
	ws "erp-backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateProductionLogRequest struct {
	OrderID     string `json:"order_id" binding:"required"`
	ProducedQty int    `json:"produced_qty" binding:"required,gt=0"`
	Notes       string `json:"notes"`
}

// --- Interface ---

type ProductionService interface {
	CreateProductionLog(ctx context.Context, userID string, req CreateProductionLogRequest) (*model.ProductionLog, production.Decision, error)
	ListLogs(ctx context.Context, page, limit int, orderID string) ([]model.ProductionLog, int64, error)
}

type productionService struct {
	orderRepo      repository.OrderRepository
	materialRepo   repository.RawMaterialRepository
	productionRepo repository.ProductionRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	hub            *ws.Hub
}

func NewProductionService(
	orderRepo repository.OrderRepository,
	materialRepo repository.RawMaterialRepository,
	productionRepo repository.ProductionRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) ProductionService {
	return &productionService{
		orderRepo:      orderRepo,
		materialRepo:   materialRepo,
		productionRepo: productionRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		hub:            hub,
	}
}

// lockingRequirementSource routes requirement lookups through the FOR UPDATE
// variant so the availability check and the stock decrement below it operate
// on the same locked rows within one transaction.
type lockingRequirementSource struct {
	repo repository.RawMaterialRepository
}

func (l lockingRequirementSource) RequirementsForProduct(ctx context.Context, productID uuid.UUID) ([]production.RequirementRow, error) {
	return l.repo.RequirementsForProductForUpdate(ctx, productID)
}

// CreateProductionLog authorizes and records one production run. The
// availability check, the stock decrement, the movement ledger rows, the log
// itself and the audit entry all commit or roll back together. A denied
// check returns production.InsufficientMaterialsError with the full
// shortfall breakdown and persists nothing.
func (s *productionService) CreateProductionLog(ctx context.Context, userID string, req CreateProductionLogRequest) (*model.ProductionLog, production.Decision, error) {
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, production.Decision{}, fmt.Errorf("invalid order_id: %w", err)
	}

	var (
		logEntry *model.ProductionLog
		decision production.Decision
		touched  []model.RawMaterial
	)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDWithItems(txCtx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("order not found")
			}
			return fmt.Errorf("failed to find order: %w", err)
		}
		if order.Status == model.OrderStatusCancelled {
			return fmt.Errorf("order %s is cancelled", order.OrderCode)
		}

		checker := production.NewChecker(lockingRequirementSource{repo: s.materialRepo})
		workflow := production.NewWorkflow(s.orderRepo, checker)

		decision, err = workflow.Authorize(txCtx, orderID, req.ProducedQty)
		if err != nil {
			return err
		}
		if !decision.CanProduce {
			return &production.InsufficientMaterialsError{Decision: decision}
		}

		logEntry = &model.ProductionLog{
			OrderID:     orderID,
			ProducedQty: req.ProducedQty,
			Notes:       req.Notes,
			CreatedBy:   parseUserID(userID),
		}
		if err := s.productionRepo.Create(txCtx, logEntry); err != nil {
			return fmt.Errorf("failed to create production log: %w", err)
		}

		// Products on the same order may share materials; consumption is
		// summed per material before the single decrement.
		type consumption struct {
			name  string
			total decimal.Decimal
		}
		totals := make(map[uuid.UUID]*consumption)
		var materialOrder []uuid.UUID
		for _, result := range decision.Results {
			c, ok := totals[result.RawMaterialID]
			if !ok {
				c = &consumption{name: result.MaterialName, total: decimal.Zero}
				totals[result.RawMaterialID] = c
				materialOrder = append(materialOrder, result.RawMaterialID)
			}
			c.total = c.total.Add(result.RequiredQuantity)
		}

		for _, materialID := range materialOrder {
			c := totals[materialID]

			locked, err := s.materialRepo.FindByIDForUpdate(txCtx, materialID)
			if err != nil {
				return fmt.Errorf("failed to lock raw material %s: %w", materialID, err)
			}

			newStock := locked.CurrentStock.Sub(c.total)
			if newStock.IsNegative() {
				// Per-product checks passed individually but the combined
				// draw across products exceeds stock; deny like any other
				// shortfall instead of going negative.
				short := production.MaterialCheckResult{
					RawMaterialID:     locked.ID,
					MaterialName:      locked.Name,
					RequiredQuantity:  c.total,
					AvailableQuantity: locked.CurrentStock,
					Unit:              locked.Unit,
					CanProduce:        false,
					Shortfall:         c.total.Sub(locked.CurrentStock),
				}
				return &production.InsufficientMaterialsError{Decision: production.Decision{
					CanProduce:         false,
					Message:            "Insufficient materials: " + locked.Name,
					Results:            decision.Results,
					ShortfallMaterials: []production.MaterialCheckResult{short},
				}}
			}

			if err := s.materialRepo.UpdateStock(txCtx, locked.ID, newStock); err != nil {
				return fmt.Errorf("failed to decrement stock for '%s': %w", c.name, err)
			}

			movement := &model.StockMovement{
				RawMaterialID:   locked.ID,
				ProductionLogID: &logEntry.ID,
				MovementType:    model.MovementTypeOut,
				Reason:          model.MovementReasonProduction,
				QuantityChanged: c.total,
				StockAfter:      newStock,
			}
			if err := s.materialRepo.RecordMovement(txCtx, movement); err != nil {
				return fmt.Errorf("failed to record stock movement: %w", err)
			}

			locked.CurrentStock = newStock
			touched = append(touched, *locked)
		}

		if order.Status == model.OrderStatusPending {
			if err := s.orderRepo.UpdateStatus(txCtx, order.ID, model.OrderStatusInProduction); err != nil {
				return fmt.Errorf("failed to update order status: %w", err)
			}
		}

		var materialNames []string
		for _, materialID := range materialOrder {
			materialNames = append(materialNames, totals[materialID].name)
		}
		details, _ := json.Marshal(map[string]interface{}{
			"order_code":   order.OrderCode,
			"produced_qty": req.ProducedQty,
			"notes":        req.Notes,
			"materials":    materialNames,
		})
		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionCreateProductionLog,
			EntityID:   logEntry.ID.String(),
			EntityName: order.OrderCode,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		return nil
	})

	if err != nil {
		var denied *production.InsufficientMaterialsError
		if errors.As(err, &denied) {
			return nil, denied.Decision, err
		}
		return nil, production.Decision{}, err
	}

	s.hub.BroadcastEvent(ws.EventProductionCreated, map[string]interface{}{
		"production_log_id": logEntry.ID.String(),
		"order_id":          orderID.String(),
		"produced_qty":      req.ProducedQty,
	})
	for _, material := range touched {
		s.hub.BroadcastEvent(ws.EventStockUpdated, map[string]interface{}{
			"raw_material_id": material.ID.String(),
			"name":            material.Name,
			"current_stock":   material.CurrentStock.String(),
		})
		if material.CurrentStock.LessThan(material.MinStockLevel) {
			s.hub.BroadcastEvent(ws.EventLowStock, map[string]interface{}{
				"raw_material_id": material.ID.String(),
				"name":            material.Name,
				"current_stock":   material.CurrentStock.String(),
				"min_stock_level": material.MinStockLevel.String(),
			})
		}
	}

	return logEntry, decision, nil
}

func (s *productionService) ListLogs(ctx context.Context, page, limit int, orderID string) ([]model.ProductionLog, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var filter *uuid.UUID
	if orderID != "" {
		parsed, err := uuid.Parse(orderID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid order_id: %w", err)
		}
		filter = &parsed
	}

	return s.productionRepo.List(ctx, page, limit, filter)
}
