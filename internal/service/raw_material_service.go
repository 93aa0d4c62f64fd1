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

type CreateRawMaterialRequest struct {
	Name          string `json:"name" binding:"required"`
	Unit          string `json:"unit" binding:"required"`
	CurrentStock  string `json:"current_stock"`
	MinStockLevel string `json:"min_stock_level"`
	CostPerUnit   string `json:"cost_per_unit"`
}

type UpdateRawMaterialRequest struct {
	Name          string `json:"name" binding:"required"`
	Unit          string `json:"unit" binding:"required"`
	MinStockLevel string `json:"min_stock_level"`
	CostPerUnit   string `json:"cost_per_unit"`
}

type AdjustStockRequest struct {
	Quantity string `json:"quantity" binding:"required"` // positive = restock, negative = write-off
	Reason   string `json:"reason"`
}

// --- Interface ---

type RawMaterialService interface {
	ListMaterials(ctx context.Context, page, limit int, search string) ([]model.RawMaterial, int64, error)
	GetMaterial(ctx context.Context, id string) (*model.RawMaterial, error)
	CreateMaterial(ctx context.Context, userID string, req CreateRawMaterialRequest) (*model.RawMaterial, error)
	UpdateMaterial(ctx context.Context, userID string, id string, req UpdateRawMaterialRequest) (*model.RawMaterial, error)
	DeleteMaterial(ctx context.Context, userID string, id string) error
	AdjustStock(ctx context.Context, userID string, id string, req AdjustStockRequest) (*model.RawMaterial, error)
	CheckAvailability(ctx context.Context, productID string, quantity int) (production.Decision, error)
}

type rawMaterialService struct {
	materialRepo repository.RawMaterialRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	checker      *production.Checker
	hub          *ws.Hub
}

func NewRawMaterialService(
	materialRepo repository.RawMaterialRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	checker *production.Checker,
	hub *ws.Hub,
) RawMaterialService {
	return &rawMaterialService{
		materialRepo: materialRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		checker:      checker,
		hub:          hub,
	}
}

func parseDecimalOrZero(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func (s *rawMaterialService) ListMaterials(ctx context.Context, page, limit int, search string) ([]model.RawMaterial, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.materialRepo.List(ctx, page, limit, search)
}

func (s *rawMaterialService) GetMaterial(ctx context.Context, id string) (*model.RawMaterial, error) {
	materialID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid raw material id: %w", err)
	}

	material, err := s.materialRepo.FindByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("raw material not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return material, nil
}

func (s *rawMaterialService) CreateMaterial(ctx context.Context, userID string, req CreateRawMaterialRequest) (*model.RawMaterial, error) {
	stock, err := parseDecimalOrZero(req.CurrentStock)
	if err != nil {
		return nil, fmt.Errorf("invalid current_stock: %w", err)
	}
	if stock.IsNegative() {
		return nil, errors.New("current_stock cannot be negative")
	}
	minStock, err := parseDecimalOrZero(req.MinStockLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid min_stock_level: %w", err)
	}
	cost, err := parseDecimalOrZero(req.CostPerUnit)
	if err != nil {
		return nil, fmt.Errorf("invalid cost_per_unit: %w", err)
	}

	material := model.RawMaterial{
		Name:          req.Name,
		Unit:          req.Unit,
		CurrentStock:  stock,
		MinStockLevel: minStock,
		CostPerUnit:   cost,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.materialRepo.Create(txCtx, &material); err != nil {
			return fmt.Errorf("failed to create raw material: %w", err)
		}

		if stock.IsPositive() {
			movement := &model.StockMovement{
				RawMaterialID:   material.ID,
				MovementType:    model.MovementTypeIn,
				Reason:          model.MovementReasonRestock,
				QuantityChanged: stock,
				StockAfter:      stock,
			}
			if err := s.materialRepo.RecordMovement(txCtx, movement); err != nil {
				return fmt.Errorf("failed to record stock movement: %w", err)
			}
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionCreateRawMaterial,
			EntityID:   material.ID.String(),
			EntityName: material.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &material, nil
}

func (s *rawMaterialService) UpdateMaterial(ctx context.Context, userID string, id string, req UpdateRawMaterialRequest) (*model.RawMaterial, error) {
	material, err := s.GetMaterial(ctx, id)
	if err != nil {
		return nil, err
	}

	minStock, err := parseDecimalOrZero(req.MinStockLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid min_stock_level: %w", err)
	}
	cost, err := parseDecimalOrZero(req.CostPerUnit)
	if err != nil {
		return nil, fmt.Errorf("invalid cost_per_unit: %w", err)
	}

	material.Name = req.Name
	material.Unit = req.Unit
	material.MinStockLevel = minStock
	material.CostPerUnit = cost

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.materialRepo.Update(txCtx, material); err != nil {
			return fmt.Errorf("failed to update raw material: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionUpdateRawMaterial,
			EntityID:   material.ID.String(),
			EntityName: material.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return material, nil
}

func (s *rawMaterialService) DeleteMaterial(ctx context.Context, userID string, id string) error {
	material, err := s.GetMaterial(ctx, id)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.materialRepo.Delete(txCtx, material.ID); err != nil {
			return fmt.Errorf("failed to delete raw material: %w", err)
		}

		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionDeleteRawMaterial,
			EntityID:   material.ID.String(),
			EntityName: material.Name,
			Details:    `{"deleted": true}`,
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
}

// AdjustStock applies a manual stock correction. The row is locked for the
// duration of the transaction so concurrent production runs see a consistent
// stock level.
func (s *rawMaterialService) AdjustStock(ctx context.Context, userID string, id string, req AdjustStockRequest) (*model.RawMaterial, error) {
	materialID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid raw material id: %w", err)
	}

	delta, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity: %w", err)
	}
	if delta.IsZero() {
		return nil, errors.New("quantity cannot be zero")
	}

	var material *model.RawMaterial
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.materialRepo.FindByIDForUpdate(txCtx, materialID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("raw material not found")
			}
			return fmt.Errorf("failed to lock raw material: %w", err)
		}

		newStock := locked.CurrentStock.Add(delta)
		if newStock.IsNegative() {
			return fmt.Errorf("adjustment would drive stock of '%s' below zero (current %s, delta %s)",
				locked.Name, locked.CurrentStock, delta)
		}

		if err := s.materialRepo.UpdateStock(txCtx, locked.ID, newStock); err != nil {
			return fmt.Errorf("failed to update stock: %w", err)
		}

		movementType := model.MovementTypeIn
		if delta.IsNegative() {
			movementType = model.MovementTypeOut
		}
		movement := &model.StockMovement{
			RawMaterialID:   locked.ID,
			MovementType:    movementType,
			Reason:          model.MovementReasonAdjustment,
			QuantityChanged: delta.Abs(),
			StockAfter:      newStock,
		}
		if err := s.materialRepo.RecordMovement(txCtx, movement); err != nil {
			return fmt.Errorf("failed to record stock movement: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"quantity": req.Quantity,
			"reason":   req.Reason,
		})
		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionAdjustStock,
			EntityID:   locked.ID.String(),
			EntityName: locked.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		locked.CurrentStock = newStock
		material = locked
		return nil
	})

	if err != nil {
		return nil, err
	}

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

	return material, nil
}

// CheckAvailability runs the sufficiency check without touching stock.
func (s *rawMaterialService) CheckAvailability(ctx context.Context, productID string, quantity int) (production.Decision, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return production.Decision{}, fmt.Errorf("invalid product id: %w", err)
	}
	return s.checker.CheckAvailability(ctx, id, quantity)
}
