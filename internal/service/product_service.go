package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"erp-backend/internal/model"
	"erp-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateProductRequest struct {
	SKU         string `json:"sku" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
	Price       string `json:"price" binding:"required"`
}

type UpdateProductRequest struct {
	SKU         string `json:"sku" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
	Price       string `json:"price" binding:"required"`
}

type RequirementInput struct {
	RawMaterialID    string `json:"raw_material_id" binding:"required"`
	QuantityRequired string `json:"quantity_required" binding:"required"`
	Unit             string `json:"unit" binding:"required"`
}

type SetRequirementsRequest struct {
	Requirements []RequirementInput `json:"requirements" binding:"required,dive"`
}

// --- Interface ---

type ProductService interface {
	ListProducts(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	CreateProduct(ctx context.Context, userID string, req CreateProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, userID string, id string, req UpdateProductRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, userID string, id string) error
	SetRequirements(ctx context.Context, userID string, productID string, req SetRequirementsRequest) error
}

type productService struct {
	productRepo  repository.ProductRepository
	materialRepo repository.RawMaterialRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewProductService(
	productRepo repository.ProductRepository,
	materialRepo repository.RawMaterialRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ProductService {
	return &productService{
		productRepo:  productRepo,
		materialRepo: materialRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

func (s *productService) ListProducts(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.productRepo.List(ctx, page, limit, search)
}

func (s *productService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid product id: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("product not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return product, nil
}

func (s *productService) CreateProduct(ctx context.Context, userID string, req CreateProductRequest) (*model.Product, error) {
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price: %w", err)
	}

	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}

	product := model.Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Unit:        unit,
		Price:       price,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Create(txCtx, &product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionCreateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
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
	return &product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, userID string, id string, req UpdateProductRequest) (*model.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price: %w", err)
	}

	product.SKU = req.SKU
	product.Name = req.Name
	product.Description = req.Description
	if req.Unit != "" {
		product.Unit = req.Unit
	}
	product.Price = price

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Update(txCtx, product); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionUpdateProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
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
	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, userID string, id string) error {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Delete(txCtx, product.ID); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}

		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionDeleteProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    `{"deleted": true}`,
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
}

// SetRequirements replaces the product's bill of materials. Each row is
// validated against the raw material's unit so a requirement can never be
// declared in a unit the stock is not tracked in.
func (s *productService) SetRequirements(ctx context.Context, userID string, productID string, req SetRequirementsRequest) error {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return err
	}

	requirements := make([]model.MaterialRequirement, 0, len(req.Requirements))
	for _, input := range req.Requirements {
		materialID, err := uuid.Parse(input.RawMaterialID)
		if err != nil {
			return fmt.Errorf("invalid raw_material_id '%s': %w", input.RawMaterialID, err)
		}

		qty, err := decimal.NewFromString(input.QuantityRequired)
		if err != nil {
			return fmt.Errorf("invalid quantity_required: %w", err)
		}
		if !qty.IsPositive() {
			return fmt.Errorf("quantity_required must be positive, got %s", qty)
		}

		material, err := s.materialRepo.FindByID(ctx, materialID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("raw material not found: %s", input.RawMaterialID)
			}
			return fmt.Errorf("failed to find raw material: %w", err)
		}
		if material.Unit != input.Unit {
			return fmt.Errorf("unit mismatch for material '%s': stock is tracked in %s, requirement given in %s",
				material.Name, material.Unit, input.Unit)
		}

		requirements = append(requirements, model.MaterialRequirement{
			ProductID:        product.ID,
			RawMaterialID:    materialID,
			QuantityRequired: qty,
			Unit:             input.Unit,
		})
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.materialRepo.ReplaceRequirements(txCtx, product.ID, requirements); err != nil {
			return fmt.Errorf("failed to replace requirements: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionSetRequirements,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
}
