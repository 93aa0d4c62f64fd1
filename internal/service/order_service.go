package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"erp-backend/internal/model"
	"erp-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type OrderItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	UnitPrice string `json:"unit_price"` // defaults to the product's list price
}

type CreateOrderRequest struct {
	OrderCode  string             `json:"order_code" binding:"required"`
	CustomerID string             `json:"customer_id"`
	Note       string             `json:"note"`
	Items      []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING IN_PRODUCTION COMPLETED CANCELLED"`
}

// --- Interface ---

type OrderService interface {
	ListOrders(ctx context.Context, page, limit int, status string) ([]model.Order, int64, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (*model.Order, error)
	UpdateStatus(ctx context.Context, userID string, id string, req UpdateOrderStatusRequest) error
}

type orderService struct {
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

func (s *orderService) ListOrders(ctx context.Context, page, limit int, status string) ([]model.Order, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.orderRepo.List(ctx, page, limit, status)
}

func (s *orderService) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid order id: %w", err)
	}

	order, err := s.orderRepo.FindByIDWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("order not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return order, nil
}

func (s *orderService) CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (*model.Order, error) {
	var customerID *uuid.UUID
	if req.CustomerID != "" {
		parsed, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("invalid customer_id: %w", err)
		}
		if _, err := s.customerRepo.FindByID(ctx, parsed); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.New("customer not found")
			}
			return nil, fmt.Errorf("failed to find customer: %w", err)
		}
		customerID = &parsed
	}

	order := model.Order{
		OrderCode:  req.OrderCode,
		CustomerID: customerID,
		Status:     model.OrderStatusPending,
		Note:       req.Note,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Validate product exists for each item before creating anything
		var productNames []string
		type itemPlan struct {
			productID uuid.UUID
			quantity  int
			unitPrice decimal.Decimal
		}
		plans := make([]itemPlan, 0, len(req.Items))

		for _, itemReq := range req.Items {
			pid, parseErr := uuid.Parse(itemReq.ProductID)
			if parseErr != nil {
				return fmt.Errorf("invalid product_id: %w", parseErr)
			}
			product, findErr := s.productRepo.FindByID(txCtx, pid)
			if findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return fmt.Errorf("product not found: %s", itemReq.ProductID)
				}
				return fmt.Errorf("failed to find product %s: %w", itemReq.ProductID, findErr)
			}

			unitPrice := product.Price
			if itemReq.UnitPrice != "" {
				parsed, err := decimal.NewFromString(itemReq.UnitPrice)
				if err != nil {
					return fmt.Errorf("invalid unit_price: %w", err)
				}
				unitPrice = parsed
			}

			productNames = append(productNames, product.Name)
			plans = append(plans, itemPlan{productID: pid, quantity: itemReq.Quantity, unitPrice: unitPrice})
		}

		if err := s.orderRepo.Create(txCtx, &order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, plan := range plans {
			orderItem := &model.OrderItem{
				OrderID:   order.ID,
				ProductID: plan.productID,
				Quantity:  plan.quantity,
				UnitPrice: plan.unitPrice,
			}
			if err := s.orderRepo.CreateItem(txCtx, orderItem); err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"order_code":  req.OrderCode,
			"customer_id": req.CustomerID,
			"note":        req.Note,
			"items":       req.Items,
		})
		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionCreateOrder,
			EntityID:   order.ID.String(),
			EntityName: strings.Join(productNames, ", "),
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

	return s.orderRepo.FindByIDWithItems(ctx, order.ID)
}

func (s *orderService) UpdateStatus(ctx context.Context, userID string, id string, req UpdateOrderStatusRequest) error {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return err
	}

	if order.Status == model.OrderStatusCancelled || order.Status == model.OrderStatusCompleted {
		return fmt.Errorf("order %s is %s and can no longer change status", order.OrderCode, order.Status)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.UpdateStatus(txCtx, order.ID, req.Status); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		details, _ := json.Marshal(map[string]string{
			"from": order.Status,
			"to":   req.Status,
		})
		audit := &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionUpdateOrderStatus,
			EntityID:   order.ID.String(),
			EntityName: order.OrderCode,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
}
