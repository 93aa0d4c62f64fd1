package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"erp-backend/internal/model"
	"erp-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateInvoiceRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	TaxRate string `json:"tax_rate"` // decimal string, e.g. "0.10"; empty means no tax
	Note    string `json:"note"`
}

// --- Interface ---

type InvoiceService interface {
	CreateInvoice(ctx context.Context, userID string, req CreateInvoiceRequest) (*model.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*model.Invoice, error)
	ListInvoices(ctx context.Context, page, limit int, status string) ([]model.Invoice, int64, error)
	MarkPaid(ctx context.Context, userID, id string) (*model.Invoice, error)
	CancelInvoice(ctx context.Context, userID, id string) (*model.Invoice, error)
}

type invoiceService struct {
	invoiceRepo repository.InvoiceRepository
	orderRepo   repository.OrderRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	orderRepo repository.OrderRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) InvoiceService {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		orderRepo:   orderRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
	}
}

// CreateInvoice bills an order. The subtotal is recomputed from the order's
// line items at invoicing time, never taken from the request.
func (s *invoiceService) CreateInvoice(ctx context.Context, userID string, req CreateInvoiceRequest) (*model.Invoice, error) {
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("invalid order_id: %w", err)
	}

	taxRate := decimal.Zero
	if req.TaxRate != "" {
		taxRate, err = decimal.NewFromString(req.TaxRate)
		if err != nil {
			return nil, fmt.Errorf("invalid tax_rate: %w", err)
		}
		if taxRate.IsNegative() {
			return nil, errors.New("tax_rate must not be negative")
		}
	}

	var invoice *model.Invoice
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDWithItems(txCtx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("order not found")
			}
			return fmt.Errorf("failed to find order: %w", err)
		}
		if order.Status == model.OrderStatusCancelled {
			return fmt.Errorf("cannot invoice cancelled order %s", order.OrderCode)
		}
		if len(order.Items) == 0 {
			return fmt.Errorf("order %s has no line items", order.OrderCode)
		}

		subtotal := decimal.Zero
		for _, item := range order.Items {
			subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		taxAmount := subtotal.Mul(taxRate)

		invoiceNo, err := s.invoiceRepo.NextInvoiceNo(txCtx)
		if err != nil {
			return fmt.Errorf("failed to allocate invoice number: %w", err)
		}

		invoice = &model.Invoice{
			InvoiceNo:   invoiceNo,
			OrderID:     order.ID,
			CustomerID:  order.CustomerID,
			Subtotal:    subtotal,
			TaxRate:     taxRate,
			TaxAmount:   taxAmount,
			TotalAmount: subtotal.Add(taxAmount),
			Status:      model.InvoiceStatusPending,
			Note:        req.Note,
		}
		if err := s.invoiceRepo.Create(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"order_code":   order.OrderCode,
			"subtotal":     subtotal.String(),
			"tax_rate":     taxRate.String(),
			"total_amount": invoice.TotalAmount.String(),
		})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionCreateInvoice,
			EntityID:   invoice.ID.String(),
			EntityName: invoiceNo,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}

	return invoice, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice id: %w", err)
	}
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("invoice not found")
		}
		return nil, err
	}
	return invoice, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, page, limit int, status string) ([]model.Invoice, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.invoiceRepo.List(ctx, page, limit, status)
}

func (s *invoiceService) MarkPaid(ctx context.Context, userID, id string) (*model.Invoice, error) {
	return s.transition(ctx, userID, id, model.InvoiceStatusPaid, model.ActionMarkInvoicePaid)
}

func (s *invoiceService) CancelInvoice(ctx context.Context, userID, id string) (*model.Invoice, error) {
	return s.transition(ctx, userID, id, model.InvoiceStatusCancelled, model.ActionCancelInvoice)
}

func (s *invoiceService) transition(ctx context.Context, userID, id, target, action string) (*model.Invoice, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice id: %w", err)
	}

	var invoice *model.Invoice
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err = s.invoiceRepo.FindByID(txCtx, invoiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("invoice not found")
			}
			return err
		}
		if invoice.Status != model.InvoiceStatusPending {
			return fmt.Errorf("invoice %s is already %s", invoice.InvoiceNo, invoice.Status)
		}

		invoice.Status = target
		if target == model.InvoiceStatusPaid {
			now := time.Now()
			invoice.PaidAt = &now
		}
		if err := s.invoiceRepo.Update(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}

		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     action,
			EntityID:   invoice.ID.String(),
			EntityName: invoice.InvoiceNo,
		})
	})
	if err != nil {
		return nil, err
	}

	return invoice, nil
}
