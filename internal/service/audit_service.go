package service

import (
	"context"

	"erp-backend/internal/model"
	"erp-backend/internal/repository"
)

type AuditService interface {
	ListLogs(ctx context.Context, page, limit int, action string) ([]model.AuditLog, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) ListLogs(ctx context.Context, page, limit int, action string) ([]model.AuditLog, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.List(ctx, page, limit, action)
}
