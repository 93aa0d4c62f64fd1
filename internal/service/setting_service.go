package service

import (
	"context"
	"fmt"

	"erp-backend/internal/model"
	"erp-backend/internal/rbac"
	"erp-backend/internal/repository"
)

type UpsertSettingRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

type SettingService interface {
	ListSettings(ctx context.Context) ([]model.Setting, error)
	UpsertSetting(ctx context.Context, userID string, req UpsertSettingRequest) (*model.Setting, error)
	// PermissionTable exposes the read-only role/resource/action matrix for
	// admin inspection. Changing it requires a deploy.
	PermissionTable() rbac.Table
}

type settingService struct {
	settingRepo repository.SettingRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	evaluator   *rbac.Evaluator
}

func NewSettingService(
	settingRepo repository.SettingRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	evaluator *rbac.Evaluator,
) SettingService {
	return &settingService{
		settingRepo: settingRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		evaluator:   evaluator,
	}
}

func (s *settingService) ListSettings(ctx context.Context) ([]model.Setting, error) {
	return s.settingRepo.List(ctx)
}

func (s *settingService) UpsertSetting(ctx context.Context, userID string, req UpsertSettingRequest) (*model.Setting, error) {
	var setting *model.Setting
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		setting, err = s.settingRepo.Upsert(txCtx, req.Key, req.Value)
		if err != nil {
			return fmt.Errorf("failed to upsert setting: %w", err)
		}
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     parseUserID(userID),
			Action:     model.ActionUpdateSetting,
			EntityID:   req.Key,
			EntityName: req.Key,
			Details:    fmt.Sprintf(`{"value":%q}`, req.Value),
		})
	})
	if err != nil {
		return nil, err
	}
	return setting, nil
}

func (s *settingService) PermissionTable() rbac.Table {
	return s.evaluator.Table()
}
