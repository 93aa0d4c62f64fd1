package repository

import (
	"context"
	"errors"

	"erp-backend/internal/model"

	"gorm.io/gorm"
)

type SettingRepository interface {
	List(ctx context.Context) ([]model.Setting, error)
	Upsert(ctx context.Context, key, value string) (*model.Setting, error)
}

type settingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) List(ctx context.Context) ([]model.Setting, error) {
	var settings []model.Setting
	err := GetDB(ctx, r.db).Order("key asc").Find(&settings).Error
	return settings, err
}

func (r *settingRepository) Upsert(ctx context.Context, key, value string) (*model.Setting, error) {
	db := GetDB(ctx, r.db)

	var setting model.Setting
	err := db.Where("key = ?", key).First(&setting).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		setting = model.Setting{Key: key, Value: value}
		if err := db.Create(&setting).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		setting.Value = value
		if err := db.Save(&setting).Error; err != nil {
			return nil, err
		}
	}

	return &setting, nil
}
