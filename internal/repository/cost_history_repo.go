package repository

import (
	"context"

	"recipestock/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CostHistoryRepository is append-only.
type CostHistoryRepository interface {
	CreateTx(tx *gorm.DB, h *model.CostHistory) error
	ListByIngredient(ctx context.Context, ingredientID uuid.UUID, limit int) ([]model.CostHistory, error)
}

type costHistoryRepo struct{ db *gorm.DB }

func NewCostHistoryRepository(db *gorm.DB) CostHistoryRepository {
	return &costHistoryRepo{db: db}
}

func (r *costHistoryRepo) CreateTx(tx *gorm.DB, h *model.CostHistory) error {
	return tx.Create(h).Error
}

// ListByIngredient returns the newest entries first.
func (r *costHistoryRepo) ListByIngredient(ctx context.Context, ingredientID uuid.UUID, limit int) ([]model.CostHistory, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var list []model.CostHistory
	err := r.db.WithContext(ctx).
		Where("ingredient_id = ?", ingredientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
