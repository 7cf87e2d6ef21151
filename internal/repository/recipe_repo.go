package repository

import (
	"context"

	"recipestock/internal/dto"
	"recipestock/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecipeRepository persists recipes together with their ordered lines.
type RecipeRepository interface {
	Create(ctx context.Context, r *model.Recipe) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Recipe, error)
	List(ctx context.Context, filter dto.RecipeFilter) ([]model.Recipe, int64, error)
	ListAll(ctx context.Context) ([]model.Recipe, error)
	UpdateMetadata(ctx context.Context, r *model.Recipe) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Used inside transactions; callers must pass the tx instance
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Recipe, error)
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Recipe, error)
	FindByIDForShareTx(tx *gorm.DB, id uuid.UUID) (*model.Recipe, error)
	ReplaceLinesTx(tx *gorm.DB, recipeID uuid.UUID, lines []model.RecipeLine) error
	TouchTx(tx *gorm.DB, r *model.Recipe) error
	UpsertTx(tx *gorm.DB, r *model.Recipe) error

	DB() *gorm.DB
}

type recipeRepo struct{ db *gorm.DB }

func NewRecipeRepository(db *gorm.DB) RecipeRepository { return &recipeRepo{db: db} }

func orderedLines(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

func (r *recipeRepo) Create(ctx context.Context, rec *model.Recipe) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *recipeRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Recipe, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *recipeRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Recipe, error) {
	var rec model.Recipe
	err := tx.Preload("Lines", orderedLines).Where("id = ?", id).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindByIDForUpdateTx locks the recipe row against sales and other edits
// until the transaction ends.
func (r *recipeRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Recipe, error) {
	return r.FindByIDTx(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

// FindByIDForShareTx lets concurrent sales read the recipe while blocking
// line edits.
func (r *recipeRepo) FindByIDForShareTx(tx *gorm.DB, id uuid.UUID) (*model.Recipe, error) {
	return r.FindByIDTx(tx.Clauses(clause.Locking{Strength: "SHARE"}), id)
}

func (r *recipeRepo) List(ctx context.Context, filter dto.RecipeFilter) ([]model.Recipe, int64, error) {
	var list []model.Recipe
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Recipe{})
	if filter.Name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+lower(filter.Name)+"%")
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	switch filter.Active {
	case "true":
		q = q.Where("is_active = ?", true)
	case "false":
		q = q.Where("is_active = ?", false)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := NormalizePage(filter.Page, filter.Limit, 50)
	err := q.Preload("Lines", orderedLines).
		Order("name ASC").Limit(limit).Offset((page - 1) * limit).
		Find(&list).Error
	return list, total, err
}

func (r *recipeRepo) ListAll(ctx context.Context) ([]model.Recipe, error) {
	var list []model.Recipe
	err := r.db.WithContext(ctx).Preload("Lines", orderedLines).Order("name ASC").Find(&list).Error
	return list, err
}

// UpdateMetadata saves the recipe row only; lines are never touched here.
func (r *recipeRepo) UpdateMetadata(ctx context.Context, rec *model.Recipe) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(rec).Error
}

func (r *recipeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&model.RecipeLine{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Recipe{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ReplaceLinesTx rewrites the recipe's lines, renumbering positions from 0.
func (r *recipeRepo) ReplaceLinesTx(tx *gorm.DB, recipeID uuid.UUID, lines []model.RecipeLine) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&model.RecipeLine{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	fresh := make([]model.RecipeLine, len(lines))
	for i, l := range lines {
		l.RecipeID = recipeID
		l.Position = i
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		fresh[i] = l
	}
	return tx.Create(&fresh).Error
}

func (r *recipeRepo) TouchTx(tx *gorm.DB, rec *model.Recipe) error {
	return tx.Omit(clause.Associations).Save(rec).Error
}

func (r *recipeRepo) UpsertTx(tx *gorm.DB, rec *model.Recipe) error {
	return tx.Omit(clause.Associations).Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
}

func (r *recipeRepo) DB() *gorm.DB { return r.db }
