package repository

import (
	"context"
	"time"

	"recipestock/internal/dto"
	"recipestock/internal/model"
	"recipestock/internal/stocklevel"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IngredientRepository defines the data access contract for ingredients.
// Services depend on this interface, not on the concrete GORM implementation.
type IngredientRepository interface {
	Create(ctx context.Context, i *model.Ingredient) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Ingredient, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Ingredient, error)
	List(ctx context.Context, filter dto.IngredientFilter) ([]model.Ingredient, int64, error)
	ListAll(ctx context.Context) ([]model.Ingredient, error)
	ListExpiringBefore(ctx context.Context, limit time.Time) ([]model.Ingredient, error)
	CountByCategory(ctx context.Context, category string) (int64, error)
	Update(ctx context.Context, i *model.Ingredient) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Used inside transactions; callers must pass the tx instance
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Ingredient, error)
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Ingredient, error)
	UpdateStockTx(tx *gorm.DB, id uuid.UUID, stock decimal.Decimal, at time.Time) error
	SaveTx(tx *gorm.DB, i *model.Ingredient) error
	UpsertTx(tx *gorm.DB, i *model.Ingredient) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

// levelConditions mirrors stocklevel.Classify in SQL so level filters can
// be paginated by the database.
var levelConditions = map[stocklevel.Level]string{
	stocklevel.OutOfStock:  "current_stock = 0",
	stocklevel.Critical:    "current_stock > 0 AND current_stock <= min_stock_level",
	stocklevel.Low:         "current_stock > min_stock_level AND current_stock <= 2 * min_stock_level",
	stocklevel.Overstocked: "current_stock > 0 AND current_stock > 2 * min_stock_level AND current_stock >= max_stock_level",
	stocklevel.Good:        "current_stock > 0 AND current_stock > 2 * min_stock_level AND current_stock < max_stock_level",
}

type ingredientRepo struct{ db *gorm.DB }

func NewIngredientRepository(db *gorm.DB) IngredientRepository { return &ingredientRepo{db: db} }

func (r *ingredientRepo) Create(ctx context.Context, i *model.Ingredient) error {
	return r.db.WithContext(ctx).Create(i).Error
}

func (r *ingredientRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Ingredient, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *ingredientRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Ingredient, error) {
	var i model.Ingredient
	err := tx.Where("id = ?", id).First(&i).Error
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *ingredientRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Ingredient, error) {
	var list []model.Ingredient
	if len(ids) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error
	return list, err
}

func (r *ingredientRepo) List(ctx context.Context, filter dto.IngredientFilter) ([]model.Ingredient, int64, error) {
	var list []model.Ingredient
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Ingredient{})
	if filter.Name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+lower(filter.Name)+"%")
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Supplier != "" {
		q = q.Where("LOWER(supplier) LIKE ?", "%"+lower(filter.Supplier)+"%")
	}
	if cond, ok := levelConditions[stocklevel.Level(filter.Level)]; ok {
		q = q.Where(cond)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := NormalizePage(filter.Page, filter.Limit, 50)
	err := q.Order("name ASC").Limit(limit).Offset((page - 1) * limit).Find(&list).Error
	return list, total, err
}

func (r *ingredientRepo) ListAll(ctx context.Context) ([]model.Ingredient, error) {
	var list []model.Ingredient
	err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error
	return list, err
}

func (r *ingredientRepo) ListExpiringBefore(ctx context.Context, limit time.Time) ([]model.Ingredient, error) {
	var list []model.Ingredient
	err := r.db.WithContext(ctx).
		Where("expiry_date IS NOT NULL AND expiry_date <= ?", limit.UTC()).
		Order("expiry_date ASC").
		Find(&list).Error
	return list, err
}

func (r *ingredientRepo) CountByCategory(ctx context.Context, category string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Ingredient{}).Where("category = ?", category).Count(&n).Error
	return n, err
}

func (r *ingredientRepo) Update(ctx context.Context, i *model.Ingredient) error {
	return r.db.WithContext(ctx).Save(i).Error
}

func (r *ingredientRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Ingredient{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByIDForUpdateTx reads the row with SELECT ... FOR UPDATE so the stock
// figure cannot change until the transaction ends. Dialects without row locks
// drop the clause.
func (r *ingredientRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Ingredient, error) {
	var i model.Ingredient
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&i).Error
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *ingredientRepo) UpdateStockTx(tx *gorm.DB, id uuid.UUID, stock decimal.Decimal, at time.Time) error {
	return tx.Model(&model.Ingredient{}).Where("id = ?", id).Updates(map[string]interface{}{
		"current_stock": stock,
		"updated_at":    at,
	}).Error
}

func (r *ingredientRepo) SaveTx(tx *gorm.DB, i *model.Ingredient) error {
	return tx.Save(i).Error
}

func (r *ingredientRepo) UpsertTx(tx *gorm.DB, i *model.Ingredient) error {
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(i).Error
}

func (r *ingredientRepo) DB() *gorm.DB { return r.db }
