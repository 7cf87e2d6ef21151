package repository

import (
	"context"
	"time"

	"recipestock/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleFilter narrows sale listings. From/To are UTC bounds, To exclusive.
type SaleFilter struct {
	From     *time.Time
	To       *time.Time
	RecipeID *uuid.UUID
	Page     int
	Limit    int
}

// SaleTotals is the aggregate of sales over a time window.
type SaleTotals struct {
	Orders   int64
	Items    int64
	Revenue  decimal.Decimal
	ByRecipe []RecipeTotals
}

type RecipeTotals struct {
	RecipeID   uuid.UUID
	RecipeName string
	Orders     int64
	Quantity   int64
	Revenue    decimal.Decimal
}

// SaleRepository is append-only: there is no update or delete.
type SaleRepository interface {
	CreateTx(tx *gorm.DB, s *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	ExistsTx(tx *gorm.DB, id uuid.UUID) (bool, error)
	List(ctx context.Context, filter SaleFilter) ([]model.Sale, int64, error)
	ListAll(ctx context.Context) ([]model.Sale, error)
	Recent(ctx context.Context, n int) ([]model.Sale, error)
	Between(ctx context.Context, from, to time.Time) ([]model.Sale, error)
	CountByRecipe(ctx context.Context, recipeID uuid.UUID) (int64, error)
	CountByRecipeTx(tx *gorm.DB, recipeID uuid.UUID) (int64, error)

	DB() *gorm.DB
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func orderedDeductions(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

// CreateTx inserts the sale and its deductions in the caller's transaction.
func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Create(s).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).Preload("Deductions", orderedDeductions).Where("id = ?", id).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepo) ExistsTx(tx *gorm.DB, id uuid.UUID) (bool, error) {
	var n int64
	err := tx.Model(&model.Sale{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (r *saleRepo) List(ctx context.Context, filter SaleFilter) ([]model.Sale, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Sale{})
	if filter.From != nil {
		q = q.Where("sold_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("sold_at < ?", filter.To.UTC())
	}
	if filter.RecipeID != nil {
		q = q.Where("recipe_id = ?", *filter.RecipeID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := NormalizePage(filter.Page, filter.Limit, 50)
	var list []model.Sale
	err := q.Preload("Deductions", orderedDeductions).
		Order("sold_at DESC").Offset((page - 1) * limit).Limit(limit).
		Find(&list).Error
	return list, total, err
}

func (r *saleRepo) ListAll(ctx context.Context) ([]model.Sale, error) {
	var list []model.Sale
	err := r.db.WithContext(ctx).Preload("Deductions", orderedDeductions).Order("sold_at ASC").Find(&list).Error
	return list, err
}

// Recent returns the n most recent sales, newest first.
func (r *saleRepo) Recent(ctx context.Context, n int) ([]model.Sale, error) {
	var list []model.Sale
	err := r.db.WithContext(ctx).Preload("Deductions", orderedDeductions).
		Order("sold_at DESC").Limit(n).Find(&list).Error
	return list, err
}

// Between returns sales with from <= sold_at < to in chronological order.
func (r *saleRepo) Between(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	var list []model.Sale
	err := r.db.WithContext(ctx).
		Where("sold_at >= ? AND sold_at < ?", from.UTC(), to.UTC()).
		Order("sold_at ASC").Find(&list).Error
	return list, err
}

func (r *saleRepo) CountByRecipe(ctx context.Context, recipeID uuid.UUID) (int64, error) {
	return r.CountByRecipeTx(r.db.WithContext(ctx), recipeID)
}

func (r *saleRepo) CountByRecipeTx(tx *gorm.DB, recipeID uuid.UUID) (int64, error) {
	var n int64
	err := tx.Model(&model.Sale{}).Where("recipe_id = ?", recipeID).Count(&n).Error
	return n, err
}

func (r *saleRepo) DB() *gorm.DB { return r.db }

// Totals aggregates a chronological sale slice.
func Totals(sales []model.Sale) SaleTotals {
	t := SaleTotals{Revenue: decimal.Zero}
	idx := make(map[uuid.UUID]int)
	for _, s := range sales {
		t.Orders++
		t.Items += int64(s.QuantitySold)
		t.Revenue = t.Revenue.Add(s.SalePrice)

		i, ok := idx[s.RecipeID]
		if !ok {
			i = len(t.ByRecipe)
			idx[s.RecipeID] = i
			t.ByRecipe = append(t.ByRecipe, RecipeTotals{RecipeID: s.RecipeID, RecipeName: s.RecipeName, Revenue: decimal.Zero})
		}
		rt := &t.ByRecipe[i]
		rt.Orders++
		rt.Quantity += int64(s.QuantitySold)
		rt.Revenue = rt.Revenue.Add(s.SalePrice)
	}
	return t
}
