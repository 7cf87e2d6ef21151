package service

import (
	"context"
	"fmt"
	"strings"

	"recipestock/internal/dto"
	"recipestock/internal/model"
	"recipestock/internal/repository"

	"github.com/google/uuid"
)

const defaultCategoryColor = "#4ECDC4"

// CategoryService manages ingredient categories. Ingredients refer to a
// category by name.
type CategoryService interface {
	Create(ctx context.Context, req dto.CreateCategoryRequest) (dto.CategoryResponse, error)
	List(ctx context.Context) ([]dto.CategoryResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateCategoryRequest) (dto.CategoryResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type categoryService struct {
	repo        repository.CategoryRepository
	ingredients repository.IngredientRepository
}

func NewCategoryService(repo repository.CategoryRepository, ingredients repository.IngredientRepository) CategoryService {
	return &categoryService{repo: repo, ingredients: ingredients}
}

func (s *categoryService) mapCategory(ctx context.Context, c model.Category) (dto.CategoryResponse, error) {
	n, err := s.ingredients.CountByCategory(ctx, c.Name)
	if err != nil {
		return dto.CategoryResponse{}, persist("count ingredients", err)
	}
	return dto.CategoryResponse{
		ID:              c.ID,
		Name:            c.Name,
		Description:     c.Description,
		Color:           c.Color,
		IngredientCount: n,
	}, nil
}

// ensureUnique fails when another category already uses name.
func (s *categoryService) ensureUnique(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.repo.FindByName(ctx, name)
	if err != nil && !isNotFound(err) {
		return persist("find category", err)
	}
	if existing != nil && existing.ID != self {
		return ErrDuplicateCategory
	}
	return nil
}

func (s *categoryService) Create(ctx context.Context, req dto.CreateCategoryRequest) (dto.CategoryResponse, error) {
	name := strings.TrimSpace(req.Name)
	if err := missingFields(map[string]string{"name": name}); err != nil {
		return dto.CategoryResponse{}, err
	}
	if err := s.ensureUnique(ctx, name, uuid.Nil); err != nil {
		return dto.CategoryResponse{}, err
	}

	c := &model.Category{Name: name, Description: req.Description, Color: req.Color}
	if c.Color == "" {
		c.Color = defaultCategoryColor
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return dto.CategoryResponse{}, persist("create category", err)
	}
	return s.mapCategory(ctx, *c)
}

func (s *categoryService) List(ctx context.Context) ([]dto.CategoryResponse, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, persist("list categories", err)
	}
	result := make([]dto.CategoryResponse, 0, len(list))
	for _, c := range list {
		r, err := s.mapCategory(ctx, c)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, nil
}

func (s *categoryService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateCategoryRequest) (dto.CategoryResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return dto.CategoryResponse{}, notFound(ErrCategoryNotFound, id)
		}
		return dto.CategoryResponse{}, persist("find category", err)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return dto.CategoryResponse{}, invalid(ErrMissingField, "name")
		}
		if name != c.Name {
			if err := s.ensureUnique(ctx, name, id); err != nil {
				return dto.CategoryResponse{}, err
			}
		}
		c.Name = name
	}
	if req.Description != nil {
		c.Description = req.Description
	}
	if req.Color != nil {
		c.Color = *req.Color
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return dto.CategoryResponse{}, persist("update category", err)
	}
	return s.mapCategory(ctx, *c)
}

// Delete refuses to remove a category that ingredients still use.
func (s *categoryService) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return notFound(ErrCategoryNotFound, id)
		}
		return persist("find category", err)
	}
	n, err := s.ingredients.CountByCategory(ctx, c.Name)
	if err != nil {
		return persist("count ingredients", err)
	}
	if n > 0 {
		return invalid(ErrInvalidValue, fmt.Sprintf("category %q is used by %d ingredients", c.Name, n))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return persist("delete category", err)
	}
	return nil
}
