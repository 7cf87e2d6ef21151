package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinel errors. Handlers match them with errors.Is; the typed wrappers
// below carry the details callers need to build a response.
var (
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrEmptyRecipe        = errors.New("recipe has no ingredients")
	ErrRecipeInactive     = errors.New("recipe is inactive")
	ErrMissingField       = errors.New("required field missing")
	ErrInvalidValue       = errors.New("invalid value")
	ErrRecipeNotFound     = errors.New("recipe not found")
	ErrIngredientNotFound = errors.New("ingredient not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrSaleNotFound       = errors.New("sale not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrRecipeLocked       = errors.New("recipe lines are locked once the recipe has been sold")
	ErrDuplicateCategory  = errors.New("category already exists")
)

// ValidationError reports input rejected before any state was touched.
type ValidationError struct {
	Err    error
	Detail string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error, detail string) error {
	return &ValidationError{Err: err, Detail: detail}
}

// missingFields returns a ValidationError listing every empty field, or nil.
func missingFields(values map[string]string) error {
	fields := make(map[string]string)
	for name, v := range values {
		if strings.TrimSpace(v) == "" {
			fields[name] = "required"
		}
	}
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return &ValidationError{Err: ErrMissingField, Detail: strings.Join(names, ", "), Fields: fields}
}

// NotFoundError names the entity that could not be resolved.
type NotFoundError struct {
	Err error
	ID  uuid.UUID
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s: %s", e.Err, e.ID) }

func (e *NotFoundError) Unwrap() error { return e.Err }

func notFound(err error, id uuid.UUID) error { return &NotFoundError{Err: err, ID: id} }

// Shortfall reasons.
const (
	ShortfallMissing      = "missing"
	ShortfallInsufficient = "insufficient"
)

// Shortfall describes one ingredient a sale could not be covered by.
type Shortfall struct {
	IngredientID   uuid.UUID       `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	Required       decimal.Decimal `json:"required"`
	Available      decimal.Decimal `json:"available"`
	Reason         string          `json:"reason"`
}

// InsufficientStockError lists every shortfall found, not just the first.
type InsufficientStockError struct {
	RecipeID   uuid.UUID
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		if s.Reason == ShortfallMissing {
			parts[i] = fmt.Sprintf("%s (missing)", s.IngredientName)
			continue
		}
		parts[i] = fmt.Sprintf("%s (need %s, have %s)", s.IngredientName, s.Required, s.Available)
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// PersistenceError wraps a storage failure. The transaction has been rolled
// back, so the operation can be retried as-is.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }

// persist wraps err unless it already is a domain error.
func persist(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ve *ValidationError
		nf *NotFoundError
		is *InsufficientStockError
		pe *PersistenceError
	)
	if errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &is) || errors.As(err, &pe) ||
		errors.Is(err, ErrRecipeLocked) || errors.Is(err, ErrDuplicateCategory) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
