package infra

import (
	"errors"
	"fmt"

	"recipestock/internal/model"
	"recipestock/migrations"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase applies the embedded SQL migrations, opens a GORM connection
// backed by pgx and then runs the idempotent schema patches.
func NewDatabase(dsn string) (*gorm.DB, error) {
	if err := RunMigrations(dsn); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := applySchemaPatches(db); err != nil {
		return nil, fmt.Errorf("schema patches: %w", err)
	}
	return db, nil
}

// RunMigrations applies every pending migration from the embedded source.
// dsn must be in URL form (postgres://...).
func RunMigrations(dsn string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// AutoMigrate creates the schema from the models. Used for SQLite-backed
// tests and local tooling where the SQL migrations cannot run.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Category{},
		&model.Ingredient{},
		&model.Recipe{},
		&model.RecipeLine{},
		&model.Sale{},
		&model.SaleDeduction{},
		&model.StockMovement{},
		&model.CostHistory{},
	)
}

// applySchemaPatches runs idempotent DDL that enforces stock and cost rules at the
// database level. Each statement checks for existence first so re-running on
// an already-patched schema is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"ingredients stock non-negative", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_ingredients_stock_non_negative') THEN
    ALTER TABLE ingredients
      ADD CONSTRAINT chk_ingredients_stock_non_negative CHECK (current_stock >= 0);
  END IF;
END $$`},
		{"ingredients cost non-negative", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_ingredients_cost_non_negative') THEN
    ALTER TABLE ingredients
      ADD CONSTRAINT chk_ingredients_cost_non_negative CHECK (cost_per_unit >= 0);
  END IF;
END $$`},
		// serves the critical and out_of_stock level filters on the ingredient list
		{"low stock partial index", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_ingredients_at_or_below_min') THEN
    CREATE INDEX idx_ingredients_at_or_below_min
        ON ingredients (current_stock)
        WHERE current_stock <= min_stock_level;
  END IF;
END $$`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
