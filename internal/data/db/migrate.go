package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/ttbverify/labelverify/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Job{},
		&domain.KnownBeverage{},
		&domain.CategoryRule{},
		&domain.MatchHistory{},
	)
}

// EnsureBeverageIndexes creates the unique and secondary indexes AutoMigrate
// cannot express through struct tags: a functional unique index on the
// case-folded (brand, product, ABV) triple, and case-folded lookup indexes
// on brand and class.
func EnsureBeverageIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS ux_beverage_brand_product_abv
		ON verify_known_beverage (lower(brand), lower(product_name), abv);
	`).Error; err != nil {
		return fmt.Errorf("create ux_beverage_brand_product_abv: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_beverage_brand_lower
		ON verify_known_beverage (lower(brand));
	`).Error; err != nil {
		return fmt.Errorf("create idx_beverage_brand_lower: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_beverage_class_lower
		ON verify_known_beverage (lower(class_type));
	`).Error; err != nil {
		return fmt.Errorf("create idx_beverage_class_lower: %w", err)
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("auto-migrating postgres tables")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("auto migration failed", "error", err)
		return err
	}
	if err := EnsureBeverageIndexes(s.db); err != nil {
		s.log.Error("beverage index migration failed", "error", err)
		return err
	}
	return nil
}
