package domain

import (
	"time"

	"github.com/google/uuid"
)

// BeverageCategory is the coarse TTB classification a KnownBeverage falls
// under, driving which category ABV band and standards-of-identity list
// applies.
type BeverageCategory string

const (
	CategoryWine    BeverageCategory = "wine"
	CategorySpirits BeverageCategory = "spirits"
	CategoryMalt    BeverageCategory = "malt"
)

// KnownBeverage is a cached reference label, seeded either administratively
// or by a registry-lookup cache miss.
type KnownBeverage struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Brand       string           `gorm:"type:varchar(255);not null;index:idx_beverage_brand"`
	ProductName string           `gorm:"type:varchar(255);not null;default:''"`
	ClassType   string           `gorm:"type:varchar(255);not null;index:idx_beverage_class"`
	Category    BeverageCategory `gorm:"type:varchar(16);not null;index"`
	ABV         float64          `gorm:"not null;index"`
	Country     *string          `gorm:"type:varchar(128)"`
	Producer    *string          `gorm:"type:varchar(255)"`
	Verified    bool             `gorm:"not null;default:false"`
	Source      string           `gorm:"type:varchar(64);not null"`
	SourceURL   *string          `gorm:"type:text"`
	Notes       *string          `gorm:"type:text"`
	CreatedAt   time.Time        `gorm:"not null"`
	UpdatedAt   time.Time        `gorm:"not null"`
}

func (KnownBeverage) TableName() string { return "verify_known_beverage" }

// CategoryRule is process-wide regulatory reference data: one row per
// BeverageCategory, loaded once at startup and never mutated.
type CategoryRule struct {
	Category       BeverageCategory `gorm:"type:varchar(16);primaryKey"`
	MinABV         float64          `gorm:"not null"`
	MaxABV         float64          `gorm:"not null"`
	TypicalMinABV  *float64
	TypicalMaxABV  *float64
	Citation       string `gorm:"type:varchar(128);not null"`
	Description    string `gorm:"type:text;not null"`
}

func (CategoryRule) TableName() string { return "verify_category_rule" }

// InTypicalBand reports whether abv falls within the rule's typical range,
// when one is defined. Callers should already have checked InHardBand.
func (r CategoryRule) InTypicalBand(abv float64) bool {
	if r.TypicalMinABV == nil || r.TypicalMaxABV == nil {
		return true
	}
	return abv >= *r.TypicalMinABV && abv <= *r.TypicalMaxABV
}

func (r CategoryRule) InHardBand(abv float64) bool {
	return abv >= r.MinABV && abv <= r.MaxABV
}
