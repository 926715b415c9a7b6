// Package beveragerepo implements C5: KnownBeverage/CategoryRule CRUD plus
// the lookup shapes the cache (C8) needs — exact match, brand-prefix
// candidates for fuzzy indexing, and an idempotent upsert keyed on the
// beverage's unique (brand, product, ABV) triple.
package beveragerepo

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ttbverify/labelverify/internal/domain"
	"github.com/ttbverify/labelverify/internal/pkg/dbctx"
	"github.com/ttbverify/labelverify/internal/pkg/logger"
)

type Repo interface {
	FindExact(dbc dbctx.Context, brand, class string) (*domain.KnownBeverage, error)
	FindByBrandPrefix(dbc dbctx.Context, token string, limit int) ([]domain.KnownBeverage, error)
	Upsert(dbc dbctx.Context, beverage *domain.KnownBeverage) error
	GetCategoryRule(dbc dbctx.Context, category domain.BeverageCategory) (*domain.CategoryRule, error)
}

type repo struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(db *gorm.DB, baseLog *logger.Logger) Repo {
	return &repo{db: db, log: baseLog.With("repo", "beveragerepo")}
}

func (r *repo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

// FindExact looks up step 1 of the cache resolution order: brand and class
// both matched case-insensitively against the upper-cased canonical form
// stored at write time. When several rows match, the most recently updated
// one is returned.
func (r *repo) FindExact(dbc dbctx.Context, brand, class string) (*domain.KnownBeverage, error) {
	var beverage domain.KnownBeverage
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("lower(brand) = lower(?) AND lower(class_type) = lower(?)", brand, class).
		Order("updated_at DESC").
		First(&beverage).Error
	if err != nil {
		return nil, err
	}
	return &beverage, nil
}

// FindByBrandPrefix returns candidate rows for fuzzy brand matching: any
// KnownBeverage whose brand starts with the same normalized token.
func (r *repo) FindByBrandPrefix(dbc dbctx.Context, token string, limit int) ([]domain.KnownBeverage, error) {
	if limit <= 0 {
		limit = 25
	}
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return nil, nil
	}
	var out []domain.KnownBeverage
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("lower(brand) LIKE ?", token+"%").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert is idempotent on (lower(brand), lower(product_or_empty), abv);
// on conflict it refreshes the mutable columns and bumps updated_at,
// resolving concurrent upserts last-writer-wins on content.
func (r *repo) Upsert(dbc dbctx.Context, beverage *domain.KnownBeverage) error {
	if beverage.ID == uuid.Nil {
		beverage.ID = uuid.New()
	}
	now := time.Now().UTC()
	beverage.UpdatedAt = now
	if beverage.CreatedAt.IsZero() {
		beverage.CreatedAt = now
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			OnConstraint: "ux_beverage_brand_product_abv",
			DoUpdates: clause.AssignmentColumns([]string{
				"class_type", "category", "producer", "country",
				"source", "source_url", "updated_at",
			}),
		}).
		Create(beverage).Error
}

func (r *repo) GetCategoryRule(dbc dbctx.Context, category domain.BeverageCategory) (*domain.CategoryRule, error) {
	var rule domain.CategoryRule
	err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("category = ?", category).
		First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}
