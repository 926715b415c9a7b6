package cache

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/ttbverify/labelverify/internal/clients/registry"
	"github.com/ttbverify/labelverify/internal/data/repos/beveragerepo"
	"github.com/ttbverify/labelverify/internal/domain"
	"github.com/ttbverify/labelverify/internal/pkg/dbctx"
	"github.com/ttbverify/labelverify/internal/pkg/logger"
	"github.com/ttbverify/labelverify/internal/rules"
)

type fakeBeverageRepo struct {
	exact      *domain.KnownBeverage
	exactErr   error
	prefix     []domain.KnownBeverage
	upserted   []*domain.KnownBeverage
}

func (f *fakeBeverageRepo) FindExact(dbctx.Context, string, string) (*domain.KnownBeverage, error) {
	return f.exact, f.exactErr
}
func (f *fakeBeverageRepo) FindByBrandPrefix(dbctx.Context, string, int) ([]domain.KnownBeverage, error) {
	return f.prefix, nil
}
func (f *fakeBeverageRepo) Upsert(_ dbctx.Context, b *domain.KnownBeverage) error {
	f.upserted = append(f.upserted, b)
	return nil
}
func (f *fakeBeverageRepo) GetCategoryRule(dbctx.Context, domain.BeverageCategory) (*domain.CategoryRule, error) {
	return nil, nil
}

var _ beveragerepo.Repo = (*fakeBeverageRepo)(nil)

type fakeRegistryClient struct {
	records []registry.Record
	err     error
}

func (f *fakeRegistryClient) Search(context.Context, string, time.Duration, *registry.ClassCodeRange) ([]registry.Record, error) {
	return f.records, f.err
}

var _ registry.Client = (*fakeRegistryClient)(nil)

func newTestCache(t *testing.T, beverageRepo beveragerepo.Repo, registryClient registry.Client) *Cache {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	rulesTable, err := rules.Load()
	if err != nil {
		t.Fatalf("rules.Load: %v", err)
	}
	return New(log, beverageRepo, registryClient, rulesTable)
}

func TestResolveLocalExact(t *testing.T) {
	beverageRepo := &fakeBeverageRepo{exact: &domain.KnownBeverage{Brand: "Stone Creek", ClassType: "BOURBON", UpdatedAt: time.Now()}}
	c := newTestCache(t, beverageRepo, &fakeRegistryClient{})

	res, err := c.Resolve(context.Background(), "Stone Creek", "BOURBON")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.MatchType != domain.CacheMatchExact {
		t.Fatalf("MatchType = %v, want Exact", res.MatchType)
	}
}

func TestResolveStaleWarning(t *testing.T) {
	beverageRepo := &fakeBeverageRepo{exact: &domain.KnownBeverage{Brand: "Stone Creek", ClassType: "BOURBON", UpdatedAt: time.Now().Add(-60 * 24 * time.Hour)}}
	c := newTestCache(t, beverageRepo, &fakeRegistryClient{})

	res, err := c.Resolve(context.Background(), "Stone Creek", "BOURBON")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected stale-reference warning")
	}
}

func TestResolveRegistryMissInfersABVAndUpserts(t *testing.T) {
	beverageRepo := &fakeBeverageRepo{exactErr: gorm.ErrRecordNotFound}
	registryClient := &fakeRegistryClient{records: []registry.Record{
		{Brand: "HARVEYS", ClassDesc: "DESSERT FLAVORED WINE", CompletedDate: "2025-01-15"},
	}}
	c := newTestCache(t, beverageRepo, registryClient)

	res, err := c.Resolve(context.Background(), "HARVEYS", "DESSERT FLAVORED WINE")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.MatchType != domain.CacheMatchRegistryLookup {
		t.Fatalf("MatchType = %v, want RegistryLookup", res.MatchType)
	}
	if res.Beverage == nil || res.Beverage.ABV != 18.0 {
		t.Fatalf("expected inferred ABV 18.0, got %+v", res.Beverage)
	}
	if len(beverageRepo.upserted) != 1 {
		t.Fatalf("expected one upsert, got %d", len(beverageRepo.upserted))
	}
}

func TestResolveRegistryFailureSwallowedToMiss(t *testing.T) {
	beverageRepo := &fakeBeverageRepo{exactErr: gorm.ErrRecordNotFound}
	registryClient := &fakeRegistryClient{err: errBoom{}}
	c := newTestCache(t, beverageRepo, registryClient)

	res, err := c.Resolve(context.Background(), "Unknown Brand", "")
	if err != nil {
		t.Fatalf("Resolve should swallow registry errors, got %v", err)
	}
	if res.MatchType != domain.CacheMatchNone {
		t.Fatalf("MatchType = %v, want NoMatch", res.MatchType)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected a warning describing the registry failure")
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
