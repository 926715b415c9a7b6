package beveragerepo

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/ttbverify/labelverify/internal/data/repos/testutil"
	"github.com/ttbverify/labelverify/internal/domain"
	"github.com/ttbverify/labelverify/internal/pkg/dbctx"
)

func TestUpsertIsIdempotentOnUniqueKey(t *testing.T) {
	conn := testutil.DB(t)
	tx := testutil.Tx(t, conn)
	repo := New(tx, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	beverage := &domain.KnownBeverage{
		ID:        uuid.New(),
		Brand:     "Stone Creek",
		ClassType: "BOURBON",
		Category:  domain.CategorySpirits,
		ABV:       45.0,
		Source:    "registry",
	}
	if err := repo.Upsert(dbc, beverage); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	beverage2 := &domain.KnownBeverage{
		ID:        uuid.New(),
		Brand:     "Stone Creek",
		ClassType: "BOURBON WHISKEY",
		Category:  domain.CategorySpirits,
		ABV:       45.0,
		Source:    "registry",
	}
	if err := repo.Upsert(dbc, beverage2); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	found, err := repo.FindExact(dbc, "stone creek", "bourbon whiskey")
	if err != nil {
		t.Fatalf("FindExact: %v", err)
	}
	if found.ID != beverage.ID {
		t.Fatalf("expected upsert to refresh the original row, not insert a new one")
	}
}

func TestFindByBrandPrefix(t *testing.T) {
	conn := testutil.DB(t)
	tx := testutil.Tx(t, conn)
	repo := New(tx, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	_ = repo.Upsert(dbc, &domain.KnownBeverage{
		ID: uuid.New(), Brand: "Stonebridge Farms", ClassType: "TABLE WINE",
		Category: domain.CategoryWine, ABV: 12.0, Source: "registry",
	})

	candidates, err := repo.FindByBrandPrefix(dbc, "stone", 10)
	if err != nil {
		t.Fatalf("FindByBrandPrefix: %v", err)
	}
	if len(candidates) == 0 {
		t.Fatalf("expected at least one brand-prefix candidate")
	}
}
