package matchhistoryrepo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/ttbverify/labelverify/internal/data/repos/jobrepo"
	"github.com/ttbverify/labelverify/internal/data/repos/testutil"
	"github.com/ttbverify/labelverify/internal/domain"
	"github.com/ttbverify/labelverify/internal/pkg/dbctx"
)

func newTestJob(t *testing.T) *domain.Job {
	t.Helper()
	return &domain.Job{
		ID:       uuid.New(),
		State:    domain.JobPending,
		BlobKey:  "deadbeef",
		Expected: datatypes.NewJSONType(domain.ExpectedFields{}),
	}
}

func TestRecordAppendsOneRowPerJob(t *testing.T) {
	conn := testutil.DB(t)
	tx := testutil.Tx(t, conn)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	job := newTestJob(t)
	if err := jobrepo.New(tx, testutil.Logger(t)).Create(dbc, job); err != nil {
		t.Fatalf("seed job Create: %v", err)
	}

	repo := New(tx, testutil.Logger(t))
	beverageID := uuid.New().String()
	result := domain.VerificationResult{
		Passed:            true,
		MatchType:         domain.CacheMatchExact,
		MatchConfidence:   0.97,
		ABVDeviation:       0.1,
		MatchedBeverageID: &beverageID,
	}

	if err := repo.Record(dbc, job.ID, result); err != nil {
		t.Fatalf("Record: %v", err)
	}

	var rows []domain.MatchHistory
	if err := tx.Where("job_id = ?", job.ID).Find(&rows).Error; err != nil {
		t.Fatalf("query match history: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one match history row, got %d", len(rows))
	}
	row := rows[0]
	if row.MatchType != domain.CacheMatchExact {
		t.Fatalf("expected match type %q, got %q", domain.CacheMatchExact, row.MatchType)
	}
	if row.MatchConfidence == nil || *row.MatchConfidence != 0.97 {
		t.Fatalf("expected match confidence 0.97, got %v", row.MatchConfidence)
	}
	if row.MatchedBeverageID == nil || row.MatchedBeverageID.String() != beverageID {
		t.Fatalf("expected matched beverage id %q, got %v", beverageID, row.MatchedBeverageID)
	}
}

func TestRecordWithoutMatchedBeverageLeavesIDNil(t *testing.T) {
	conn := testutil.DB(t)
	tx := testutil.Tx(t, conn)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	job := newTestJob(t)
	if err := jobrepo.New(tx, testutil.Logger(t)).Create(dbc, job); err != nil {
		t.Fatalf("seed job Create: %v", err)
	}

	repo := New(tx, testutil.Logger(t))
	result := domain.VerificationResult{Passed: false, MatchType: domain.CacheMatchNone}

	if err := repo.Record(dbc, job.ID, result); err != nil {
		t.Fatalf("Record: %v", err)
	}

	var row domain.MatchHistory
	if err := tx.Where("job_id = ?", job.ID).First(&row).Error; err != nil {
		t.Fatalf("query match history: %v", err)
	}
	if row.MatchedBeverageID != nil {
		t.Fatalf("expected nil matched beverage id, got %v", row.MatchedBeverageID)
	}
	if row.MatchConfidence != nil {
		t.Fatalf("expected nil match confidence for a zero-value result, got %v", *row.MatchConfidence)
	}
}
