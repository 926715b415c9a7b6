package jobrepo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/ttbverify/labelverify/internal/data/repos/testutil"
	"github.com/ttbverify/labelverify/internal/domain"
	"github.com/ttbverify/labelverify/internal/pkg/dbctx"
)

func newTestJob(t *testing.T) *domain.Job {
	t.Helper()
	brand := "Stone Creek"
	return &domain.Job{
		ID:       uuid.New(),
		State:    domain.JobPending,
		BlobKey:  "deadbeef",
		Expected: datatypes.NewJSONType(domain.ExpectedFields{BrandName: &brand}),
	}
}

func TestClaimProcessingSucceedsOnce(t *testing.T) {
	conn := testutil.DB(t)
	tx := testutil.Tx(t, conn)
	repo := New(tx, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	job := newTestJob(t)
	if err := repo.Create(dbc, job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok, err := repo.ClaimProcessing(dbc, job.ID)
	if err != nil || !ok {
		t.Fatalf("first ClaimProcessing: ok=%v err=%v", ok, err)
	}

	ok, err = repo.ClaimProcessing(dbc, job.ID)
	if err != nil {
		t.Fatalf("second ClaimProcessing: %v", err)
	}
	if ok {
		t.Fatalf("second ClaimProcessing should not succeed; job already Processing")
	}
}

func TestCompleteWithResultRequiresProcessing(t *testing.T) {
	conn := testutil.DB(t)
	tx := testutil.Tx(t, conn)
	repo := New(tx, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	job := newTestJob(t)
	if err := repo.Create(dbc, job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.CompleteWithResult(dbc, job.ID, domain.VerificationResult{Passed: true}); err != nil {
		t.Fatalf("CompleteWithResult: %v", err)
	}

	got, err := repo.GetByID(dbc, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.State != domain.JobPending {
		t.Fatalf("expected state unchanged (still Pending, CAS predicate unmet), got %v", got.State)
	}
}
