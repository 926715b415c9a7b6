package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ttbverify/labelverify/internal/blob"
	"github.com/ttbverify/labelverify/internal/cache"
	"github.com/ttbverify/labelverify/internal/clients/registry"
	"github.com/ttbverify/labelverify/internal/crypto"
	"github.com/ttbverify/labelverify/internal/data/repos/beveragerepo"
	"github.com/ttbverify/labelverify/internal/domain"
	"github.com/ttbverify/labelverify/internal/pkg/dbctx"
	labelerrors "github.com/ttbverify/labelverify/internal/pkg/errors"
	"github.com/ttbverify/labelverify/internal/pkg/logger"
	"github.com/ttbverify/labelverify/internal/queue"
	"github.com/ttbverify/labelverify/internal/rules"
	"github.com/ttbverify/labelverify/internal/validate"
)

type fakeJobRepo struct {
	mu     sync.Mutex
	jobs   map[uuid.UUID]*domain.Job
	failed map[uuid.UUID]string
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: map[uuid.UUID]*domain.Job{}, failed: map[uuid.UUID]string{}}
}

func (f *fakeJobRepo) put(job *domain.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
}

func (f *fakeJobRepo) Create(_ dbctx.Context, job *domain.Job) error { f.put(job); return nil }

func (f *fakeJobRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copyJob := *j
	return &copyJob, nil
}

func (f *fakeJobRepo) ClaimProcessing(_ dbctx.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.State != domain.JobPending {
		return false, nil
	}
	j.State = domain.JobProcessing
	return true, nil
}

func (f *fakeJobRepo) CompleteWithResult(_ dbctx.Context, id uuid.UUID, result domain.VerificationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	wrapped := datatypes.NewJSONType(result)
	j.State = domain.JobCompleted
	j.Result = &wrapped
	return nil
}

func (f *fakeJobRepo) FailWithError(_ dbctx.Context, id uuid.UUID, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	j.State = domain.JobFailed
	j.Error = &errMsg
	f.failed[id] = errMsg
	return nil
}

func (f *fakeJobRepo) SetExtracted(_ dbctx.Context, id uuid.UUID, extracted domain.ExtractedFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	wrapped := datatypes.NewJSONType(extracted)
	j.Extracted = &wrapped
	return nil
}

func (f *fakeJobRepo) IncrementRetryCount(_ dbctx.Context, id uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	j.RetryCount++
	return j.RetryCount, nil
}

func (f *fakeJobRepo) state(id uuid.UUID) domain.JobState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[id].State
}

type fakeMatchHistory struct {
	mu      sync.Mutex
	records []domain.VerificationResult
}

func (f *fakeMatchHistory) Record(_ dbctx.Context, _ uuid.UUID, result domain.VerificationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, result)
	return nil
}

type stubExtractor struct {
	fields domain.ExtractedFields
	err    error
	calls  int
}

func (s *stubExtractor) Extract(context.Context, []byte, string) (domain.ExtractedFields, error) {
	s.calls++
	if s.err != nil {
		return domain.ExtractedFields{}, s.err
	}
	return s.fields, nil
}
func (s *stubExtractor) Close() error { return nil }

type fakeBeverageRepo struct{}

func (fakeBeverageRepo) FindExact(dbctx.Context, string, string) (*domain.KnownBeverage, error) {
	return nil, gorm.ErrRecordNotFound
}
func (fakeBeverageRepo) FindByBrandPrefix(dbctx.Context, string, int) ([]domain.KnownBeverage, error) {
	return nil, nil
}
func (fakeBeverageRepo) Upsert(dbctx.Context, *domain.KnownBeverage) error { return nil }
func (fakeBeverageRepo) GetCategoryRule(dbctx.Context, domain.BeverageCategory) (*domain.CategoryRule, error) {
	return nil, gorm.ErrRecordNotFound
}

var _ beveragerepo.Repo = fakeBeverageRepo{}

type fakeRegistryClient struct{}

func (fakeRegistryClient) Search(context.Context, string, time.Duration, *registry.ClassCodeRange) ([]registry.Record, error) {
	return nil, nil
}

var _ registry.Client = fakeRegistryClient{}

func testKey() []byte {
	k := make([]byte, crypto.KeySize)
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

func newTestExecutor(t *testing.T, jobs *fakeJobRepo, q queue.Queue, ext *stubExtractor) (*Executor, *blob.MemStore, *crypto.Box) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	box, err := crypto.New(testKey())
	if err != nil {
		t.Fatalf("crypto.New: %v", err)
	}
	rulesTable, err := rules.Load()
	if err != nil {
		t.Fatalf("rules.Load: %v", err)
	}
	store := blob.NewMemStore()
	c := cache.New(log, fakeBeverageRepo{}, fakeRegistryClient{}, rulesTable)
	engine := validate.New(log, c, rulesTable, fakeBeverageRepo{})
	exec := New(log, q, store, box, ext, jobs, &fakeMatchHistory{}, engine)
	exec.maxRetries = 2
	return exec, store, box
}

func seedJob(t *testing.T, jobs *fakeJobRepo, store *blob.MemStore, box *crypto.Box, plaintext []byte) *domain.Job {
	t.Helper()
	key, err := blob.NewKey()
	if err != nil {
		t.Fatalf("blob.NewKey: %v", err)
	}
	ciphertext, err := box.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("box.Encrypt: %v", err)
	}
	if err := store.Put(context.Background(), key, ciphertext); err != nil {
		t.Fatalf("store.Put: %v", err)
	}
	job := &domain.Job{
		ID:      uuid.New(),
		State:   domain.JobPending,
		BlobKey: key,
		Expected: datatypes.NewJSONType(domain.ExpectedFields{}),
	}
	jobs.put(job)
	return job
}

func TestProcessJobHappyPath(t *testing.T) {
	jobs := newFakeJobRepo()
	q := queue.NewMemQueue()
	brand := "Stone Creek"
	ext := &stubExtractor{fields: domain.ExtractedFields{Brand: &brand}}
	exec, store, box := newTestExecutor(t, jobs, q, ext)

	job := seedJob(t, jobs, store, box, []byte("fake image bytes"))

	exec.processJob(context.Background(), job.ID.String())

	if got := jobs.state(job.ID); got != domain.JobCompleted {
		t.Fatalf("expected job Completed, got %v", got)
	}
	if ext.calls != 1 {
		t.Fatalf("expected exactly one extract call, got %d", ext.calls)
	}
}

func TestProcessJobFatalOnExtractionFailure(t *testing.T) {
	jobs := newFakeJobRepo()
	q := queue.NewMemQueue()
	ext := &stubExtractor{err: labelerrors.ErrExtractionFailed}
	exec, store, box := newTestExecutor(t, jobs, q, ext)

	job := seedJob(t, jobs, store, box, []byte("fake image bytes"))

	exec.processJob(context.Background(), job.ID.String())

	if got := jobs.state(job.ID); got != domain.JobFailed {
		t.Fatalf("expected job Failed, got %v", got)
	}
	if ext.calls != 1 {
		t.Fatalf("extraction-failed signal must not be retried, got %d calls", ext.calls)
	}
}

func TestProcessJobRetriesTransientExtractError(t *testing.T) {
	jobs := newFakeJobRepo()
	q := queue.NewMemQueue()
	brand := "Stone Creek"
	ext := &stubExtractor{}
	exec, store, box := newTestExecutor(t, jobs, q, ext)
	exec.maxRetries = 3

	job := seedJob(t, jobs, store, box, []byte("fake image bytes"))

	attempt := 0
	wrapped := &countingExtractor{stub: ext, fields: domain.ExtractedFields{Brand: &brand}, failFirst: 1, n: &attempt}
	exec.extractor = wrapped

	exec.processJob(context.Background(), job.ID.String())

	if got := jobs.state(job.ID); got != domain.JobCompleted {
		t.Fatalf("expected job to eventually Complete after a transient retry, got %v", got)
	}
	if attempt < 2 {
		t.Fatalf("expected at least 2 extract attempts, got %d", attempt)
	}
}

type countingExtractor struct {
	stub      *stubExtractor
	fields    domain.ExtractedFields
	failFirst int
	n         *int
}

func (c *countingExtractor) Extract(ctx context.Context, img []byte, ct string) (domain.ExtractedFields, error) {
	*c.n++
	if *c.n <= c.failFirst {
		return domain.ExtractedFields{}, errors.New("transient network error")
	}
	return c.fields, nil
}
func (c *countingExtractor) Close() error { return nil }

func TestProcessJobSkipsAlreadyClaimedJob(t *testing.T) {
	jobs := newFakeJobRepo()
	q := queue.NewMemQueue()
	ext := &stubExtractor{}
	exec, store, box := newTestExecutor(t, jobs, q, ext)

	job := seedJob(t, jobs, store, box, []byte("fake image bytes"))
	job.State = domain.JobProcessing
	jobs.put(job)

	exec.processJob(context.Background(), job.ID.String())

	if ext.calls != 0 {
		t.Fatalf("expected no extraction attempt for an already-claimed job")
	}
}
