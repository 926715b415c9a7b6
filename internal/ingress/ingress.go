// Package ingress implements C11: the synchronous submission path. It
// validates an uploaded label image, encrypts and stores it, creates the
// Job row, and enqueues it for the Executor — then separately answers
// status polls against the Job store.
package ingress

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/ttbverify/labelverify/internal/blob"
	"github.com/ttbverify/labelverify/internal/crypto"
	"github.com/ttbverify/labelverify/internal/data/repos/jobrepo"
	"github.com/ttbverify/labelverify/internal/domain"
	"github.com/ttbverify/labelverify/internal/pkg/dbctx"
	"github.com/ttbverify/labelverify/internal/pkg/logger"
	"github.com/ttbverify/labelverify/internal/queue"
)

const (
	minImageBytes = 1024
	maxImageBytes = 10 * 1024 * 1024
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Submission is the parsed multipart input a handler hands to Service.
type Submission struct {
	ImageBytes      []byte
	DeclaredType    string
	ExpectedBrand   *string
	ExpectedClass   *string
	ExpectedABV     *float64
}

// ValidationError is a rejection the handler should surface as 400/413/415.
type ValidationError struct {
	Status  int
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// StatusView is what GetStatus returns for a single job.
type StatusView struct {
	JobID  uuid.UUID
	State  domain.JobState
	Result *domain.VerificationResult
	Error  *string
}

type Service struct {
	log   *logger.Logger
	box   *crypto.Box
	blob  blob.Store
	jobs  jobrepo.Repo
	queue queue.Queue
}

func New(log *logger.Logger, box *crypto.Box, blobStore blob.Store, jobs jobrepo.Repo, q queue.Queue) *Service {
	return &Service{log: log.With("service", "ingress"), box: box, blob: blobStore, jobs: jobs, queue: q}
}

// Submit runs the seven-step accept sequence: validate, derive a blob
// key, encrypt, put, create the Job, enqueue, return the job id. Steps
// 2-6 are synchronous; a failure in putting the blob, creating the job,
// or enqueuing it returns an error and schedules no further work. A job
// that was created but failed to enqueue is marked Failed before Submit
// returns, rather than left stuck in Pending with nothing to ever claim
// it.
func (s *Service) Submit(ctx context.Context, sub Submission) (uuid.UUID, error) {
	if err := validateSubmission(sub); err != nil {
		return uuid.Nil, err
	}

	blobKey, err := blob.NewKey()
	if err != nil {
		return uuid.Nil, fmt.Errorf("ingress: derive blob key: %w", err)
	}

	ciphertext, err := s.box.Encrypt(sub.ImageBytes)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ingress: encrypt: %w", err)
	}

	if err := s.blob.Put(ctx, blobKey, ciphertext); err != nil {
		return uuid.Nil, fmt.Errorf("ingress: store blob: %w", err)
	}

	job := &domain.Job{
		ID:      uuid.New(),
		State:   domain.JobPending,
		BlobKey: blobKey,
		Expected: datatypes.NewJSONType(domain.ExpectedFields{
			BrandName:   sub.ExpectedBrand,
			ClassType:   sub.ExpectedClass,
			ExpectedABV: sub.ExpectedABV,
		}),
	}
	dbc := dbctx.Context{Ctx: ctx}
	if err := s.jobs.Create(dbc, job); err != nil {
		return uuid.Nil, fmt.Errorf("ingress: create job: %w", err)
	}

	if err := s.queue.Enqueue(ctx, job.ID.String()); err != nil {
		if failErr := s.jobs.FailWithError(dbc, job.ID, "enqueue failed: "+err.Error()); failErr != nil {
			s.log.Error("ingress: failed to mark job Failed after enqueue failure", "job_id", job.ID, "error", failErr)
		}
		return uuid.Nil, fmt.Errorf("ingress: enqueue: %w", err)
	}

	return job.ID, nil
}

// GetStatus returns the current state of a job, including its result or
// error once terminal.
func (s *Service) GetStatus(ctx context.Context, id uuid.UUID) (StatusView, error) {
	job, err := s.jobs.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return StatusView{}, err
	}
	view := StatusView{JobID: job.ID, State: job.State, Error: job.Error}
	if job.Result != nil {
		result := job.Result.Data()
		view.Result = &result
	}
	return view, nil
}

func validateSubmission(sub Submission) error {
	n := len(sub.ImageBytes)
	if n < minImageBytes || n > maxImageBytes {
		return &ValidationError{Status: http.StatusRequestEntityTooLarge, Message: fmt.Sprintf("image must be between %d and %d bytes, got %d", minImageBytes, maxImageBytes, n)}
	}
	if !allowedImageTypes[sub.DeclaredType] {
		return &ValidationError{Status: http.StatusUnsupportedMediaType, Message: fmt.Sprintf("unsupported declared content type %q", sub.DeclaredType)}
	}
	sniffed := http.DetectContentType(sub.ImageBytes)
	if !sniffedTypeMatches(sub.DeclaredType, sniffed, sub.ImageBytes) {
		return &ValidationError{Status: http.StatusUnsupportedMediaType, Message: fmt.Sprintf("declared type %q does not match sniffed type %q", sub.DeclaredType, sniffed)}
	}
	if sub.ExpectedABV != nil && (*sub.ExpectedABV < 0 || *sub.ExpectedABV > 100) {
		return &ValidationError{Status: http.StatusBadRequest, Message: "expected_abv must be within [0, 100]"}
	}
	return nil
}

// sniffedTypeMatches confirms the magic bytes agree with what the
// submitter declared. net/http's sniffer reports "image/webp" only when
// given the full RIFF container with a WEBP chunk id; that's exactly
// the signature check needed here, so no separate image-format library
// is pulled in for it.
func sniffedTypeMatches(declared, sniffed string, data []byte) bool {
	if declared == sniffed {
		return true
	}
	switch declared {
	case "image/jpeg":
		return bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF})
	case "image/png":
		return bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A})
	case "image/webp":
		return len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP"))
	default:
		return false
	}
}
