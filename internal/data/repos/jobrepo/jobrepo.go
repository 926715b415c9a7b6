// Package jobrepo implements C4: typed Job CRUD over Postgres, with a
// single-row CAS update for state transitions.
package jobrepo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ttbverify/labelverify/internal/domain"
	"github.com/ttbverify/labelverify/internal/pkg/dbctx"
	"github.com/ttbverify/labelverify/internal/pkg/logger"
)

type Repo interface {
	Create(dbc dbctx.Context, job *domain.Job) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Job, error)
	// ClaimProcessing performs the Pending->Processing CAS: it succeeds
	// only if the row's current state is still Pending. ok is false when
	// another claimant already moved the job (not an error).
	ClaimProcessing(dbc dbctx.Context, id uuid.UUID) (ok bool, err error)
	CompleteWithResult(dbc dbctx.Context, id uuid.UUID, result domain.VerificationResult) error
	FailWithError(dbc dbctx.Context, id uuid.UUID, errMsg string) error
	SetExtracted(dbc dbctx.Context, id uuid.UUID, extracted domain.ExtractedFields) error
	IncrementRetryCount(dbc dbctx.Context, id uuid.UUID) (retryCount int, err error)
}

type repo struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(db *gorm.DB, baseLog *logger.Logger) Repo {
	return &repo{db: db, log: baseLog.With("repo", "jobrepo")}
}

func (r *repo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *repo) Create(dbc dbctx.Context, job *domain.Job) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Create(job).Error
}

func (r *repo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Job, error) {
	var job domain.Job
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ClaimProcessing is the CAS the spec describes: UPDATE ... WHERE id = ?
// AND state = ?, checked against RowsAffected, the same shape as the
// reference backend's locked claim query but without row-level locking
// since the predicate itself (state = Pending) is the mutual-exclusion
// mechanism here — a second claimant's UPDATE simply affects zero rows.
func (r *repo) ClaimProcessing(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	res := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&domain.Job{}).
		Where("id = ? AND state = ?", id, domain.JobPending).
		Updates(map[string]interface{}{
			"state":                 domain.JobProcessing,
			"processing_started_at": now,
			"updated_at":            now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SetExtracted(dbc dbctx.Context, id uuid.UUID, extracted domain.ExtractedFields) error {
	wrapped := datatypes.NewJSONType(extracted)
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&domain.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"extracted":  &wrapped,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repo) CompleteWithResult(dbc dbctx.Context, id uuid.UUID, result domain.VerificationResult) error {
	wrapped := datatypes.NewJSONType(result)
	now := time.Now().UTC()
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&domain.Job{}).
		Where("id = ? AND state = ?", id, domain.JobProcessing).
		Updates(map[string]interface{}{
			"state":               domain.JobCompleted,
			"result":              &wrapped,
			"processing_ended_at": now,
			"updated_at":          now,
		}).Error
}

func (r *repo) FailWithError(dbc dbctx.Context, id uuid.UUID, errMsg string) error {
	now := time.Now().UTC()
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&domain.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":               domain.JobFailed,
			"error":               errMsg,
			"processing_ended_at": now,
			"updated_at":          now,
		}).Error
}

func (r *repo) IncrementRetryCount(dbc dbctx.Context, id uuid.UUID) (int, error) {
	var job domain.Job
	err := r.tx(dbc).WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Where("id = ?", id).First(&job).Error; err != nil {
			return err
		}
		return txx.Model(&domain.Job{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"retry_count": gorm.Expr("retry_count + 1"),
				"updated_at":  time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return 0, err
	}
	return job.RetryCount + 1, nil
}
