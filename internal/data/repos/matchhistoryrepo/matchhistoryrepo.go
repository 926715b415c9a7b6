// Package matchhistoryrepo implements the append-only write side of
// MatchHistory: one row recorded per job, mirroring the match fields of
// its VerificationResult.
package matchhistoryrepo

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ttbverify/labelverify/internal/domain"
	"github.com/ttbverify/labelverify/internal/pkg/dbctx"
	"github.com/ttbverify/labelverify/internal/pkg/logger"
)

type Repo interface {
	Record(dbc dbctx.Context, jobID uuid.UUID, result domain.VerificationResult) error
}

type repo struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(db *gorm.DB, baseLog *logger.Logger) Repo {
	return &repo{db: db, log: baseLog.With("repo", "matchhistoryrepo")}
}

func (r *repo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *repo) Record(dbc dbctx.Context, jobID uuid.UUID, result domain.VerificationResult) error {
	row := &domain.MatchHistory{
		ID:           uuid.New(),
		JobID:        jobID,
		MatchType:    result.MatchType,
		ABVDeviation: result.ABVDeviation,
	}
	if result.MatchConfidence > 0 {
		confidence := result.MatchConfidence
		row.MatchConfidence = &confidence
	}
	if result.MatchedBeverageID != nil {
		if id, err := uuid.Parse(*result.MatchedBeverageID); err == nil {
			row.MatchedBeverageID = &id
		}
	}
	return r.tx(dbc).WithContext(dbc.Ctx).Create(row).Error
}
