package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobState is the lifecycle of a verification Job. Transitions are
// Pending -> Processing -> {Completed, Failed} only.
type JobState string

const (
	JobPending    JobState = "pending"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// Rank orders JobState for monotonicity checks: a later observation of the
// same job must never have a lower rank than an earlier one.
func (s JobState) Rank() int {
	switch s {
	case JobPending:
		return 0
	case JobProcessing:
		return 1
	case JobCompleted, JobFailed:
		return 2
	default:
		return -1
	}
}

// ExpectedFields holds the submitter-provided values a label is checked
// against. Every field is optional: a submitter may supply none, some, or
// all of them.
type ExpectedFields struct {
	BrandName   *string  `json:"brand_name,omitempty"`
	ClassType   *string  `json:"class_type,omitempty"`
	ExpectedABV *float64 `json:"expected_abv,omitempty"`
}

// Job is the unit of work the Ingress creates and the Executor drives to a
// terminal state. ExtractedFields and Result are written exactly once, and
// only while the job is Processing.
type Job struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	State    JobState  `gorm:"type:varchar(16);not null;index"`
	BlobKey  string    `gorm:"type:varchar(64);not null"`
	Expected datatypes.JSONType[ExpectedFields]  `gorm:"type:jsonb;not null"`

	Extracted *datatypes.JSONType[ExtractedFields]  `gorm:"type:jsonb"`
	Result    *datatypes.JSONType[VerificationResult] `gorm:"type:jsonb"`

	RetryCount int     `gorm:"not null;default:0"`
	Error      *string `gorm:"type:text"`

	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time `gorm:"not null"`
	ProcessingStartedAt *time.Time
	ProcessingEndedAt   *time.Time
}

func (Job) TableName() string { return "verify_job" }

// MatchHistory is an append-only audit row recorded once per job, mirroring
// the match fields of its VerificationResult.
type MatchHistory struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey"`
	JobID               uuid.UUID  `gorm:"type:uuid;not null;index"`
	MatchedBeverageID   *uuid.UUID `gorm:"type:uuid"`
	MatchType           CacheMatchType `gorm:"type:varchar(24);not null"`
	MatchConfidence     *float64
	ABVDeviation        float64
	CreatedAt           time.Time `gorm:"not null"`
}

func (MatchHistory) TableName() string { return "verify_match_history" }
