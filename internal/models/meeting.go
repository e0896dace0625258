package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	MeetingVerificationPending    = "pending"
	MeetingVerificationEvaluating = "evaluating"
	MeetingVerificationVerified   = "verified"
	MeetingVerificationFailed     = "failed"
)

const (
	DepositActive   = "active"
	DepositResolved = "resolved"
)

// MeetingAnswers is one party's attestation of the meeting details.
type MeetingAnswers struct {
	Location    string    `json:"location"`
	MeetingTime time.Time `json:"meeting_time"`
	Description string    `json:"description"`
}

// MeetingVerification is the mutual pre-meeting attestation. Status moves
// pending -> evaluating -> verified|failed and never back; the consistency
// evaluation runs exactly once, by whichever submission claims the
// evaluating state first.
type MeetingVerification struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserAID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_a_id"`
	UserBID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_b_id"`
	Location    string    `gorm:"size:500" json:"location"`
	ScheduledAt time.Time `json:"scheduled_at"`

	UserASubmitted bool                                `gorm:"default:false" json:"user_a_submitted"`
	UserBSubmitted bool                                `gorm:"default:false" json:"user_b_submitted"`
	UserAAnswers   datatypes.JSONType[MeetingAnswers]  `gorm:"type:jsonb" json:"-"`
	UserBAnswers   datatypes.JSONType[MeetingAnswers]  `gorm:"type:jsonb" json:"-"`

	Status    string         `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Issues    datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"issues"`
	ExpiresAt time.Time      `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TrustDeposit is the reputation stake both parties risk for a meeting.
// Exactly one active deposit exists per meeting; it resolves exactly once.
type TrustDeposit struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	MeetingID uuid.UUID `gorm:"type:uuid;not null;index" json:"meeting_id"`
	UserAID   uuid.UUID `gorm:"type:uuid;not null" json:"user_a_id"`
	UserBID   uuid.UUID `gorm:"type:uuid;not null" json:"user_b_id"`

	UserARatingSnapshot float64 `json:"user_a_rating_snapshot"`
	UserBRatingSnapshot float64 `json:"user_b_rating_snapshot"`
	DepositAmount       float64 `json:"deposit_amount"`
	PenaltyAmount       float64 `json:"penalty_amount"`

	Status     string     `gorm:"size:20;not null;default:'active';index" json:"status"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
