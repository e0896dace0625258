package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationExpired  = "expired"
)

const (
	ChallengePending   = "pending"
	ChallengeCompleted = "completed"
	ChallengeFailed    = "failed"
	ChallengeExpired   = "expired"
)

// VerificationCode is a proof token for social-platform ownership. At most
// one active code exists per (user, platform); issuing a new one supersedes
// the previous.
type VerificationCode struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Platform  string    `gorm:"size:20;not null;index" json:"platform"`
	Code      string    `gorm:"size:32;not null" json:"code"`
	Status    string    `gorm:"size:20;not null;default:'pending'" json:"status"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// VideoChallenge is a set of live-verification challenges issued to a user.
// Single active challenge per user, consumed on submission.
type VideoChallenge struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Challenges datatypes.JSON `gorm:"type:jsonb;not null" json:"challenges"`
	Status     string         `gorm:"size:20;not null;default:'pending'" json:"status"`
	ExpiresAt  time.Time      `gorm:"not null" json:"expires_at"`
	CreatedAt  time.Time      `json:"created_at"`
}
