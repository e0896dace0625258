package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AccountActive = "active"
	AccountBanned = "banned"
)

// Risk tiers derived by the fraud analyzer.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// PlatformProof is the verification state for one external platform.
type PlatformProof struct {
	Verified       bool       `json:"verified"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
	ProfileURL     string     `json:"profile_url,omitempty"`
	AccountAgeDays int        `json:"account_age_days,omitempty"`
}

// VerifiedPlatforms is a fixed-shape record, one slot per supported platform.
type VerifiedPlatforms struct {
	LinkedIn  PlatformProof `json:"linkedin"`
	Instagram PlatformProof `json:"instagram"`
	Facebook  PlatformProof `json:"facebook"`
}

// EmergencyContact is a trusted person notified around real-world meetings.
type EmergencyContact struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation,omitempty"`
}

// MisconductRecord is one entry of a user's report history.
type MisconductRecord struct {
	MeetingID  uuid.UUID `json:"meeting_id"`
	ReportType string    `json:"report_type"`
	Penalty    float64   `json:"penalty"`
	ReportedAt time.Time `json:"reported_at"`
}

// User is a platform member together with every trust signal the engine
// maintains for them. Score fields are written only by the scorer, the
// identity verifier and the fraud analyzer.
type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DisplayName string         `gorm:"size:100;not null" json:"display_name"`
	Email       string         `gorm:"size:255;uniqueIndex" json:"email"`
	AvatarURL   string         `gorm:"size:500" json:"avatar_url,omitempty"`
	Bio         string         `gorm:"size:1000" json:"bio,omitempty"`
	Interests   datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"interests"`

	PhoneVerified bool `gorm:"default:false" json:"phone_verified"`
	EmailVerified bool `gorm:"default:false" json:"email_verified"`
	GovIDVerified bool `gorm:"default:false" json:"gov_id_verified"`

	AuthenticityRating float64        `gorm:"default:0" json:"authenticity_rating"`
	ScoreBreakdown     datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"score_breakdown"`

	OwnershipScore      float64 `gorm:"default:0" json:"-"`
	AccountAgeScore     float64 `gorm:"default:0" json:"-"`
	ActivityScore       float64 `gorm:"default:0" json:"-"`
	VideoScore          float64 `gorm:"default:0" json:"-"`
	AIVerificationScore float64 `gorm:"default:0" json:"ai_verification_score"`
	VideoVerified       bool    `gorm:"default:false" json:"video_verified"`

	VerifiedPlatforms datatypes.JSONType[VerifiedPlatforms] `gorm:"type:jsonb" json:"verified_platforms"`
	VerificationFlags datatypes.JSON                        `gorm:"type:jsonb;default:'[]'" json:"verification_flags"`

	NetworkTrustScore float64        `gorm:"default:0" json:"network_trust_score"`
	NetworkRiskLevel  string         `gorm:"size:10;default:'low'" json:"network_risk_level"`
	NetworkFlags      datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"network_flags"`
	ActionRequired    bool           `gorm:"default:false" json:"action_required"`

	AccountStatus     string                                 `gorm:"size:20;default:'active';index" json:"account_status"`
	EmergencyContacts datatypes.JSONType[[]EmergencyContact] `gorm:"type:jsonb" json:"-"`
	ReportHistory     datatypes.JSONType[[]MisconductRecord] `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Banned() bool {
	return u.AccountStatus == AccountBanned
}

// HasEmergencyContacts reports whether the safety-network prerequisite for
// real-world meetings is satisfied.
func (u *User) HasEmergencyContacts() bool {
	return len(u.EmergencyContacts.Data()) > 0
}
