package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AlertOpen         = "open"
	AlertAcknowledged = "acknowledged"
	AlertDismissed    = "dismissed"
)

const (
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// SafetyAlert is the audit record handed to the moderation queue. Every
// verification mismatch, misconduct report and critical fraud finding
// creates one; they are never silently dropped.
type SafetyAlert struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Type      string         `gorm:"size:50;not null;index" json:"type"`
	SubjectID uuid.UUID      `gorm:"type:uuid;not null;index" json:"subject_id"`
	RelatedID *uuid.UUID     `gorm:"type:uuid" json:"related_id,omitempty"`
	Severity  string         `gorm:"size:20;not null" json:"severity"`
	Status    string         `gorm:"size:20;not null;default:'open';index" json:"status"`
	Details   datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"details"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SafetyCheckIn tracks an activated safety network around one meeting.
type SafetyCheckIn struct {
	ID        uuid.UUID                              `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	MeetingID uuid.UUID                              `gorm:"type:uuid;not null;index" json:"meeting_id"`
	UserID    uuid.UUID                              `gorm:"type:uuid;not null;index" json:"user_id"`
	Contacts  datatypes.JSONType[[]EmergencyContact] `gorm:"type:jsonb" json:"contacts"`
	Status    string                                 `gorm:"size:20;not null;default:'active'" json:"status"`
	CreatedAt time.Time                              `json:"created_at"`
}

// Notification is a delivery record consumed by the external notification
// subsystem.
type Notification struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Recipient string         `gorm:"size:255;not null" json:"recipient"`
	Channel   string         `gorm:"size:20;not null;default:'sms'" json:"channel"`
	Payload   datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"payload"`
	Status    string         `gorm:"size:20;not null;default:'queued'" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}
