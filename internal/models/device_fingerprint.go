package models

import (
	"time"

	"github.com/google/uuid"
)

// DeviceFingerprintLog is one observation of a device signature for a user.
// Appended by the login/usage pipeline; read-only to this engine, which only
// considers logs inside a rolling window.
type DeviceFingerprintLog struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Fingerprint string    `gorm:"size:128;not null;index" json:"fingerprint"`
	SeenAt      time.Time `gorm:"not null;index" json:"seen_at"`
}

func (DeviceFingerprintLog) TableName() string {
	return "device_fingerprint_logs"
}
