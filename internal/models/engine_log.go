package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EngineLog stores structured error logs from the trust engine for later
// querying by operations tooling.
type EngineLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Timestamp    time.Time      `gorm:"not null;index" json:"timestamp"`
	Level        string         `gorm:"size:10;not null;index" json:"level"`
	Message      string         `gorm:"type:text" json:"message"`
	TraceID      string         `gorm:"size:36;index" json:"trace_id"`
	UserID       *string        `gorm:"size:36" json:"user_id"`
	ConnectionID *string        `gorm:"size:36" json:"connection_id"`
	Component    string         `gorm:"size:50;index" json:"component"`
	Error        string         `gorm:"type:text" json:"error"`
	Extra        datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"extra"`
	CreatedAt    time.Time      `json:"created_at"`
}
