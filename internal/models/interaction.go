package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CallVoice   = "voice"
	CallVideo   = "video"
	CallMessage = "message"
)

const CallCompleted = "completed"

// InteractionRecord is an aggregatable call or message event between two
// users. Rows are produced by the call/messaging subsystems; this engine
// only ever counts them.
type InteractionRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CallerID  uuid.UUID `gorm:"type:uuid;not null;index" json:"caller_id"`
	CalleeID  uuid.UUID `gorm:"type:uuid;not null;index" json:"callee_id"`
	CallType  string    `gorm:"size:20;not null" json:"call_type"`
	Status    string    `gorm:"size:20;not null" json:"status"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (InteractionRecord) TableName() string {
	return "interaction_records"
}
