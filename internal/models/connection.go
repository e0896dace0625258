package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
	ConnectionDeclined = "declined"
)

// Communication depth between two connected users. Levels are strictly
// ordered and only ever move upward.
const (
	LevelText    = 1
	LevelVoice   = 2
	LevelVideo   = 3
	LevelMeeting = 4
)

// Connection is a mutual relationship between two users. TrustLevel is
// mutated only through the level gate's compare-and-set write.
type Connection struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SenderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"sender_id"`
	ReceiverID uuid.UUID `gorm:"type:uuid;not null;index" json:"receiver_id"`
	Status     string    `gorm:"size:20;not null;default:'pending'" json:"status"`
	TrustLevel int       `gorm:"not null;default:1" json:"trust_level"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Sender   User `gorm:"foreignKey:SenderID" json:"-"`
	Receiver User `gorm:"foreignKey:ReceiverID" json:"-"`
}

// Involves reports whether the given user is one of the two parties.
func (c *Connection) Involves(userID uuid.UUID) bool {
	return c.SenderID == userID || c.ReceiverID == userID
}

// Other returns the counterpart of the given user on this connection.
func (c *Connection) Other(userID uuid.UUID) uuid.UUID {
	if c.SenderID == userID {
		return c.ReceiverID
	}
	return c.SenderID
}
