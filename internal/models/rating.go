package models

import (
	"time"

	"github.com/google/uuid"
)

// RatingEdge is one user's 1-5 star rating of another. RaterID and RatedID
// are never equal.
type RatingEdge struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RaterID   uuid.UUID `gorm:"type:uuid;not null;index" json:"rater_id"`
	RatedID   uuid.UUID `gorm:"type:uuid;not null;index" json:"rated_id"`
	Value     int       `gorm:"not null" json:"value"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (RatingEdge) TableName() string {
	return "rating_edges"
}
