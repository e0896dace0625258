package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/safemeet/safemeet-backend/internal/models"
)

type ProposeVerificationRequest struct {
	PartnerID   uuid.UUID `json:"partner_id"`
	Location    string    `json:"location"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

type SubmitAnswersRequest struct {
	Location    string    `json:"location"`
	MeetingTime time.Time `json:"meeting_time"`
	Description string    `json:"description"`
}

type CreateDepositRequest struct {
	PartnerID uuid.UUID `json:"partner_id"`
}

type ResolveReportRequest struct {
	ReportedID uuid.UUID `json:"reported_id"`
	ReportType string    `json:"report_type"`
	Details    string    `json:"details"`
}

type FirstMeetingRequest struct {
	PartnerID       uuid.UUID `json:"partner_id"`
	Location        string    `json:"location"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	LocationSharing bool      `json:"location_sharing"`
}

type SafetyNetworkRequest struct {
	Contacts []models.EmergencyContact `json:"contacts"`
}
