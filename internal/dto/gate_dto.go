package dto

import "github.com/google/uuid"

// GateResponse is the fixed public contract for every gating and
// verification decision. It structurally cannot carry thresholds: only the
// verdict, a message from the reviewed vocabulary, and derived remainders.
type GateResponse struct {
	Allowed             bool   `json:"allowed"`
	Message             string `json:"message"`
	WaitingRequired     bool   `json:"waiting_required"`
	WaitDurationHours   int    `json:"wait_duration_hours,omitempty"`
	RequirementsMissing string `json:"requirements_missing,omitempty"`
}

type LevelCheckRequest struct {
	TargetUserID uuid.UUID `json:"target_user_id"`
	TargetLevel  int       `json:"target_level"`
}

type EscalateRequest struct {
	TargetUserID uuid.UUID `json:"target_user_id"`
	TargetLevel  int       `json:"target_level"`
}
