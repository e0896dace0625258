package dto

import "time"

type IssueCodeRequest struct {
	Platform string `json:"platform"`
}

type IssueCodeResponse struct {
	Platform  string    `json:"platform"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ConfirmOwnershipRequest struct {
	Platform   string `json:"platform"`
	ProfileURL string `json:"profile_url"`
}

type VerificationOutcomeResponse struct {
	Verified bool   `json:"verified"`
	Message  string `json:"message"`
}

type ChallengeResponse struct {
	Challenges []string  `json:"challenges"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type SubmitChallengeRequest struct {
	VideoRef string `json:"video_ref"`
}

type AnalysisResponse struct {
	AccountAgeScore float64  `json:"account_age_score"`
	ActivityScore   float64  `json:"activity_score"`
	Flags           []string `json:"flags"`
}
