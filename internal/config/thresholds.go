package config

import "time"

// Thresholds holds every confidential constant the escalation engine runs
// on. The values are intentionally not configurable through the environment
// and every field carries `json:"-"`: responses are built exclusively from
// dto structs, and this object must never survive a serialization boundary.
// User-facing messages may carry derived values (remaining wait, missing
// counts) but never the constants themselves.
type Thresholds struct {
	Version int `json:"-"`

	// Level gating: requester account age minimums, per target level.
	VoiceMinAccountAgeDays   int `json:"-"`
	VideoMinAccountAgeDays   int `json:"-"`
	MeetingMinAccountAgeDays int `json:"-"`

	// Level gating: connection age minimums, per target level.
	VoiceMinConnectionAge   time.Duration `json:"-"`
	VideoMinConnectionAge   time.Duration `json:"-"`
	MeetingMinConnectionAge time.Duration `json:"-"`

	// Level gating: prior-interaction minimums at the previous level.
	VideoMinVoiceCalls   int `json:"-"`
	MeetingMinVideoCalls int `json:"-"`

	// Fraud detection.
	CircularRatingRatio     float64 `json:"-"`
	CircularRatingMinRaters int     `json:"-"`
	CircularRatingPenalty   float64 `json:"-"`

	ClusterWindowDays     int     `json:"-"`
	ClusterRatio          float64 `json:"-"`
	ClusterMinConnections int     `json:"-"`
	ClusterPenalty        float64 `json:"-"`

	SharedDeviceWindowDays     int     `json:"-"`
	SharedDeviceMinConnections int     `json:"-"`
	SharedDevicePenalty        float64 `json:"-"`

	IsolationExpectedMultiplier float64 `json:"-"`
	IsolationMinRatio           float64 `json:"-"`
	IsolationMinConnections     int     `json:"-"`
	IsolationPenalty            float64 `json:"-"`

	EarlyVelocityPerDay     float64 `json:"-"`
	EarlyVelocityWindowDays int     `json:"-"`
	EarlyVelocityPenalty    float64 `json:"-"`
	LateVelocityPerDay      float64 `json:"-"`
	LateVelocityWindowDays  int     `json:"-"`
	LateVelocityPenalty     float64 `json:"-"`

	// Identity verification.
	OwnershipCodeTTL  time.Duration `json:"-"`
	VideoChallengeTTL time.Duration `json:"-"`

	// Meeting safety.
	MeetingVerificationTTL  time.Duration `json:"-"`
	MeetingTimeTolerance    time.Duration `json:"-"`
	DescriptionOverlapMin   float64       `json:"-"`
	DepositStake            float64       `json:"-"`
	FirstMeetingVideoCalls  int           `json:"-"`
	FirstMeetingMinConnAge  time.Duration `json:"-"`
	MeetingEarliestHour     int           `json:"-"`
	MeetingLatestHour       int           `json:"-"`
}

// DefaultThresholds returns the reviewed production constants. Changing any
// value is a versioned change.
func DefaultThresholds() *Thresholds {
	return &Thresholds{
		Version: 1,

		VoiceMinAccountAgeDays:   7,
		VideoMinAccountAgeDays:   14,
		MeetingMinAccountAgeDays: 30,

		VoiceMinConnectionAge:   24 * time.Hour,
		VideoMinConnectionAge:   48 * time.Hour,
		MeetingMinConnectionAge: 168 * time.Hour,

		VideoMinVoiceCalls:   3,
		MeetingMinVideoCalls: 2,

		CircularRatingRatio:     0.70,
		CircularRatingMinRaters: 5,
		CircularRatingPenalty:   2.0,

		ClusterWindowDays:     7,
		ClusterRatio:          0.60,
		ClusterMinConnections: 5,
		ClusterPenalty:        1.5,

		SharedDeviceWindowDays:     30,
		SharedDeviceMinConnections: 2,
		SharedDevicePenalty:        3.0,

		IsolationExpectedMultiplier: 5.0,
		IsolationMinRatio:           0.30,
		IsolationMinConnections:     5,
		IsolationPenalty:            1.5,

		EarlyVelocityPerDay:     2.0,
		EarlyVelocityWindowDays: 7,
		EarlyVelocityPenalty:    2.0,
		LateVelocityPerDay:      1.0,
		LateVelocityWindowDays:  30,
		LateVelocityPenalty:     1.0,

		OwnershipCodeTTL:  24 * time.Hour,
		VideoChallengeTTL: 10 * time.Minute,

		MeetingVerificationTTL: 24 * time.Hour,
		MeetingTimeTolerance:   30 * time.Minute,
		DescriptionOverlapMin:  0.30,
		DepositStake:           1.0,
		FirstMeetingVideoCalls: 2,
		FirstMeetingMinConnAge: 14 * 24 * time.Hour,
		MeetingEarliestHour:    8,
		MeetingLatestHour:      20,
	}
}
