package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safemeet/safemeet-backend/internal/config"
	"github.com/safemeet/safemeet-backend/internal/models"
	"github.com/safemeet/safemeet-backend/internal/store"
	"gorm.io/datatypes"
)

var (
	ErrVerificationExpired = errors.New("meeting verification expired")
	ErrVerificationClosed  = errors.New("meeting verification already evaluated")
	ErrNotAParty           = errors.New("user is not a party to this verification")
	ErrAlreadySubmitted    = errors.New("answers already submitted")
	ErrUnknownReportType   = errors.New("unrecognized report type")
	ErrDuplicateReport     = errors.New("a report was already resolved for this meeting")
	ErrNoDeposit           = errors.New("no trust deposit for this meeting")
	ErrNoEmergencyContacts = errors.New("no emergency contacts configured")
)

// ReportType is the closed set of misconduct categories. Adding one is a
// compile-time change: Penalty refuses unknown values.
type ReportType string

const (
	ReportMild     ReportType = "mild"
	ReportModerate ReportType = "moderate"
	ReportSevere   ReportType = "severe"
	ReportAssault  ReportType = "assault"
)

// Penalty returns the fixed rating deduction for the report type.
func (r ReportType) Penalty() (float64, error) {
	switch r {
	case ReportMild:
		return 0.5, nil
	case ReportModerate:
		return 1.5, nil
	case ReportSevere:
		return 3.0, nil
	case ReportAssault:
		return 5.0, nil
	default:
		return 0, ErrUnknownReportType
	}
}

// Known public-place keywords for the first-meeting location check.
var publicPlaceKeywords = []string{
	"cafe", "coffee", "restaurant", "bar", "bistro", "diner",
	"mall", "market", "store", "shop",
	"park", "square", "plaza", "promenade",
	"library", "museum", "gallery", "cinema", "theater", "theatre",
	"station", "airport", "hotel lobby", "gym", "center", "centre",
}

// Identifiers returned for failed first-meeting requirements.
const (
	MissingVideoCalls      = "completed_video_calls"
	MissingConnectionAge   = "connection_age"
	MissingContacts        = "emergency_contacts_configured"
	MissingPublicPlace     = "public_meeting_place"
	MissingDaytimeWindow   = "daytime_meeting_window"
	MissingLocationSharing = "location_sharing_enabled"
)

// ConsistencyResult is the outcome of the cross-check of both parties'
// meeting answers.
type ConsistencyResult struct {
	Consistent bool     `json:"consistent"`
	Issues     []string `json:"issues,omitempty"`
}

// SubmitOutcome reports what happened to a verification after one party's
// submission.
type SubmitOutcome struct {
	Status    string   `json:"status"`
	Evaluated bool     `json:"evaluated"`
	Issues    []string `json:"issues,omitempty"`
}

// FirstMeetingDetails is the caller-supplied plan for a pair's first
// in-person meeting.
type FirstMeetingDetails struct {
	Location        string
	ScheduledAt     time.Time
	LocationSharing bool
}

// FirstMeetingResult lists the specific unmet requirements, never the
// thresholds behind them.
type FirstMeetingResult struct {
	Allowed             bool     `json:"allowed"`
	MissingRequirements []string `json:"missing_requirements,omitempty"`
}

// Notifier delivers safety-network notifications. The engine only records
// and hands off; delivery is an external subsystem.
type Notifier interface {
	Notify(ctx context.Context, contact models.EmergencyContact, payload map[string]interface{}) error
}

// LogNotifier is the default sink used when no delivery subsystem is wired.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, contact models.EmergencyContact, payload map[string]interface{}) error {
	slog.Info("safety network notification queued", "recipient", contact.Name)
	return nil
}

// MeetingSafetyOrchestrator runs the structured protocol around real-world
// meetings: mutual pre-meeting verification, trust deposits, the
// first-meeting checklist, safety-network check-ins and misconduct
// penalties.
type MeetingSafetyOrchestrator struct {
	store    store.Store
	cfg      *config.Thresholds
	notifier Notifier
	now      func() time.Time
}

func NewMeetingSafetyOrchestrator(st store.Store, cfg *config.Thresholds, notifier Notifier) *MeetingSafetyOrchestrator {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &MeetingSafetyOrchestrator{store: st, cfg: cfg, notifier: notifier, now: time.Now}
}

// ProposeVerification opens a pending mutual verification for a planned
// meeting.
func (o *MeetingSafetyOrchestrator) ProposeVerification(ctx context.Context, userA, userB uuid.UUID, location string, scheduledAt time.Time) (*models.MeetingVerification, error) {
	if _, err := o.store.GetUser(ctx, userA); err != nil {
		return nil, err
	}
	if _, err := o.store.GetUser(ctx, userB); err != nil {
		return nil, err
	}

	mv := &models.MeetingVerification{
		ID:          uuid.New(),
		UserAID:     userA,
		UserBID:     userB,
		Location:    location,
		ScheduledAt: scheduledAt,
		Status:      models.MeetingVerificationPending,
		ExpiresAt:   o.now().Add(o.cfg.MeetingVerificationTTL),
	}
	if err := o.store.CreateMeetingVerification(ctx, mv); err != nil {
		return nil, err
	}
	return mv, nil
}

// SubmitAnswers records one party's answers. Once both parties have
// submitted, the consistency evaluation runs exactly once: near-simultaneous
// submissions race for the evaluating claim and only the winner evaluates.
func (o *MeetingSafetyOrchestrator) SubmitAnswers(ctx context.Context, verificationID, userID uuid.UUID, answers models.MeetingAnswers) (*SubmitOutcome, error) {
	mv, err := o.store.GetMeetingVerification(ctx, verificationID)
	if err != nil {
		return nil, err
	}
	if mv.Status != models.MeetingVerificationPending {
		return nil, ErrVerificationClosed
	}
	if o.now().After(mv.ExpiresAt) {
		return nil, ErrVerificationExpired
	}

	var asUserA bool
	switch userID {
	case mv.UserAID:
		if mv.UserASubmitted {
			return nil, ErrAlreadySubmitted
		}
		asUserA = true
	case mv.UserBID:
		if mv.UserBSubmitted {
			return nil, ErrAlreadySubmitted
		}
	default:
		return nil, ErrNotAParty
	}

	// The per-party conditional write never touches the other party's
	// columns, so two concurrent submissions both land.
	recorded, err := o.store.RecordPartyAnswers(ctx, verificationID, asUserA, answers)
	if err != nil {
		return nil, err
	}
	if !recorded {
		return nil, ErrAlreadySubmitted
	}

	// Re-read to see the other party's submission if it raced ours.
	mv, err = o.store.GetMeetingVerification(ctx, verificationID)
	if err != nil {
		return nil, err
	}
	if !(mv.UserASubmitted && mv.UserBSubmitted) {
		return &SubmitOutcome{Status: models.MeetingVerificationPending}, nil
	}

	claimed, err := o.store.ClaimVerificationEvaluation(ctx, verificationID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// The other submission won the claim; it evaluates.
		return &SubmitOutcome{Status: models.MeetingVerificationEvaluating}, nil
	}
	return o.evaluate(ctx, mv)
}

func (o *MeetingSafetyOrchestrator) evaluate(ctx context.Context, mv *models.MeetingVerification) (*SubmitOutcome, error) {
	result := o.checkConsistency(mv.UserAAnswers.Data(), mv.UserBAnswers.Data())

	if result.Consistent {
		mv.Status = models.MeetingVerificationVerified
	} else {
		mv.Status = models.MeetingVerificationFailed
		if encoded, err := json.Marshal(result.Issues); err == nil {
			mv.Issues = datatypes.JSON(encoded)
		}
	}
	if err := o.store.SaveMeetingVerification(ctx, mv); err != nil {
		return nil, err
	}

	if !result.Consistent {
		alert := &models.SafetyAlert{
			ID:        uuid.New(),
			Type:      "verification_mismatch",
			SubjectID: mv.UserAID,
			RelatedID: &mv.UserBID,
			Severity:  models.SeverityHigh,
			Status:    models.AlertOpen,
			Details:   mustJSON(map[string]interface{}{"verification_id": mv.ID, "issues": result.Issues}),
		}
		if err := o.store.CreateSafetyAlert(ctx, alert); err != nil {
			return nil, err
		}
	}
	return &SubmitOutcome{Status: mv.Status, Evaluated: true, Issues: result.Issues}, nil
}

// checkConsistency cross-checks both parties' answers: the locations must
// match exactly or contain one another, the stated times must be within
// tolerance, and the free-text descriptions must overlap enough.
func (o *MeetingSafetyOrchestrator) checkConsistency(a, b models.MeetingAnswers) ConsistencyResult {
	var issues []string

	locA := strings.ToLower(strings.TrimSpace(a.Location))
	locB := strings.ToLower(strings.TrimSpace(b.Location))
	// A blank location never matches anything, not even another blank.
	if locA == "" || locB == "" {
		issues = append(issues, "meeting locations do not match")
	} else if locA != locB && !strings.Contains(locA, locB) && !strings.Contains(locB, locA) {
		issues = append(issues, "meeting locations do not match")
	}

	diff := a.MeetingTime.Sub(b.MeetingTime)
	if diff < 0 {
		diff = -diff
	}
	if diff > o.cfg.MeetingTimeTolerance {
		issues = append(issues, "meeting times do not match")
	}

	if tokenOverlap(a.Description, b.Description) < o.cfg.DescriptionOverlapMin {
		issues = append(issues, "meeting descriptions do not match")
	}

	return ConsistencyResult{Consistent: len(issues) == 0, Issues: issues}
}

// tokenOverlap is the Jaccard index over lower-cased whitespace tokens.
// An empty description carries no signal, so it overlaps with nothing.
func tokenOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}
	var intersection int
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = struct{}{}
	}
	return set
}

// CreateTrustDeposit snapshots both parties' current ratings against the
// meeting. One active deposit per meeting.
func (o *MeetingSafetyOrchestrator) CreateTrustDeposit(ctx context.Context, userA, userB, meetingID uuid.UUID) (*models.TrustDeposit, error) {
	a, err := o.store.GetUser(ctx, userA)
	if err != nil {
		return nil, err
	}
	b, err := o.store.GetUser(ctx, userB)
	if err != nil {
		return nil, err
	}

	deposit := &models.TrustDeposit{
		ID:                  uuid.New(),
		MeetingID:           meetingID,
		UserAID:             userA,
		UserBID:             userB,
		UserARatingSnapshot: a.AuthenticityRating,
		UserBRatingSnapshot: b.AuthenticityRating,
		DepositAmount:       o.cfg.DepositStake,
		Status:              models.DepositActive,
	}
	if err := o.store.CreateTrustDeposit(ctx, deposit); err != nil {
		return nil, err
	}
	return deposit, nil
}

// ResolveReport applies the fixed penalty for the report type to the
// reported user, resolves the deposit exactly once, bans on assault, and
// always leaves an audit alert. A second report against a resolved deposit
// is rejected.
func (o *MeetingSafetyOrchestrator) ResolveReport(ctx context.Context, meetingID, reporterID, reportedID uuid.UUID, reportType ReportType, details string) (*models.TrustDeposit, error) {
	penalty, err := reportType.Penalty()
	if err != nil {
		return nil, err
	}

	reported, err := o.store.GetUser(ctx, reportedID)
	if err != nil {
		return nil, err
	}

	updated := *reported
	updated.AuthenticityRating = clampScore(updated.AuthenticityRating - penalty)
	history := append(updated.ReportHistory.Data(), models.MisconductRecord{
		MeetingID:  meetingID,
		ReportType: string(reportType),
		Penalty:    penalty,
		ReportedAt: o.now(),
	})
	updated.ReportHistory = datatypes.NewJSONType(history)

	severity := models.SeverityHigh
	if reportType == ReportAssault {
		updated.AccountStatus = models.AccountBanned
		severity = models.SeverityCritical
	}

	alert := &models.SafetyAlert{
		ID:        uuid.New(),
		Type:      "misconduct_report",
		SubjectID: reportedID,
		RelatedID: &reporterID,
		Severity:  severity,
		Status:    models.AlertOpen,
		Details: mustJSON(map[string]interface{}{
			"meeting_id":  meetingID,
			"report_type": string(reportType),
			"details":     details,
		}),
	}

	// Deposit resolve, penalty and alert commit together. The conditional
	// resolve inside the transaction is the exactly-once guard, and a failed
	// attempt leaves the deposit active so the report can be retried.
	deposit, err := o.store.ResolveReport(ctx, meetingID, penalty, &updated, alert)
	if errors.Is(err, store.ErrDepositResolved) {
		return nil, ErrDuplicateReport
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoDeposit
	}
	if err != nil {
		return nil, err
	}
	return deposit, nil
}

// ValidateFirstMeeting applies the stricter all-must-pass checklist for a
// pair's first in-person meeting. It does not apply once a completed or
// in-progress meeting exists between the pair.
func (o *MeetingSafetyOrchestrator) ValidateFirstMeeting(ctx context.Context, userA, userB uuid.UUID, details FirstMeetingDetails) (*FirstMeetingResult, error) {
	prior, err := o.store.HasPriorMeeting(ctx, userA, userB)
	if err != nil {
		return nil, err
	}
	if prior {
		return &FirstMeetingResult{Allowed: true}, nil
	}

	user, err := o.store.GetUser(ctx, userA)
	if err != nil {
		return nil, err
	}
	conn, err := o.store.GetConnection(ctx, userA, userB)
	if err != nil {
		return nil, err
	}

	var missing []string

	videoCalls, err := o.store.CountCompletedCalls(ctx, userA, userB, models.CallVideo)
	if err != nil {
		return nil, err
	}
	if videoCalls < o.cfg.FirstMeetingVideoCalls {
		missing = append(missing, MissingVideoCalls)
	}

	if o.now().Sub(conn.CreatedAt) < o.cfg.FirstMeetingMinConnAge {
		missing = append(missing, MissingConnectionAge)
	}

	if !user.HasEmergencyContacts() {
		missing = append(missing, MissingContacts)
	}

	if !isPublicPlace(details.Location) {
		missing = append(missing, MissingPublicPlace)
	}

	hour := details.ScheduledAt.Hour()
	if hour < o.cfg.MeetingEarliestHour || hour >= o.cfg.MeetingLatestHour {
		missing = append(missing, MissingDaytimeWindow)
	}

	if !details.LocationSharing {
		missing = append(missing, MissingLocationSharing)
	}

	return &FirstMeetingResult{Allowed: len(missing) == 0, MissingRequirements: missing}, nil
}

func isPublicPlace(location string) bool {
	lower := strings.ToLower(location)
	for _, keyword := range publicPlaceKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// ActivateSafetyNetwork records a check-in for the meeting and queues a
// notification for every contact.
func (o *MeetingSafetyOrchestrator) ActivateSafetyNetwork(ctx context.Context, meetingID, userID uuid.UUID, contacts []models.EmergencyContact) (*models.SafetyCheckIn, error) {
	user, err := o.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		contacts = user.EmergencyContacts.Data()
	}
	if len(contacts) == 0 {
		return nil, ErrNoEmergencyContacts
	}

	checkIn := &models.SafetyCheckIn{
		ID:        uuid.New(),
		MeetingID: meetingID,
		UserID:    userID,
		Contacts:  datatypes.NewJSONType(contacts),
		Status:    "active",
	}
	if err := o.store.CreateSafetyCheckIn(ctx, checkIn); err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"meeting_id": meetingID.String(),
		"user_name":  user.DisplayName,
		"kind":       "safety_checkin",
	}
	for _, contact := range contacts {
		n := &models.Notification{
			ID:        uuid.New(),
			Recipient: contact.Phone,
			Channel:   "sms",
			Payload:   mustJSON(payload),
			Status:    "queued",
		}
		if err := o.store.CreateNotification(ctx, n); err != nil {
			return nil, err
		}
		if err := o.notifier.Notify(ctx, contact, payload); err != nil {
			slog.Warn("safety network notification failed", "recipient", contact.Name, "error", err)
		}
	}
	return checkIn, nil
}
