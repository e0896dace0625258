package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/safemeet/safemeet-backend/internal/models"
	"github.com/safemeet/safemeet-backend/internal/store"
	"gorm.io/datatypes"
)

// fakeStore is an in-memory store.Store used across the service tests.
type fakeStore struct {
	users         map[uuid.UUID]*models.User
	connections   []*models.Connection
	calls         []models.InteractionRecord
	messages      map[uuid.UUID][]time.Time
	reports       map[uuid.UUID]int
	blocks        map[uuid.UUID]int
	ratings       []models.RatingEdge
	devices       map[uuid.UUID][]models.DeviceFingerprintLog
	codes         []*models.VerificationCode
	challenges    []*models.VideoChallenge
	verifications map[uuid.UUID]*models.MeetingVerification
	priorMeeting  bool
	deposits      map[uuid.UUID]*models.TrustDeposit
	alerts        []*models.SafetyAlert
	checkIns      []*models.SafetyCheckIn
	notifications []*models.Notification
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[uuid.UUID]*models.User),
		messages:      make(map[uuid.UUID][]time.Time),
		reports:       make(map[uuid.UUID]int),
		blocks:        make(map[uuid.UUID]int),
		devices:       make(map[uuid.UUID][]models.DeviceFingerprintLog),
		verifications: make(map[uuid.UUID]*models.MeetingVerification),
		deposits:      make(map[uuid.UUID]*models.TrustDeposit),
	}
}

func (f *fakeStore) addUser(u *models.User) *models.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) addConnection(c *models.Connection) *models.Connection {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = models.ConnectionAccepted
	}
	if c.TrustLevel == 0 {
		c.TrustLevel = models.LevelText
	}
	f.connections = append(f.connections, c)
	return c
}

func (f *fakeStore) addCompletedCalls(a, b uuid.UUID, callType string, n int) {
	for i := 0; i < n; i++ {
		f.calls = append(f.calls, models.InteractionRecord{
			ID:       uuid.New(),
			CallerID: a,
			CalleeID: b,
			CallType: callType,
			Status:   models.CallCompleted,
		})
	}
}

func (f *fakeStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) SaveUser(_ context.Context, u *models.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) GetConnection(_ context.Context, a, b uuid.UUID) (*models.Connection, error) {
	for _, c := range f.connections {
		if (c.SenderID == a && c.ReceiverID == b) || (c.SenderID == b && c.ReceiverID == a) {
			return c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListAcceptedConnections(_ context.Context, userID uuid.UUID) ([]models.Connection, error) {
	var out []models.Connection
	for _, c := range f.connections {
		if c.Status == models.ConnectionAccepted && c.Involves(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) CountAcceptedConnections(ctx context.Context, userID uuid.UUID) (int, error) {
	conns, err := f.ListAcceptedConnections(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(conns), nil
}

func (f *fakeStore) AdvanceConnectionLevel(_ context.Context, connectionID uuid.UUID, from, to int) error {
	for _, c := range f.connections {
		if c.ID != connectionID {
			continue
		}
		if c.TrustLevel != from {
			return store.ErrLevelConflict
		}
		c.TrustLevel = to
		return nil
	}
	return store.ErrNotFound
}

func (f *fakeStore) CountCompletedCalls(_ context.Context, a, b uuid.UUID, callType string) (int, error) {
	var n int
	for _, call := range f.calls {
		pairMatch := (call.CallerID == a && call.CalleeID == b) || (call.CallerID == b && call.CalleeID == a)
		if pairMatch && call.CallType == callType && call.Status == models.CallCompleted {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountRecentMessages(_ context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var n int
	for _, at := range f.messages[userID] {
		if at.After(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountReportsAgainst(_ context.Context, userID uuid.UUID) (int, error) {
	return f.reports[userID], nil
}

func (f *fakeStore) CountBlocksAgainst(_ context.Context, userID uuid.UUID) (int, error) {
	return f.blocks[userID], nil
}

func (f *fakeStore) GetRatingsFor(_ context.Context, userID uuid.UUID) ([]models.RatingEdge, error) {
	var out []models.RatingEdge
	for _, e := range f.ratings {
		if e.RatedID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) GetRatingsBy(_ context.Context, userID uuid.UUID) ([]models.RatingEdge, error) {
	var out []models.RatingEdge
	for _, e := range f.ratings {
		if e.RaterID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) GetDeviceFingerprints(_ context.Context, userID uuid.UUID, _ int) ([]models.DeviceFingerprintLog, error) {
	return f.devices[userID], nil
}

func (f *fakeStore) ActiveVerificationCode(_ context.Context, userID uuid.UUID, platform string) (*models.VerificationCode, error) {
	for i := len(f.codes) - 1; i >= 0; i-- {
		c := f.codes[i]
		if c.UserID == userID && c.Platform == platform && c.Status == models.VerificationPending {
			return c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) SaveVerificationCode(_ context.Context, code *models.VerificationCode) error {
	for i, c := range f.codes {
		if c.ID == code.ID {
			f.codes[i] = code
			return nil
		}
	}
	f.codes = append(f.codes, code)
	return nil
}

func (f *fakeStore) SupersedeVerificationCodes(_ context.Context, userID uuid.UUID, platform string) error {
	for _, c := range f.codes {
		if c.UserID == userID && c.Platform == platform && c.Status == models.VerificationPending {
			c.Status = models.VerificationExpired
		}
	}
	return nil
}

func (f *fakeStore) ActiveVideoChallenge(_ context.Context, userID uuid.UUID) (*models.VideoChallenge, error) {
	for i := len(f.challenges) - 1; i >= 0; i-- {
		ch := f.challenges[i]
		if ch.UserID == userID && ch.Status == models.ChallengePending {
			return ch, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) SaveVideoChallenge(_ context.Context, ch *models.VideoChallenge) error {
	for i, existing := range f.challenges {
		if existing.ID == ch.ID {
			f.challenges[i] = ch
			return nil
		}
	}
	f.challenges = append(f.challenges, ch)
	return nil
}

func (f *fakeStore) SupersedeVideoChallenges(_ context.Context, userID uuid.UUID) error {
	for _, ch := range f.challenges {
		if ch.UserID == userID && ch.Status == models.ChallengePending {
			ch.Status = models.ChallengeExpired
		}
	}
	return nil
}

func (f *fakeStore) CreateMeetingVerification(_ context.Context, mv *models.MeetingVerification) error {
	f.verifications[mv.ID] = mv
	return nil
}

func (f *fakeStore) GetMeetingVerification(_ context.Context, id uuid.UUID) (*models.MeetingVerification, error) {
	mv, ok := f.verifications[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return mv, nil
}

func (f *fakeStore) SaveMeetingVerification(_ context.Context, mv *models.MeetingVerification) error {
	f.verifications[mv.ID] = mv
	return nil
}

func (f *fakeStore) RecordPartyAnswers(_ context.Context, id uuid.UUID, asUserA bool, answers models.MeetingAnswers) (bool, error) {
	mv, ok := f.verifications[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if mv.Status != models.MeetingVerificationPending {
		return false, nil
	}
	if asUserA {
		if mv.UserASubmitted {
			return false, nil
		}
		mv.UserASubmitted = true
		mv.UserAAnswers = datatypes.NewJSONType(answers)
		return true, nil
	}
	if mv.UserBSubmitted {
		return false, nil
	}
	mv.UserBSubmitted = true
	mv.UserBAnswers = datatypes.NewJSONType(answers)
	return true, nil
}

func (f *fakeStore) ClaimVerificationEvaluation(_ context.Context, id uuid.UUID) (bool, error) {
	mv, ok := f.verifications[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if mv.Status != models.MeetingVerificationPending {
		return false, nil
	}
	mv.Status = models.MeetingVerificationEvaluating
	return true, nil
}

func (f *fakeStore) HasPriorMeeting(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return f.priorMeeting, nil
}

func (f *fakeStore) CreateTrustDeposit(_ context.Context, d *models.TrustDeposit) error {
	if existing, ok := f.deposits[d.MeetingID]; ok && existing.Status == models.DepositActive {
		return store.ErrDepositExists
	}
	f.deposits[d.MeetingID] = d
	return nil
}

func (f *fakeStore) GetTrustDeposit(_ context.Context, meetingID uuid.UUID) (*models.TrustDeposit, error) {
	d, ok := f.deposits[meetingID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return d, nil
}

func (f *fakeStore) ResolveReport(_ context.Context, meetingID uuid.UUID, penalty float64, reported *models.User, alert *models.SafetyAlert) (*models.TrustDeposit, error) {
	d, ok := f.deposits[meetingID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if d.Status != models.DepositActive {
		return nil, store.ErrDepositResolved
	}
	now := time.Now()
	d.Status = models.DepositResolved
	d.PenaltyAmount = penalty
	d.ResolvedAt = &now
	f.users[reported.ID] = reported
	f.alerts = append(f.alerts, alert)
	return d, nil
}

func (f *fakeStore) CreateSafetyAlert(_ context.Context, alert *models.SafetyAlert) error {
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeStore) ListSafetyAlerts(_ context.Context, status string, limit, offset int) ([]models.SafetyAlert, int64, error) {
	var out []models.SafetyAlert
	for _, a := range f.alerts {
		if status == "" || a.Status == status {
			out = append(out, *a)
		}
	}
	total := int64(len(out))
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (f *fakeStore) UpdateSafetyAlertStatus(_ context.Context, id uuid.UUID, status string) error {
	for _, a := range f.alerts {
		if a.ID == id {
			a.Status = status
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) CreateSafetyCheckIn(_ context.Context, checkIn *models.SafetyCheckIn) error {
	f.checkIns = append(f.checkIns, checkIn)
	return nil
}

func (f *fakeStore) CreateNotification(_ context.Context, n *models.Notification) error {
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeStore) alertsOfType(alertType string) []*models.SafetyAlert {
	var out []*models.SafetyAlert
	for _, a := range f.alerts {
		if a.Type == alertType {
			out = append(out, a)
		}
	}
	return out
}

var _ store.Store = (*fakeStore)(nil)
