package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/safemeet/safemeet-backend/internal/config"
	"github.com/safemeet/safemeet-backend/internal/models"
	"github.com/safemeet/safemeet-backend/internal/store"
	"gorm.io/datatypes"
)

// DetectorResult is one heuristic's verdict. Only the boolean and a textual
// flag ever leave the analyzer; raw ratios stay internal.
type DetectorResult struct {
	Suspicious bool
	Flag       string
	Penalty    float64
	Critical   bool
}

// NetworkReport is the outcome of a full fraud analysis run.
type NetworkReport struct {
	Score          float64  `json:"network_trust_score"`
	RiskLevel      string   `json:"risk_level"`
	Flags          []string `json:"flags"`
	ActionRequired bool     `json:"action_required"`
}

// NetworkFraudAnalyzer runs five independent read-only heuristics over the
// signal store and discounts the user's network trust score accordingly.
// A detector whose data source fails degrades to "not suspicious" so one
// outage cannot starve the scoring pipeline.
type NetworkFraudAnalyzer struct {
	store store.Store
	cfg   *config.Thresholds
	now   func() time.Time
}

func NewNetworkFraudAnalyzer(st store.Store, cfg *config.Thresholds) *NetworkFraudAnalyzer {
	return &NetworkFraudAnalyzer{store: st, cfg: cfg, now: time.Now}
}

// CalculateNetworkTrustScore runs all five detectors, applies triggered
// penalties to the 10-point conversion of the user's star rating, derives
// the risk tier and persists the result.
func (a *NetworkFraudAnalyzer) CalculateNetworkTrustScore(ctx context.Context, userID uuid.UUID) (*NetworkReport, error) {
	user, err := a.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := []DetectorResult{
		a.detectCircularRatings(ctx, userID),
		a.detectAccountClusters(ctx, user),
		a.detectSharedDevices(ctx, userID),
		a.detectIsolatedNetwork(ctx, userID),
		a.detectRatingVelocity(ctx, user),
	}

	report := &NetworkReport{}
	var totalPenalty float64
	var critical bool
	for _, r := range results {
		if !r.Suspicious {
			continue
		}
		totalPenalty += r.Penalty
		report.Flags = append(report.Flags, r.Flag)
		if r.Critical {
			critical = true
		}
	}

	base := a.baseRating(ctx, userID) * 2.0 // 5-star scale to 10-point
	report.Score = clampScore(base - totalPenalty)

	switch {
	case len(report.Flags) >= 3 || critical:
		report.RiskLevel = models.RiskHigh
	case len(report.Flags) >= 1:
		report.RiskLevel = models.RiskMedium
	default:
		report.RiskLevel = models.RiskLow
	}
	report.ActionRequired = critical

	user.NetworkTrustScore = report.Score
	user.NetworkRiskLevel = report.RiskLevel
	user.ActionRequired = report.ActionRequired
	if encoded, err := json.Marshal(report.Flags); err == nil {
		user.NetworkFlags = datatypes.JSON(encoded)
	}
	if err := a.store.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	if critical {
		alert := &models.SafetyAlert{
			ID:        uuid.New(),
			Type:      "fraud_critical",
			SubjectID: userID,
			Severity:  models.SeverityCritical,
			Status:    models.AlertOpen,
			Details:   mustJSON(map[string]interface{}{"flags": report.Flags}),
		}
		if err := a.store.CreateSafetyAlert(ctx, alert); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// baseRating averages received star ratings; users with no ratings sit at
// the neutral midpoint.
func (a *NetworkFraudAnalyzer) baseRating(ctx context.Context, userID uuid.UUID) float64 {
	edges, err := a.store.GetRatingsFor(ctx, userID)
	if err != nil || len(edges) == 0 {
		return 2.5
	}
	var sum float64
	for _, e := range edges {
		sum += float64(e.Value)
	}
	return sum / float64(len(edges))
}

// detectCircularRatings flags users whose raters were in large part also
// rated back by them.
func (a *NetworkFraudAnalyzer) detectCircularRatings(ctx context.Context, userID uuid.UUID) DetectorResult {
	received, err := a.store.GetRatingsFor(ctx, userID)
	if err != nil {
		slog.Warn("circular rating detector degraded", "user_id", userID, "error", err)
		return DetectorResult{}
	}
	given, err := a.store.GetRatingsBy(ctx, userID)
	if err != nil {
		slog.Warn("circular rating detector degraded", "user_id", userID, "error", err)
		return DetectorResult{}
	}

	raters := make(map[uuid.UUID]struct{})
	for _, e := range received {
		raters[e.RaterID] = struct{}{}
	}
	if len(raters) < a.cfg.CircularRatingMinRaters {
		return DetectorResult{}
	}

	ratedBack := make(map[uuid.UUID]struct{})
	for _, e := range given {
		ratedBack[e.RatedID] = struct{}{}
	}
	var mutual int
	for rater := range raters {
		if _, ok := ratedBack[rater]; ok {
			mutual++
		}
	}

	ratio := float64(mutual) / float64(len(raters))
	if ratio > a.cfg.CircularRatingRatio {
		return DetectorResult{
			Suspicious: true,
			Flag:       "reciprocal rating pattern detected",
			Penalty:    a.cfg.CircularRatingPenalty,
		}
	}
	return DetectorResult{}
}

// detectAccountClusters flags users whose accepted connections were mostly
// created within days of the user's own registration.
func (a *NetworkFraudAnalyzer) detectAccountClusters(ctx context.Context, user *models.User) DetectorResult {
	conns, err := a.store.ListAcceptedConnections(ctx, user.ID)
	if err != nil {
		slog.Warn("account cluster detector degraded", "user_id", user.ID, "error", err)
		return DetectorResult{}
	}
	if len(conns) < a.cfg.ClusterMinConnections {
		return DetectorResult{}
	}

	window := time.Duration(a.cfg.ClusterWindowDays) * 24 * time.Hour
	var clustered int
	for _, c := range conns {
		peerID := c.Other(user.ID)
		peer, err := a.store.GetUser(ctx, peerID)
		if err != nil {
			continue
		}
		gap := peer.CreatedAt.Sub(user.CreatedAt)
		if gap < 0 {
			gap = -gap
		}
		if gap <= window {
			clustered++
		}
	}

	ratio := float64(clustered) / float64(len(conns))
	if ratio > a.cfg.ClusterRatio {
		return DetectorResult{
			Suspicious: true,
			Flag:       "connected accounts created around the same time",
			Penalty:    a.cfg.ClusterPenalty,
		}
	}
	return DetectorResult{}
}

// detectSharedDevices flags users whose recent device fingerprints overlap
// with multiple connections. A hit is critical and requires action.
func (a *NetworkFraudAnalyzer) detectSharedDevices(ctx context.Context, userID uuid.UUID) DetectorResult {
	own, err := a.store.GetDeviceFingerprints(ctx, userID, a.cfg.SharedDeviceWindowDays)
	if err != nil {
		slog.Warn("shared device detector degraded", "user_id", userID, "error", err)
		return DetectorResult{}
	}
	ownPrints := make(map[string]struct{})
	for _, l := range own {
		ownPrints[l.Fingerprint] = struct{}{}
	}
	if len(ownPrints) == 0 {
		return DetectorResult{}
	}

	conns, err := a.store.ListAcceptedConnections(ctx, userID)
	if err != nil {
		slog.Warn("shared device detector degraded", "user_id", userID, "error", err)
		return DetectorResult{}
	}

	var sharing int
	for _, c := range conns {
		peerLogs, err := a.store.GetDeviceFingerprints(ctx, c.Other(userID), a.cfg.SharedDeviceWindowDays)
		if err != nil {
			continue
		}
		for _, l := range peerLogs {
			if _, ok := ownPrints[l.Fingerprint]; ok {
				sharing++
				break
			}
		}
	}

	if sharing >= a.cfg.SharedDeviceMinConnections {
		return DetectorResult{
			Suspicious: true,
			Flag:       "multiple connections share a device",
			Penalty:    a.cfg.SharedDevicePenalty,
			Critical:   true,
		}
	}
	return DetectorResult{}
}

// detectIsolatedNetwork compares the 2nd-degree connection count against an
// expected multiple of the immediate count.
func (a *NetworkFraudAnalyzer) detectIsolatedNetwork(ctx context.Context, userID uuid.UUID) DetectorResult {
	conns, err := a.store.ListAcceptedConnections(ctx, userID)
	if err != nil {
		slog.Warn("isolation detector degraded", "user_id", userID, "error", err)
		return DetectorResult{}
	}
	if len(conns) < a.cfg.IsolationMinConnections {
		return DetectorResult{}
	}

	secondDegree := make(map[uuid.UUID]struct{})
	for _, c := range conns {
		peerID := c.Other(userID)
		peerConns, err := a.store.ListAcceptedConnections(ctx, peerID)
		if err != nil {
			continue
		}
		for _, pc := range peerConns {
			candidate := pc.Other(peerID)
			if candidate == userID {
				continue
			}
			secondDegree[candidate] = struct{}{}
		}
	}

	expected := float64(len(conns)) * a.cfg.IsolationExpectedMultiplier
	if float64(len(secondDegree)) < expected*a.cfg.IsolationMinRatio {
		return DetectorResult{
			Suspicious: true,
			Flag:       "network is unusually closed off",
			Penalty:    a.cfg.IsolationPenalty,
		}
	}
	return DetectorResult{}
}

// detectRatingVelocity flags implausibly fast rating accumulation on young
// accounts.
func (a *NetworkFraudAnalyzer) detectRatingVelocity(ctx context.Context, user *models.User) DetectorResult {
	edges, err := a.store.GetRatingsFor(ctx, user.ID)
	if err != nil {
		slog.Warn("rating velocity detector degraded", "user_id", user.ID, "error", err)
		return DetectorResult{}
	}
	if len(edges) == 0 {
		return DetectorResult{}
	}

	ageDays := a.now().Sub(user.CreatedAt).Hours() / 24
	if ageDays < 1 {
		ageDays = 1
	}
	perDay := float64(len(edges)) / ageDays

	if ageDays <= float64(a.cfg.EarlyVelocityWindowDays) && perDay > a.cfg.EarlyVelocityPerDay {
		return DetectorResult{
			Suspicious: true,
			Flag:       "ratings arriving unusually fast for a new account",
			Penalty:    a.cfg.EarlyVelocityPenalty,
		}
	}
	if ageDays <= float64(a.cfg.LateVelocityWindowDays) && perDay > a.cfg.LateVelocityPerDay {
		return DetectorResult{
			Suspicious: true,
			Flag:       "ratings arriving unusually fast",
			Penalty:    a.cfg.LateVelocityPenalty,
		}
	}
	return DetectorResult{}
}

func mustJSON(v interface{}) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(b)
}
