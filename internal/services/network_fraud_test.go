package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safemeet/safemeet-backend/internal/config"
	"github.com/safemeet/safemeet-backend/internal/models"
)

func newFraudAnalyzer(fs *fakeStore) *NetworkFraudAnalyzer {
	a := NewNetworkFraudAnalyzer(fs, config.DefaultThresholds())
	a.now = fixedNow
	return a
}

// addMutualRatings wires raters of user, ratedBack of which user rated back.
func addMutualRatings(fs *fakeStore, userID uuid.UUID, raters, ratedBack int) {
	for i := 0; i < raters; i++ {
		rater := uuid.New()
		fs.ratings = append(fs.ratings, models.RatingEdge{
			ID: uuid.New(), RaterID: rater, RatedID: userID, Value: 5,
			CreatedAt: fixedNow().AddDate(0, 0, -10),
		})
		if i < ratedBack {
			fs.ratings = append(fs.ratings, models.RatingEdge{
				ID: uuid.New(), RaterID: userID, RatedID: rater, Value: 5,
				CreatedAt: fixedNow().AddDate(0, 0, -10),
			})
		}
	}
}

func TestDetectCircularRatingsBoundary(t *testing.T) {
	tests := []struct {
		name       string
		raters     int
		mutual     int
		suspicious bool
	}{
		{"above ratio", 5, 4, true},    // 0.80
		{"at ratio", 10, 7, false},     // exactly 0.70, strict comparison
		{"below min raters", 4, 4, false},
		{"clean network", 10, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFakeStore()
			user := fs.addUser(&models.User{
				DisplayName: "Hal",
				Email:       "hal@example.com",
				CreatedAt:   fixedNow().AddDate(0, 0, -200),
			})
			addMutualRatings(fs, user.ID, tt.raters, tt.mutual)

			a := newFraudAnalyzer(fs)
			result := a.detectCircularRatings(context.Background(), user.ID)
			if result.Suspicious != tt.suspicious {
				t.Errorf("suspicious = %v, want %v", result.Suspicious, tt.suspicious)
			}
		})
	}
}

func TestSharedDevicesIsCritical(t *testing.T) {
	fs := newFakeStore()
	user := fs.addUser(&models.User{
		DisplayName: "Ivy",
		Email:       "ivy@example.com",
		CreatedAt:   fixedNow().AddDate(0, 0, -200),
	})
	fs.devices[user.ID] = []models.DeviceFingerprintLog{
		{ID: uuid.New(), UserID: user.ID, Fingerprint: "fp-alpha", SeenAt: fixedNow().AddDate(0, 0, -2)},
	}
	for i := 0; i < 2; i++ {
		peer := fs.addUser(&models.User{
			DisplayName: "Peer",
			Email:       uuid.NewString() + "@example.com",
			CreatedAt:   fixedNow().AddDate(0, 0, -200),
		})
		fs.addConnection(&models.Connection{SenderID: user.ID, ReceiverID: peer.ID})
		fs.devices[peer.ID] = []models.DeviceFingerprintLog{
			{ID: uuid.New(), UserID: peer.ID, Fingerprint: "fp-alpha", SeenAt: fixedNow().AddDate(0, 0, -1)},
		}
	}

	a := newFraudAnalyzer(fs)
	report, err := a.CalculateNetworkTrustScore(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("CalculateNetworkTrustScore: %v", err)
	}

	if report.RiskLevel != models.RiskHigh {
		t.Errorf("risk = %q, want %q", report.RiskLevel, models.RiskHigh)
	}
	if !report.ActionRequired {
		t.Error("critical finding must require action")
	}
	if len(fs.alertsOfType("fraud_critical")) != 1 {
		t.Errorf("fraud_critical alerts = %d, want 1", len(fs.alertsOfType("fraud_critical")))
	}
	if !fs.users[user.ID].ActionRequired {
		t.Error("action flag not persisted on user")
	}
}

func TestCleanUserScoresNeutral(t *testing.T) {
	fs := newFakeStore()
	user := fs.addUser(&models.User{
		DisplayName: "Jon",
		Email:       "jon@example.com",
		CreatedAt:   fixedNow().AddDate(0, 0, -200),
	})

	a := newFraudAnalyzer(fs)
	report, err := a.CalculateNetworkTrustScore(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("CalculateNetworkTrustScore: %v", err)
	}

	// No ratings: neutral 2.5-star base on the 10-point scale.
	if !almostEqual(report.Score, 5.0) {
		t.Errorf("score = %v, want 5.0", report.Score)
	}
	if report.RiskLevel != models.RiskLow {
		t.Errorf("risk = %q, want %q", report.RiskLevel, models.RiskLow)
	}
	if len(report.Flags) != 0 {
		t.Errorf("flags = %v, want none", report.Flags)
	}
	if report.ActionRequired {
		t.Error("clean user must not require action")
	}
}

func TestRatingVelocityFlagsYoungAccount(t *testing.T) {
	fs := newFakeStore()
	user := fs.addUser(&models.User{
		DisplayName: "Kim",
		Email:       "kim@example.com",
		CreatedAt:   fixedNow().AddDate(0, 0, -3),
	})
	for i := 0; i < 10; i++ {
		fs.ratings = append(fs.ratings, models.RatingEdge{
			ID: uuid.New(), RaterID: uuid.New(), RatedID: user.ID, Value: 5,
			CreatedAt: fixedNow().Add(-time.Hour),
		})
	}

	a := newFraudAnalyzer(fs)
	result := a.detectRatingVelocity(context.Background(), user)
	if !result.Suspicious {
		t.Fatal("10 ratings in 3 days should be suspicious")
	}
	if result.Critical {
		t.Error("velocity findings are not critical on their own")
	}
}

func TestAccountClusterDetection(t *testing.T) {
	fs := newFakeStore()
	user := fs.addUser(&models.User{
		DisplayName: "Lia",
		Email:       "lia@example.com",
		CreatedAt:   fixedNow().AddDate(0, 0, -60),
	})
	// Four peers registered within days of the user, one long before.
	for i := 0; i < 4; i++ {
		peer := fs.addUser(&models.User{
			DisplayName: "Peer",
			Email:       uuid.NewString() + "@example.com",
			CreatedAt:   user.CreatedAt.Add(48 * time.Hour),
		})
		fs.addConnection(&models.Connection{SenderID: user.ID, ReceiverID: peer.ID})
	}
	old := fs.addUser(&models.User{
		DisplayName: "Old",
		Email:       "old@example.com",
		CreatedAt:   user.CreatedAt.AddDate(0, 0, -300),
	})
	fs.addConnection(&models.Connection{SenderID: user.ID, ReceiverID: old.ID})

	a := newFraudAnalyzer(fs)
	result := a.detectAccountClusters(context.Background(), user)
	if !result.Suspicious {
		t.Fatal("4 of 5 connections inside the registration window should be suspicious")
	}
}

// failingRatingsStore simulates the ratings table being unavailable.
type failingRatingsStore struct {
	*fakeStore
}

func (failingRatingsStore) GetRatingsFor(_ context.Context, _ uuid.UUID) ([]models.RatingEdge, error) {
	return nil, errors.New("ratings table unavailable")
}

func TestDetectorDegradesOnDataError(t *testing.T) {
	fs := newFakeStore()
	user := fs.addUser(&models.User{
		DisplayName: "Mia",
		Email:       "mia@example.com",
		CreatedAt:   fixedNow().AddDate(0, 0, -200),
	})

	a := NewNetworkFraudAnalyzer(failingRatingsStore{fs}, config.DefaultThresholds())
	a.now = fixedNow

	result := a.detectCircularRatings(context.Background(), user.ID)
	if result.Suspicious {
		t.Fatal("data error must degrade to not suspicious")
	}

	// The full run still completes on the remaining detectors.
	report, err := a.CalculateNetworkTrustScore(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("CalculateNetworkTrustScore: %v", err)
	}
	if report.RiskLevel != models.RiskLow {
		t.Errorf("risk = %q, want %q", report.RiskLevel, models.RiskLow)
	}
}
