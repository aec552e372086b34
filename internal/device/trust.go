package device

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sentrasec/sentra/internal/fingerprint"
	"github.com/sentrasec/sentra/internal/risk"
	"github.com/sentrasec/sentra/internal/syncutil"
)

// Trust scoring constants.
const (
	// NeutralTrust is returned on a user's first sighting.
	NeutralTrust = 0.5

	// TrustedThreshold gates the Trusted flag.
	TrustedThreshold = 0.7

	// changeScoreDivisor converts a change score into a trust penalty:
	// a score of 200 wipes out all trust on its own.
	changeScoreDivisor = 200.0

	// patternPenalty applies once if any suspicious pattern fired.
	patternPenalty = 0.3

	// consistencyWeight scales the historical-consistency bonus.
	consistencyWeight = 0.2

	// consistencyRatio: a component is consistent when its most frequent
	// value covers at least this share of the history.
	consistencyRatio = 0.8
)

// Trust is the scalar confidence that a device belongs to its claimed user.
type Trust struct {
	Value       float64 `json:"value"`
	Consistency float64 `json:"consistency"`
	Trusted     bool    `json:"trusted"`
	FirstSeen   bool    `json:"firstSeen"`
}

// TrustScorer combines change detection, pattern analysis, and historical
// consistency into a per-user device trust score.
type TrustScorer struct {
	store  HistoryStore
	locks  syncutil.KeyedMutex
	logger *slog.Logger
}

// NewTrustScorer creates a trust scorer over the given history store.
func NewTrustScorer(store HistoryStore, logger *slog.Logger) *TrustScorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrustScorer{store: store, logger: logger}
}

// DetectChanges compares a fingerprint against the user's most recent stored
// fingerprint without touching history. First sighting yields a zero-score
// LOW analysis.
func (s *TrustScorer) DetectChanges(ctx context.Context, fp *fingerprint.DeviceFingerprint, userID string) (*fingerprint.ChangeAnalysis, error) {
	if err := fp.Validate(); err != nil {
		return nil, err
	}
	history, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", userID, err)
	}
	var prev *fingerprint.DeviceFingerprint
	if len(history) > 0 {
		prev = &history[len(history)-1]
	}
	return fingerprint.Detect(prev, fp), nil
}

// Score computes the device trust score for one fingerprint and appends it
// to the user's history. The read-compare-append sequence holds the user's
// lock so concurrent requests for the same user serialize; distinct users
// run in parallel.
func (s *TrustScorer) Score(ctx context.Context, fp *fingerprint.DeviceFingerprint, userID string) (*Trust, *fingerprint.ChangeAnalysis, error) {
	if err := fp.Validate(); err != nil {
		return nil, nil, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	history, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load history for %s: %w", userID, err)
	}

	if len(history) == 0 {
		if err := s.store.Append(ctx, userID, *fp); err != nil {
			return nil, nil, fmt.Errorf("append first fingerprint: %w", err)
		}
		analysis := fingerprint.Detect(nil, fp)
		return &Trust{Value: NeutralTrust, FirstSeen: true}, analysis, nil
	}

	prev := &history[len(history)-1]
	analysis := fingerprint.Detect(prev, fp)

	consistency := consistencyScore(history)
	value := 1.0 - analysis.ChangeScore/changeScoreDivisor + consistencyWeight*consistency
	if len(analysis.SuspiciousPatterns) > 0 {
		value -= patternPenalty
		s.logger.Warn("suspicious fingerprint patterns",
			"user_id", userID,
			"patterns", analysis.SuspiciousPatterns,
			"change_score", analysis.ChangeScore,
		)
	}
	value = risk.Clamp01(value)

	if err := s.store.Append(ctx, userID, *fp); err != nil {
		return nil, nil, fmt.Errorf("append fingerprint: %w", err)
	}

	return &Trust{
		Value:       value,
		Consistency: consistency,
		Trusted:     value >= TrustedThreshold,
	}, analysis, nil
}

// Reset clears a user's fingerprint history (privacy/reset operation).
func (s *TrustScorer) Reset(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()
	if err := s.store.Clear(ctx, userID); err != nil {
		return fmt.Errorf("reset history for %s: %w", userID, err)
	}
	s.logger.Info("device history cleared", "user_id", userID)
	return nil
}

// consistencyComponents are the 10 key components tracked for historical
// stability.
var consistencyComponents = []func(*fingerprint.DeviceFingerprint) string{
	func(fp *fingerprint.DeviceFingerprint) string { return fp.DeviceID },
	func(fp *fingerprint.DeviceFingerprint) string { return fp.UserAgent },
	func(fp *fingerprint.DeviceFingerprint) string { return fp.Platform },
	func(fp *fingerprint.DeviceFingerprint) string { return fp.ScreenResolution },
	func(fp *fingerprint.DeviceFingerprint) string { return fp.Timezone },
	func(fp *fingerprint.DeviceFingerprint) string { return strings.Join(fp.Languages, ",") },
	func(fp *fingerprint.DeviceFingerprint) string { return fp.CanvasHash },
	func(fp *fingerprint.DeviceFingerprint) string { return fp.WebGLHash },
	func(fp *fingerprint.DeviceFingerprint) string { return fp.AudioHash },
	func(fp *fingerprint.DeviceFingerprint) string { return fmt.Sprintf("%d", fp.HardwareConcurrency) },
}

// consistencyScore is the fraction of tracked components whose single most
// frequent value covers at least consistencyRatio of the history.
func consistencyScore(history []fingerprint.DeviceFingerprint) float64 {
	if len(history) == 0 {
		return 0
	}
	need := consistencyRatio * float64(len(history))
	consistent := 0
	for _, extract := range consistencyComponents {
		counts := make(map[string]int, len(history))
		top := 0
		for i := range history {
			v := extract(&history[i])
			counts[v]++
			if counts[v] > top {
				top = counts[v]
			}
		}
		if float64(top) >= need {
			consistent++
		}
	}
	return float64(consistent) / float64(len(consistencyComponents))
}
