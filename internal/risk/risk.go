// Package risk implements weighted-rule fraud scoring for financial
// transactions.
//
// Every transaction is evaluated against independent weighted rules (amount,
// time of day, device trust, agent trust, location, PIN attempts, merchant
// category). Rule contributions are additive and the final score is clamped
// to [0, 1]. Typology matchers run alongside the score and emit named fraud
// patterns with fixed confidences. Scoring is deterministic unless an
// explicit jitter source is injected.
package risk

import (
	"context"
	"time"
)

// Level is the ordinal risk classification derived from a numeric score.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Rank returns the position of the level in the LOW..CRITICAL order.
// Unknown levels rank below LOW.
func (l Level) Rank() int {
	switch l {
	case LevelLow:
		return 0
	case LevelMedium:
		return 1
	case LevelHigh:
		return 2
	case LevelCritical:
		return 3
	default:
		return -1
	}
}

// Transaction score thresholds. Totally ordered and non-overlapping:
// score >= Critical => CRITICAL, >= High => HIGH, >= Medium => MEDIUM,
// otherwise LOW.
const (
	ThresholdMedium   = 0.35
	ThresholdHigh     = 0.65
	ThresholdCritical = 0.85

	// FraudThreshold sits between the HIGH and CRITICAL bands: a
	// transaction can classify HIGH without being marked fraudulent.
	FraudThreshold = 0.7
)

// LevelForScore maps a clamped [0,1] score to its classification band.
func LevelForScore(score float64) Level {
	switch {
	case score >= ThresholdCritical:
		return LevelCritical
	case score >= ThresholdHigh:
		return LevelHigh
	case score >= ThresholdMedium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Clamp01 bounds a score to [0, 1]. Rule sums routinely exceed 1 before
// classification.
func Clamp01(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < 0.0 {
		return 0.0
	}
	return v
}

// Factor is one contributing signal in a score.
type Factor struct {
	Label       string  `json:"label"`
	Impact      float64 `json:"impact"`
	Explanation string  `json:"explanation"`
}

// Prediction is the fraud verdict for a single transaction.
type Prediction struct {
	ID               string    `json:"id"`
	TransactionID    string    `json:"transactionId"`
	RiskScore        float64   `json:"riskScore"`
	RiskLevel        Level     `json:"riskLevel"`
	IsFraudulent     bool      `json:"isFraudulent"`
	Confidence       float64   `json:"confidence"`
	RiskFactors      []Factor  `json:"riskFactors"`
	DetectedPatterns []Pattern `json:"detectedPatterns"`
	EvaluatedAt      time.Time `json:"evaluatedAt"`
}

// Store persists fraud predictions for audit trail.
type Store interface {
	Record(ctx context.Context, p *Prediction) error
	ListRecent(ctx context.Context, limit int) ([]*Prediction, error)
}
