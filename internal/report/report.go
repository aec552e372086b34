// Package report assembles device trust and transaction risk into final,
// explainable verdicts.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sentrasec/sentra/internal/device"
	"github.com/sentrasec/sentra/internal/fingerprint"
	"github.com/sentrasec/sentra/internal/metrics"
	"github.com/sentrasec/sentra/internal/risk"
)

// Recommended actions, in escalation order.
const (
	ActionAllow   = "ALLOW"
	ActionMonitor = "MONITOR_CLOSELY"
	ActionVerify  = "REQUIRE_ADDITIONAL_VERIFICATION"
	ActionBlock   = "BLOCK_TRANSACTION"
)

// Device trust bands used for recommendation escalation.
const (
	blockTrustLimit   = 0.3
	verifyTrustLimit  = 0.5
	monitorTrustLimit = device.TrustedThreshold
)

// Assessment is the terminal verdict combining device trust and transaction
// risk. Not persisted by this engine; the fraud prediction inside it is
// recorded by the risk engine's audit store.
type Assessment struct {
	RiskScore         float64        `json:"riskScore"`
	RiskLevel         risk.Level     `json:"riskLevel"`
	IsFraudulent      bool           `json:"isFraudulent"`
	Confidence        float64        `json:"confidence"`
	DetectedPatterns  []risk.Pattern `json:"detectedPatterns"`
	RecommendedAction string         `json:"recommendedAction"`
	Explanation       string         `json:"explanation"`
	DeviceTrust       float64        `json:"deviceTrust"`
	DeviceTrusted     bool           `json:"deviceTrusted"`
}

// DeviceReport is the standalone device analysis surface.
type DeviceReport struct {
	TrustScore      float64    `json:"trustScore"`
	RiskLevel       risk.Level `json:"riskLevel"`
	Recommendations []string   `json:"recommendations"`
	SecurityFlags   []string   `json:"securityFlags"`
}

// Assembler merges the trust scorer and the fraud engine into the verdict
// surface the rest of the application integrates against.
type Assembler struct {
	trust  *device.TrustScorer
	engine *risk.Engine
	logger *slog.Logger
}

// NewAssembler creates a report assembler.
func NewAssembler(trust *device.TrustScorer, engine *risk.Engine, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{trust: trust, engine: engine, logger: logger}
}

// Assess scores the device and the transaction and merges both into one
// recommendation. The device side appends the fingerprint to history, so both
// inputs are validated up front: a rejected request leaves history untouched.
func (a *Assembler) Assess(ctx context.Context, tx *risk.Transaction, fp *fingerprint.DeviceFingerprint, userID string) (*Assessment, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	trust, analysis, err := a.trust.Score(ctx, fp, userID)
	if err != nil {
		return nil, err
	}

	pred, err := a.engine.Predict(ctx, tx)
	if err != nil {
		return nil, err
	}

	action := recommend(trust.Value, pred.RiskLevel)
	out := &Assessment{
		RiskScore:         pred.RiskScore,
		RiskLevel:         pred.RiskLevel,
		IsFraudulent:      pred.IsFraudulent,
		Confidence:        pred.Confidence,
		DetectedPatterns:  pred.DetectedPatterns,
		RecommendedAction: action,
		Explanation:       explain(trust, analysis, pred),
		DeviceTrust:       trust.Value,
		DeviceTrusted:     trust.Trusted,
	}

	metrics.AssessmentsTotal.WithLabelValues(action).Inc()
	a.logger.Info("transaction assessed",
		"user_id", userID,
		"transaction_id", tx.ID,
		"risk_level", pred.RiskLevel,
		"device_trust", trust.Value,
		"action", action,
	)
	return out, nil
}

// DeviceAnalysis runs the device pipeline alone and renders the analyst
// report.
func (a *Assembler) DeviceAnalysis(ctx context.Context, fp *fingerprint.DeviceFingerprint, userID string) (*DeviceReport, error) {
	trust, analysis, err := a.trust.Score(ctx, fp, userID)
	if err != nil {
		return nil, err
	}

	report := &DeviceReport{
		TrustScore: trust.Value,
		RiskLevel:  analysis.RiskLevel,
	}
	for _, p := range analysis.SuspiciousPatterns {
		report.SecurityFlags = append(report.SecurityFlags, string(p))
	}
	for _, c := range analysis.ChangedComponents {
		report.SecurityFlags = append(report.SecurityFlags, fmt.Sprintf("changed:%s", c))
	}

	switch {
	case trust.FirstSeen:
		report.Recommendations = append(report.Recommendations,
			"first sighting of this user; verify identity through a secondary channel before high-value operations")
	case trust.Value < blockTrustLimit:
		report.Recommendations = append(report.Recommendations,
			"block transactions from this device until the user re-verifies",
			"invalidate active sessions for this user")
	case trust.Value < monitorTrustLimit:
		report.Recommendations = append(report.Recommendations,
			"require step-up authentication for sensitive operations",
			"monitor this device's next sessions closely")
	default:
		report.Recommendations = append(report.Recommendations,
			"no action required; device is consistent with history")
	}
	return report, nil
}

// recommend escalates monotonically: lower trust or higher transaction risk
// never yields a weaker action.
func recommend(trust float64, level risk.Level) string {
	switch {
	case trust < blockTrustLimit || level == risk.LevelCritical:
		return ActionBlock
	case trust < verifyTrustLimit || level == risk.LevelHigh:
		return ActionVerify
	case trust < monitorTrustLimit || level == risk.LevelMedium:
		return ActionMonitor
	default:
		return ActionAllow
	}
}

// explain concatenates the triggered factor labels and pattern names. It
// never re-derives scores.
func explain(trust *device.Trust, analysis *fingerprint.ChangeAnalysis, pred *risk.Prediction) string {
	var parts []string
	for _, f := range pred.RiskFactors {
		parts = append(parts, f.Label)
	}
	for _, p := range pred.DetectedPatterns {
		parts = append(parts, string(p.Type))
	}
	for _, p := range analysis.SuspiciousPatterns {
		parts = append(parts, string(p))
	}
	if len(parts) == 0 {
		if trust.FirstSeen {
			return "no risk factors triggered; first sighting of this device"
		}
		return "no risk factors triggered"
	}
	return "triggered: " + strings.Join(parts, ", ")
}
