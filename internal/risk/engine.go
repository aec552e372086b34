package risk

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/sentrasec/sentra/internal/idgen"
)

// Rule weights. Each rule contributes independently when triggered; the sum
// is clamped to [0, 1] before classification.
const (
	weightAmountHigh     = 0.5 // amount > 2000
	weightAmountElevated = 0.3 // amount > 1000
	weightDeadOfNight    = 0.3 // hour in [1, 4]
	weightOffHours       = 0.2 // hour >= 23 or <= 5
	weightNewDevice      = 0.4
	weightLowDeviceTrust = 0.3 // device trust < 0.3
	weightLowAgentTrust  = 0.4 // agent trust < 0.3
	weightLocationChange = 0.3
	weightLocationVague  = 0.2 // location contains "unknown"
	weightPINAttempts    = 0.4 // more than 2 attempts
	weightRiskyMerchant  = 0.3

	amountHighLimit     = 2000.0
	amountElevatedLimit = 1000.0
	lowTrustLimit       = 0.3
	pinAttemptLimit     = 2
)

// riskyMerchants are merchant categories scored as inherently risky.
var riskyMerchants = map[string]bool{
	"unknown":    true,
	"investment": true,
	"lottery":    true,
}

// Jitter supplies a small symmetric calibration offset added to the raw
// score before clamping. Nil disables it; production scoring should stay
// deterministic.
type Jitter interface {
	Offset() float64
}

// Engine scores transactions with the fixed weighted rule set.
type Engine struct {
	store  Store
	jitter Jitter
}

// NewEngine creates a fraud scoring engine backed by the given audit store.
// The store may be nil; predictions are then not recorded.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// WithJitter injects a calibration jitter source. Off by default.
func (e *Engine) WithJitter(j Jitter) *Engine {
	e.jitter = j
	return e
}

// Predict evaluates a transaction and returns a fraud prediction.
// Pure in-memory computation; the audit write is asynchronous best-effort.
func (e *Engine) Predict(ctx context.Context, tx *Transaction) (*Prediction, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	var factors []Factor
	raw := 0.0
	for _, rule := range []func(*Transaction) []Factor{
		amountRule,
		timeOfDayRule,
		deviceRule,
		agentRule,
		locationRule,
		pinAttemptsRule,
		merchantRule,
	} {
		for _, f := range rule(tx) {
			raw += f.Impact
			factors = append(factors, f)
		}
	}

	if e.jitter != nil {
		raw += e.jitter.Offset()
	}
	score := Clamp01(raw)

	p := &Prediction{
		ID:               idgen.WithPrefix("pred_"),
		TransactionID:    tx.ID,
		RiskScore:        round3(score),
		RiskLevel:        LevelForScore(score),
		IsFraudulent:     score >= FraudThreshold,
		Confidence:       round3(confidence(score, len(factors))),
		RiskFactors:      factors,
		DetectedPatterns: MatchPatterns(tx),
		EvaluatedAt:      time.Now(),
	}

	if e.store != nil {
		go func() {
			_ = e.store.Record(context.Background(), p)
		}()
	}

	return p, nil
}

// confidence grows with score extremity and with corroborating factors:
// (|score - 0.5| * 2 + min(factorCount/5, 1)) / 2, clamped to [0, 1].
func confidence(score float64, factorCount int) float64 {
	extremity := math.Abs(score-0.5) * 2
	corroboration := math.Min(float64(factorCount)/5.0, 1.0)
	return Clamp01((extremity + corroboration) / 2)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// amountRule: large transfers carry risk on their own.
func amountRule(tx *Transaction) []Factor {
	switch {
	case tx.Amount > amountHighLimit:
		return []Factor{{
			Label:       "high_amount",
			Impact:      weightAmountHigh,
			Explanation: "amount exceeds the high-value limit",
		}}
	case tx.Amount > amountElevatedLimit:
		return []Factor{{
			Label:       "elevated_amount",
			Impact:      weightAmountElevated,
			Explanation: "amount exceeds the elevated-value limit",
		}}
	}
	return nil
}

// timeOfDayRule: the 01:00-04:00 window is the riskiest; the broader
// off-hours band (23:00-05:00) scores lower.
func timeOfDayRule(tx *Transaction) []Factor {
	hour := tx.Timestamp.Hour()
	if hour >= 1 && hour <= 4 {
		return []Factor{{
			Label:       "dead_of_night",
			Impact:      weightDeadOfNight,
			Explanation: "transaction initiated between 01:00 and 04:00",
		}}
	}
	if hour >= 23 || hour <= 5 {
		return []Factor{{
			Label:       "off_hours",
			Impact:      weightOffHours,
			Explanation: "transaction initiated outside normal hours",
		}}
	}
	return nil
}

func deviceRule(tx *Transaction) []Factor {
	var out []Factor
	if tx.Device.IsNewDevice {
		out = append(out, Factor{
			Label:       "new_device",
			Impact:      weightNewDevice,
			Explanation: "transaction from a device not seen before",
		})
	}
	if tx.Device.TrustScore < lowTrustLimit {
		out = append(out, Factor{
			Label:       "low_device_trust",
			Impact:      weightLowDeviceTrust,
			Explanation: "device trust score below 0.3",
		})
	}
	return out
}

func agentRule(tx *Transaction) []Factor {
	if tx.Agent.TrustScore < lowTrustLimit {
		return []Factor{{
			Label:       "low_agent_trust",
			Impact:      weightLowAgentTrust,
			Explanation: "handling agent trust score below 0.3",
		}}
	}
	return nil
}

func locationRule(tx *Transaction) []Factor {
	var out []Factor
	if tx.Location != tx.Profile.LastKnownLocation {
		out = append(out, Factor{
			Label:       "location_change",
			Impact:      weightLocationChange,
			Explanation: "location differs from the user's last known location",
		})
	}
	if strings.Contains(strings.ToLower(tx.Location), "unknown") {
		out = append(out, Factor{
			Label:       "unresolved_location",
			Impact:      weightLocationVague,
			Explanation: "transaction location could not be resolved",
		})
	}
	return out
}

func pinAttemptsRule(tx *Transaction) []Factor {
	if tx.PINAttempts > pinAttemptLimit {
		return []Factor{{
			Label:       "repeated_pin_attempts",
			Impact:      weightPINAttempts,
			Explanation: "more than two PIN attempts before authorization",
		}}
	}
	return nil
}

func merchantRule(tx *Transaction) []Factor {
	if riskyMerchants[strings.ToLower(tx.MerchantCategory)] {
		return []Factor{{
			Label:       "risky_merchant_category",
			Impact:      weightRiskyMerchant,
			Explanation: "merchant category is in the high-risk set",
		}}
	}
	return nil
}
