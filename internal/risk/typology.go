package risk

// PatternType names a fraud typology (a known modus operandi).
type PatternType string

const (
	PatternSIMSwap           PatternType = "SIM_SWAP_FRAUD"
	PatternSocialEngineering PatternType = "SOCIAL_ENGINEERING"
	PatternInvestmentScam    PatternType = "INVESTMENT_SCAM"
	PatternAgentFraud        PatternType = "AGENT_FRAUD"
	PatternAccountTakeover   PatternType = "ACCOUNT_TAKEOVER"
)

// Pattern is a named typology match with a fixed confidence.
type Pattern struct {
	Type        PatternType `json:"type"`
	Confidence  float64     `json:"confidence"`
	Description string      `json:"description"`
	Indicators  []string    `json:"indicators"`
}

// matcher evaluates one typology's indicator conjunction against a
// transaction. Returns nil when the conjunction does not hold.
type matcher func(tx *Transaction) *Pattern

// typologyMatchers is the fixed registry. Matchers are independent of the
// weighted score and of each other; zero or more may fire per transaction.
var typologyMatchers = []matcher{
	matchSIMSwap,
	matchSocialEngineering,
	matchInvestmentScam,
	matchAgentFraud,
	matchAccountTakeover,
}

// MatchPatterns runs every typology matcher against the transaction.
func MatchPatterns(tx *Transaction) []Pattern {
	var out []Pattern
	for _, m := range typologyMatchers {
		if p := m(tx); p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// matchSIMSwap: an attacker who ported the victim's number shows up as a new
// device in a new location moving real money.
func matchSIMSwap(tx *Transaction) *Pattern {
	if tx.Device.IsNewDevice &&
		tx.Location != tx.Profile.LastKnownLocation &&
		tx.Amount > 500 {
		return &Pattern{
			Type:        PatternSIMSwap,
			Confidence:  0.85,
			Description: "new device in a new location transferring a significant amount",
			Indicators:  []string{"new_device", "location_change", "amount_over_500"},
		}
	}
	return nil
}

// matchSocialEngineering: a coached victim fumbles the PIN on a large
// off-hours transfer.
func matchSocialEngineering(tx *Transaction) *Pattern {
	hour := tx.Timestamp.Hour()
	if tx.PINAttempts > 2 &&
		tx.Amount > 1000 &&
		(hour >= 23 || hour <= 5) {
		return &Pattern{
			Type:        PatternSocialEngineering,
			Confidence:  0.75,
			Description: "repeated PIN attempts on a large off-hours transfer",
			Indicators:  []string{"repeated_pin_attempts", "amount_over_1000", "off_hours"},
		}
	}
	return nil
}

func matchInvestmentScam(tx *Transaction) *Pattern {
	if tx.MerchantCategory == "investment" && tx.Amount > 1000 {
		return &Pattern{
			Type:        PatternInvestmentScam,
			Confidence:  0.8,
			Description: "large transfer to an investment-category recipient",
			Indicators:  []string{"investment_merchant", "amount_over_1000"},
		}
	}
	return nil
}

func matchAgentFraud(tx *Transaction) *Pattern {
	if tx.Agent.TrustScore < lowTrustLimit && tx.Amount > 500 {
		return &Pattern{
			Type:        PatternAgentFraud,
			Confidence:  0.7,
			Description: "significant transfer handled by a low-trust agent",
			Indicators:  []string{"low_agent_trust", "amount_over_500"},
		}
	}
	return nil
}

// matchAccountTakeover: new device, failed PIN attempts, and a location
// change together indicate the owner is no longer in control.
func matchAccountTakeover(tx *Transaction) *Pattern {
	if tx.Device.IsNewDevice &&
		tx.PINAttempts > 2 &&
		tx.Location != tx.Profile.LastKnownLocation {
		return &Pattern{
			Type:        PatternAccountTakeover,
			Confidence:  0.9,
			Description: "new device with repeated PIN attempts from a new location",
			Indicators:  []string{"new_device", "repeated_pin_attempts", "location_change"},
		}
	}
	return nil
}
