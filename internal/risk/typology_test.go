package risk

import (
	"testing"
	"time"
)

func findPattern(patterns []Pattern, pt PatternType) *Pattern {
	for i := range patterns {
		if patterns[i].Type == pt {
			return &patterns[i]
		}
	}
	return nil
}

func TestSIMSwapPattern(t *testing.T) {
	tx := noonTx()
	tx.Amount = 800
	tx.Device.IsNewDevice = true
	tx.Location = "Mombasa, KE"

	p := findPattern(MatchPatterns(tx), PatternSIMSwap)
	if p == nil {
		t.Fatal("SIM swap pattern not matched")
	}
	if p.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", p.Confidence)
	}

	// Drop any one indicator and the conjunction no longer holds.
	tx.Amount = 500
	if findPattern(MatchPatterns(tx), PatternSIMSwap) != nil {
		t.Error("matched at amount boundary 500; conjunction requires amount > 500")
	}
}

func TestSocialEngineeringPattern(t *testing.T) {
	tx := noonTx()
	tx.Amount = 1500
	tx.PINAttempts = 3
	tx.Timestamp = time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)

	p := findPattern(MatchPatterns(tx), PatternSocialEngineering)
	if p == nil {
		t.Fatal("social engineering pattern not matched")
	}
	if p.Confidence != 0.75 {
		t.Errorf("confidence = %v, want 0.75", p.Confidence)
	}

	tx.Timestamp = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	if findPattern(MatchPatterns(tx), PatternSocialEngineering) != nil {
		t.Error("matched during business hours")
	}
}

func TestInvestmentScamPattern(t *testing.T) {
	tx := noonTx()
	tx.Amount = 1200
	tx.MerchantCategory = "investment"

	p := findPattern(MatchPatterns(tx), PatternInvestmentScam)
	if p == nil {
		t.Fatal("investment scam pattern not matched")
	}
	if p.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", p.Confidence)
	}

	tx.Amount = 900
	if findPattern(MatchPatterns(tx), PatternInvestmentScam) != nil {
		t.Error("matched below the amount threshold")
	}
}

func TestAgentFraudPattern(t *testing.T) {
	tx := noonTx()
	tx.Amount = 600
	tx.Agent.TrustScore = 0.2

	p := findPattern(MatchPatterns(tx), PatternAgentFraud)
	if p == nil {
		t.Fatal("agent fraud pattern not matched")
	}
	if p.Confidence != 0.7 {
		t.Errorf("confidence = %v, want 0.7", p.Confidence)
	}

	tx.Agent.TrustScore = 0.3
	if findPattern(MatchPatterns(tx), PatternAgentFraud) != nil {
		t.Error("matched at trust boundary 0.3; conjunction requires trust < 0.3")
	}
}

func TestAccountTakeoverPattern(t *testing.T) {
	tx := noonTx()
	tx.Device.IsNewDevice = true
	tx.PINAttempts = 4
	tx.Location = "Kisumu, KE"

	p := findPattern(MatchPatterns(tx), PatternAccountTakeover)
	if p == nil {
		t.Fatal("account takeover pattern not matched")
	}
	if p.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", p.Confidence)
	}
	if len(p.Indicators) != 3 {
		t.Errorf("indicators = %v, want three", p.Indicators)
	}
}

func TestMultiplePatternsCanFire(t *testing.T) {
	// A takeover scenario typically satisfies SIM swap too.
	tx := noonTx()
	tx.Amount = 2000
	tx.Device.IsNewDevice = true
	tx.PINAttempts = 3
	tx.Location = "Kisumu, KE"

	patterns := MatchPatterns(tx)
	if findPattern(patterns, PatternSIMSwap) == nil || findPattern(patterns, PatternAccountTakeover) == nil {
		t.Errorf("expected both SIM swap and account takeover, got %v", patterns)
	}
}

func TestNoPatternsOnBenignTransaction(t *testing.T) {
	if patterns := MatchPatterns(noonTx()); len(patterns) != 0 {
		t.Errorf("benign transaction matched %v", patterns)
	}
}
