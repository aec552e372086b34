package fingerprint

import (
	"strings"
	"time"
)

// PatternType tags one composite adversarial signature.
type PatternType string

const (
	PatternCompleteDeviceSpoofing   PatternType = "COMPLETE_DEVICE_SPOOFING"
	PatternFingerprintManipulation  PatternType = "FINGERPRINT_MANIPULATION"
	PatternImpossibleHardwareChange PatternType = "IMPOSSIBLE_HARDWARE_CHANGE"
	PatternRapidLocationChange      PatternType = "RAPID_LOCATION_CHANGE"
	PatternAutomationDetected       PatternType = "AUTOMATION_DETECTED"
)

// Bonus risk added to the change score per pattern.
const (
	bonusCompleteSpoofing   = 50.0
	bonusManipulation       = 25.0
	bonusImpossibleHardware = 30.0
	bonusRapidLocation      = 20.0
	bonusAutomation         = 15.0
)

// Automation sub-indicator weights. The pattern fires when their sum reaches
// automationTrigger.
const (
	automationHeadless    = 0.3 // no webgl and failed canvas read
	automationMinimalEnv  = 0.2 // zero plugins and under five fonts
	automationTouchClaim  = 0.3 // mobile user agent with zero touch points
	automationKnownAgents = 0.5 // HeadlessChrome, PhantomJS
	automationTrigger     = 0.7
)

// rapidLocationOffset is the timezone offset delta that, combined with an IP
// change, indicates physically implausible travel.
const rapidLocationOffset = 6 * time.Hour

// automationAgents are user-agent substrings of known automation frameworks.
var automationAgents = []string{"HeadlessChrome", "PhantomJS"}

// AnalyzePatterns inspects a fingerprint pair and its change set for
// composite adversarial signatures. Rules are evaluated independently and
// their bonuses are additive; multiple simultaneous attacks stack.
func AnalyzePatterns(prev, cur *DeviceFingerprint, analysis *ChangeAnalysis) (bonus float64, patterns []PatternType) {
	if p, b := completeSpoofing(analysis); p != "" {
		patterns, bonus = append(patterns, p), bonus+b
	}
	if p, b := fingerprintManipulation(analysis); p != "" {
		patterns, bonus = append(patterns, p), bonus+b
	}
	if p, b := impossibleHardware(analysis); p != "" {
		patterns, bonus = append(patterns, p), bonus+b
	}
	if p, b := rapidLocation(prev, cur, analysis); p != "" {
		patterns, bonus = append(patterns, p), bonus+b
	}
	if p, b := automation(cur); p != "" {
		patterns, bonus = append(patterns, p), bonus+b
	}
	return bonus, patterns
}

// completeSpoofing: four or more identity-bearing components changing at
// once is a wholesale device swap behind a claimed-stable session.
func completeSpoofing(a *ChangeAnalysis) (PatternType, float64) {
	identity := []Component{CompDeviceID, CompUserAgent, CompCanvas, CompWebGL, CompPlatform}
	n := 0
	for _, c := range identity {
		if a.Changed(c) {
			n++
		}
	}
	if n >= 4 {
		return PatternCompleteDeviceSpoofing, bonusCompleteSpoofing
	}
	return "", 0
}

// fingerprintManipulation: graphics/audio hashes rewritten while the user
// agent stays put. Honest browser updates change the user agent too.
func fingerprintManipulation(a *ChangeAnalysis) (PatternType, float64) {
	graphics := []Component{CompCanvas, CompWebGL, CompAudioContext}
	n := 0
	for _, c := range graphics {
		if a.Changed(c) {
			n++
		}
	}
	if n >= 2 && !a.Changed(CompUserAgent) {
		return PatternFingerprintManipulation, bonusManipulation
	}
	return "", 0
}

// impossibleHardware: physical hardware mutating under an unchanged device
// identifier cannot happen on a real device.
func impossibleHardware(a *ChangeAnalysis) (PatternType, float64) {
	hardware := []Component{CompScreenResolution, CompHardwareConcurrency, CompDeviceMemory}
	n := 0
	for _, c := range hardware {
		if a.Changed(c) {
			n++
		}
	}
	if n >= 2 && !a.Changed(CompDeviceID) {
		return PatternImpossibleHardwareChange, bonusImpossibleHardware
	}
	return "", 0
}

// rapidLocation: timezone and IP both moved, and the zone offsets are more
// than six hours apart.
func rapidLocation(prev, cur *DeviceFingerprint, a *ChangeAnalysis) (PatternType, float64) {
	if !a.Changed(CompTimezone) || !a.Changed(CompIPAddress) {
		return "", 0
	}
	delta := zoneOffsetDelta(prev.Timezone, cur.Timezone, cur.CapturedAt)
	if delta > rapidLocationOffset {
		return PatternRapidLocationChange, bonusRapidLocation
	}
	return "", 0
}

// zoneOffsetDelta returns the absolute UTC-offset difference between two
// IANA zone names at the given instant. Unparseable zones count as UTC so a
// bad zone string never triggers the rule on its own.
func zoneOffsetDelta(prevZone, curZone string, at time.Time) time.Duration {
	if at.IsZero() {
		at = time.Now()
	}
	prevOff := zoneOffset(prevZone, at)
	curOff := zoneOffset(curZone, at)
	delta := prevOff - curOff
	if delta < 0 {
		delta = -delta
	}
	return delta
}

func zoneOffset(name string, at time.Time) time.Duration {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return 0
	}
	_, offset := at.In(loc).Zone()
	return time.Duration(offset) * time.Second
}

// automation scores headless/bot indicators on the current fingerprint
// alone. Distinct sub-indicators are summed; crossing the trigger adds the
// automation bonus.
func automation(cur *DeviceFingerprint) (PatternType, float64) {
	score := 0.0

	canvasFailed := cur.CanvasHash == NoCanvas || cur.CanvasHash == ""
	if cur.WebGLHash == NoWebGL && canvasFailed {
		score += automationHeadless
	}
	if len(cur.Plugins) == 0 && len(cur.Fonts) < 5 {
		score += automationMinimalEnv
	}
	if strings.Contains(cur.UserAgent, "Mobile") && cur.MaxTouchPoints == 0 {
		score += automationTouchClaim
	}
	for _, agent := range automationAgents {
		if strings.Contains(cur.UserAgent, agent) {
			score += automationKnownAgents
			break
		}
	}

	if score >= automationTrigger {
		return PatternAutomationDetected, bonusAutomation
	}
	return "", 0
}
