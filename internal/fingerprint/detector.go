package fingerprint

import (
	"fmt"
	"strings"

	"github.com/sentrasec/sentra/internal/risk"
)

// Component identifies one weighted fingerprint component.
type Component string

const (
	CompDeviceID            Component = "deviceId"
	CompUserAgent           Component = "userAgent"
	CompPlatform            Component = "platform"
	CompCanvas              Component = "canvas"
	CompWebGL               Component = "webgl"
	CompIPAddress           Component = "ipAddress"
	CompTimezone            Component = "timezone"
	CompLanguage            Component = "language"
	CompHardwareConcurrency Component = "hardwareConcurrency"
	CompDeviceMemory        Component = "deviceMemory"
	CompPlugins             Component = "plugins"
	CompFonts               Component = "fonts"
	CompAudioContext        Component = "audioContext"
	CompWebRTC              Component = "webRTC"
	CompBattery             Component = "battery"
	CompScreenResolution    Component = "screenResolution"
)

// Change score thresholds: >= 100 CRITICAL, >= 60 HIGH, >= 30 MEDIUM.
const (
	ChangeThresholdMedium   = 30.0
	ChangeThresholdHigh     = 60.0
	ChangeThresholdCritical = 100.0
)

// ChangeDetail records what a changed component looked like before and after.
type ChangeDetail struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
	Weight   int    `json:"weight"`
}

// ChangeAnalysis is the result of comparing two fingerprints. Computed fresh
// per call; never persisted.
type ChangeAnalysis struct {
	ChangeScore           float64                    `json:"changeScore"`
	ChangedComponents     []Component                `json:"changedComponents"`
	Details               map[Component]ChangeDetail `json:"details"`
	RiskLevel             risk.Level                 `json:"riskLevel"`
	SuspiciousPatterns    []PatternType              `json:"suspiciousPatterns"`
	HasSignificantChanges bool                       `json:"hasSignificantChanges"`
	FirstSeen             bool                       `json:"firstSeen"`
}

// Changed reports whether the named component differed.
func (a *ChangeAnalysis) Changed(c Component) bool {
	_, ok := a.Details[c]
	return ok
}

// comparator applies one component's equality rule and renders both values
// for the change detail.
type comparator func(prev, cur *DeviceFingerprint) (changed bool, prevVal, curVal string)

// weightedComponent is one row of the fixed component table. The table is
// enumerated at compile time; there is no reflective field walking.
type weightedComponent struct {
	id      Component
	weight  int
	compare comparator
}

var componentTable = []weightedComponent{
	{CompDeviceID, 50, strCmp(func(fp *DeviceFingerprint) string { return fp.DeviceID })},
	{CompUserAgent, 30, strCmp(func(fp *DeviceFingerprint) string { return fp.UserAgent })},
	{CompPlatform, 35, strCmp(func(fp *DeviceFingerprint) string { return fp.Platform })},
	{CompCanvas, 25, strCmp(func(fp *DeviceFingerprint) string { return fp.CanvasHash })},
	{CompWebGL, 25, strCmp(func(fp *DeviceFingerprint) string { return fp.WebGLHash })},
	{CompIPAddress, 15, compareIP},
	{CompTimezone, 10, strCmp(func(fp *DeviceFingerprint) string { return fp.Timezone })},
	{CompLanguage, 5, sliceCmp(func(fp *DeviceFingerprint) []string { return fp.Languages })},
	{CompHardwareConcurrency, 20, intCmp(func(fp *DeviceFingerprint) int { return fp.HardwareConcurrency })},
	{CompDeviceMemory, 15, compareDeviceMemory},
	{CompPlugins, 10, sliceCmp(func(fp *DeviceFingerprint) []string { return fp.Plugins })},
	{CompFonts, 8, sliceCmp(func(fp *DeviceFingerprint) []string { return fp.Fonts })},
	{CompAudioContext, 15, strCmp(func(fp *DeviceFingerprint) string { return fp.AudioHash })},
	{CompWebRTC, 10, strCmp(func(fp *DeviceFingerprint) string { return fp.WebRTCHash })},
	{CompBattery, 5, compareBattery},
	{CompScreenResolution, 20, strCmp(func(fp *DeviceFingerprint) string { return fp.ScreenResolution })},
}

// Detect compares a new fingerprint against the previous one. A nil previous
// fingerprint means first sighting: score 0, LOW, no penalty. Pure function;
// persisting the new fingerprint is the caller's job.
func Detect(prev, cur *DeviceFingerprint) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		Details:   make(map[Component]ChangeDetail),
		RiskLevel: risk.LevelLow,
	}
	if prev == nil {
		analysis.FirstSeen = true
		return analysis
	}

	for _, wc := range componentTable {
		changed, prevVal, curVal := wc.compare(prev, cur)
		if !changed {
			continue
		}
		analysis.ChangeScore += float64(wc.weight)
		analysis.ChangedComponents = append(analysis.ChangedComponents, wc.id)
		analysis.Details[wc.id] = ChangeDetail{
			Previous: prevVal,
			Current:  curVal,
			Weight:   wc.weight,
		}
	}

	bonus, patterns := AnalyzePatterns(prev, cur, analysis)
	analysis.ChangeScore += bonus
	analysis.SuspiciousPatterns = patterns

	analysis.RiskLevel = LevelForChangeScore(analysis.ChangeScore)
	analysis.HasSignificantChanges = analysis.ChangeScore >= ChangeThresholdMedium
	return analysis
}

// LevelForChangeScore maps a change score to its classification band.
func LevelForChangeScore(score float64) risk.Level {
	switch {
	case score >= ChangeThresholdCritical:
		return risk.LevelCritical
	case score >= ChangeThresholdHigh:
		return risk.LevelHigh
	case score >= ChangeThresholdMedium:
		return risk.LevelMedium
	default:
		return risk.LevelLow
	}
}

// ---------------------------------------------------------------------------
// Comparison rules
// ---------------------------------------------------------------------------

func strCmp(get func(*DeviceFingerprint) string) comparator {
	return func(prev, cur *DeviceFingerprint) (bool, string, string) {
		p, c := get(prev), get(cur)
		return p != c, p, c
	}
}

func intCmp(get func(*DeviceFingerprint) int) comparator {
	return func(prev, cur *DeviceFingerprint) (bool, string, string) {
		p, c := get(prev), get(cur)
		return p != c, fmt.Sprintf("%d", p), fmt.Sprintf("%d", c)
	}
}

// sliceCmp: unequal if lengths differ or any positional element differs.
func sliceCmp(get func(*DeviceFingerprint) []string) comparator {
	return func(prev, cur *DeviceFingerprint) (bool, string, string) {
		p, c := get(prev), get(cur)
		changed := len(p) != len(c)
		if !changed {
			for i := range p {
				if p[i] != c[i] {
					changed = true
					break
				}
			}
		}
		return changed, strings.Join(p, ","), strings.Join(c, ",")
	}
}

// compareIP compares at /24 subnet granularity: an address change within the
// same first three octets is normal DHCP churn, not a device change.
// Non-IPv4 addresses fall back to strict comparison.
func compareIP(prev, cur *DeviceFingerprint) (bool, string, string) {
	return ipSubnet(prev.IPAddress) != ipSubnet(cur.IPAddress), prev.IPAddress, cur.IPAddress
}

func ipSubnet(addr string) string {
	parts := strings.Split(addr, ".")
	if len(parts) != 4 {
		return addr
	}
	return strings.Join(parts[:3], ".")
}

// compareBattery: only the charging flag counts. Level drift is expected and
// absence on either side is not a change in itself unless presence flipped.
func compareBattery(prev, cur *DeviceFingerprint) (bool, string, string) {
	render := func(b *Battery) string {
		if b == nil {
			return "absent"
		}
		return fmt.Sprintf("charging=%t", b.Charging)
	}
	switch {
	case prev.Battery == nil && cur.Battery == nil:
		return false, render(prev.Battery), render(cur.Battery)
	case prev.Battery == nil || cur.Battery == nil:
		return true, render(prev.Battery), render(cur.Battery)
	default:
		return prev.Battery.Charging != cur.Battery.Charging,
			render(prev.Battery), render(cur.Battery)
	}
}

func compareDeviceMemory(prev, cur *DeviceFingerprint) (bool, string, string) {
	render := func(m *int) string {
		if m == nil {
			return "absent"
		}
		return fmt.Sprintf("%d", *m)
	}
	switch {
	case prev.DeviceMemory == nil && cur.DeviceMemory == nil:
		return false, render(prev.DeviceMemory), render(cur.DeviceMemory)
	case prev.DeviceMemory == nil || cur.DeviceMemory == nil:
		return true, render(prev.DeviceMemory), render(cur.DeviceMemory)
	default:
		return *prev.DeviceMemory != *cur.DeviceMemory,
			render(prev.DeviceMemory), render(cur.DeviceMemory)
	}
}
