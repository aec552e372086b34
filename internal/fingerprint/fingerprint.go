// Package fingerprint models device fingerprints and detects changes between
// them.
//
// A fingerprint is an immutable snapshot of browser/host characteristics
// collected upstream. The detector compares a new snapshot against the last
// stored one using a fixed weighted component table, and the pattern analyzer
// inspects the change set for composite adversarial signatures (spoofing,
// selective manipulation, impossible hardware deltas, automation).
package fingerprint

import (
	"fmt"
	"strings"
	"time"
)

// Battery is the optional battery snapshot. Level drift during a session is
// normal; only the charging flag participates in change detection.
type Battery struct {
	Charging bool    `json:"charging"`
	Level    float64 `json:"level"`
}

// DeviceFingerprint is an immutable snapshot of one device/browser session.
// Optional hardware signals (DeviceMemory, CPUClass, Battery) distinguish
// "absent" from "present but equal" via pointers.
type DeviceFingerprint struct {
	DeviceID            string    `json:"deviceId"`
	UserAgent           string    `json:"userAgent"`
	ScreenResolution    string    `json:"screenResolution"`
	ColorDepth          int       `json:"colorDepth"`
	Timezone            string    `json:"timezone"`
	Languages           []string  `json:"languages"`
	Platform            string    `json:"platform"`
	IPAddress           string    `json:"ipAddress"`
	NetworkType         string    `json:"networkType"`
	HardwareConcurrency int       `json:"hardwareConcurrency"`
	MaxTouchPoints      int       `json:"maxTouchPoints"`
	CanvasHash          string    `json:"canvasHash"`
	WebGLHash           string    `json:"webglHash"`
	Fonts               []string  `json:"fonts"`
	Plugins             []string  `json:"plugins"`
	LocalStorage        bool      `json:"localStorage"`
	SessionStorage      bool      `json:"sessionStorage"`
	IndexedDB           bool      `json:"indexedDB"`
	PixelRatio          float64   `json:"pixelRatio"`
	TouchSupport        bool      `json:"touchSupport"`
	AudioHash           string    `json:"audioHash"`
	WebRTCHash          string    `json:"webrtcHash"`
	DeviceMemory        *int      `json:"deviceMemory,omitempty"`
	CPUClass            *string   `json:"cpuClass,omitempty"`
	Battery             *Battery  `json:"battery,omitempty"`
	CapturedAt          time.Time `json:"capturedAt"`
}

// Sentinel hash values emitted by collectors when a probe fails. These are
// legitimate fingerprint values (a device that blocks canvas reads always
// blocks them), but they feed the automation indicators.
const (
	NoCanvas = "no-canvas"
	NoWebGL  = "no-webgl"
)

// ValidationError rejects a malformed fingerprint before scoring.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid fingerprint %s: %s", e.Field, e.Message)
}

// Validate checks the input contract: every field is required except the
// optional hardware signals. A missing field is rejected, never defaulted.
func (fp *DeviceFingerprint) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"deviceId", fp.DeviceID},
		{"userAgent", fp.UserAgent},
		{"screenResolution", fp.ScreenResolution},
		{"timezone", fp.Timezone},
		{"platform", fp.Platform},
		{"ipAddress", fp.IPAddress},
		{"networkType", fp.NetworkType},
		{"canvasHash", fp.CanvasHash},
		{"webglHash", fp.WebGLHash},
		{"audioHash", fp.AudioHash},
		{"webrtcHash", fp.WebRTCHash},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: "required"}
		}
	}
	if fp.ColorDepth <= 0 {
		return &ValidationError{Field: "colorDepth", Message: "must be positive"}
	}
	if fp.HardwareConcurrency <= 0 {
		return &ValidationError{Field: "hardwareConcurrency", Message: "must be positive"}
	}
	if fp.MaxTouchPoints < 0 {
		return &ValidationError{Field: "maxTouchPoints", Message: "must be >= 0"}
	}
	if fp.PixelRatio <= 0 {
		return &ValidationError{Field: "pixelRatio", Message: "must be positive"}
	}
	if len(fp.Languages) == 0 {
		return &ValidationError{Field: "languages", Message: "at least one language required"}
	}
	if fp.Fonts == nil {
		return &ValidationError{Field: "fonts", Message: "required (may be empty)"}
	}
	if fp.Plugins == nil {
		return &ValidationError{Field: "plugins", Message: "required (may be empty)"}
	}
	if fp.CapturedAt.IsZero() {
		return &ValidationError{Field: "capturedAt", Message: "required"}
	}
	return nil
}
