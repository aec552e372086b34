package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrasec/sentra/internal/config"
	"github.com/sentrasec/sentra/internal/report"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(&config.Config{
		Port:     "8080",
		Env:      "development",
		LogLevel: "error",
		LogFmt:   "text",
	})
	require.NoError(t, err)
	return s
}

func fingerprintPayload() map[string]interface{} {
	return map[string]interface{}{
		"deviceId":            "dev-9c41",
		"userAgent":           "Mozilla/5.0 (X11; Linux x86_64) Chrome/122.0",
		"screenResolution":    "1920x1080",
		"colorDepth":          24,
		"timezone":            "Africa/Nairobi",
		"languages":           []string{"en-KE"},
		"platform":            "Linux x86_64",
		"ipAddress":           "10.0.0.9",
		"networkType":         "wifi",
		"hardwareConcurrency": 4,
		"maxTouchPoints":      0,
		"canvasHash":          "c4nv-01",
		"webglHash":           "wgl-02",
		"fonts":               []string{"Arial"},
		"plugins":             []string{},
		"localStorage":        true,
		"sessionStorage":      true,
		"indexedDB":           true,
		"pixelRatio":          1.0,
		"touchSupport":        false,
		"audioHash":           "aud-03",
		"webrtcHash":          "rtc-04",
		"capturedAt":          "2026-03-10T12:00:00Z",
	}
}

func transactionPayload() map[string]interface{} {
	return map[string]interface{}{
		"id":               "tx-3001",
		"amount":           40,
		"currency":         "KES",
		"timestamp":        "2026-03-10T12:05:00Z",
		"type":             "payment",
		"location":         "Nairobi, KE",
		"merchantCategory": "grocery",
		"agentInfo":        map[string]interface{}{"trustScore": 0.9},
		"deviceFingerprint": map[string]interface{}{
			"isNewDevice": false,
			"trustScore":  0.8,
		},
		"userProfile":  map[string]interface{}{"lastKnownLocation": "Nairobi, KE"},
		"networkTrust": 0.9,
		"pinAttempts":  1,
	}
}

func doJSON(t *testing.T, s *Server, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t)
	w := doJSON(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Healthy bool `json:"healthy"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Healthy)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestTrustScoreFirstSighting(t *testing.T) {
	s := testServer(t)
	w := doJSON(t, s, http.MethodPost, "/v1/devices/user-1/trust", fingerprintPayload())
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		TrustScore struct {
			Value     float64 `json:"value"`
			FirstSeen bool    `json:"firstSeen"`
		} `json:"trustScore"`
		Analysis struct {
			ChangeScore float64 `json:"changeScore"`
			RiskLevel   string  `json:"riskLevel"`
		} `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0.5, resp.TrustScore.Value)
	assert.True(t, resp.TrustScore.FirstSeen)
	assert.Equal(t, "LOW", resp.Analysis.RiskLevel)
}

func TestDetectChangesIsReadOnly(t *testing.T) {
	s := testServer(t)
	// Two read-only calls: the second must still report a first sighting.
	for i := 0; i < 2; i++ {
		w := doJSON(t, s, http.MethodPost, "/v1/devices/user-1/changes", fingerprintPayload())
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			FirstSeen bool `json:"firstSeen"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.FirstSeen, "call %d", i)
	}
}

func TestTrustScoreRejectsInvalidFingerprint(t *testing.T) {
	s := testServer(t)
	payload := fingerprintPayload()
	payload["deviceId"] = ""

	w := doJSON(t, s, http.MethodPost, "/v1/devices/user-1/trust", payload)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_failed")
}

func TestInvalidUserIDRejected(t *testing.T) {
	s := testServer(t)
	w := doJSON(t, s, http.MethodPost, "/v1/devices/%20%20/trust", fingerprintPayload())
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_user_id")
}

func TestResetHistory(t *testing.T) {
	s := testServer(t)
	require.Equal(t, http.StatusOK,
		doJSON(t, s, http.MethodPost, "/v1/devices/user-1/trust", fingerprintPayload()).Code)
	require.Equal(t, http.StatusOK,
		doJSON(t, s, http.MethodDelete, "/v1/devices/user-1/history", nil).Code)

	// History is gone: the next scoring is a first sighting again.
	w := doJSON(t, s, http.MethodPost, "/v1/devices/user-1/trust", fingerprintPayload())
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		TrustScore struct {
			FirstSeen bool `json:"firstSeen"`
		} `json:"trustScore"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.TrustScore.FirstSeen)
}

func TestPredictFraud(t *testing.T) {
	s := testServer(t)
	payload := transactionPayload()
	payload["amount"] = 2500
	payload["pinAttempts"] = 4
	payload["merchantCategory"] = "unknown"

	w := doJSON(t, s, http.MethodPost, "/v1/transactions/predict", payload)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		ID           string  `json:"id"`
		RiskScore    float64 `json:"riskScore"`
		RiskLevel    string  `json:"riskLevel"`
		IsFraudulent bool    `json:"isFraudulent"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.ID, "pred_")
	assert.Equal(t, 1.0, resp.RiskScore)
	assert.Equal(t, "CRITICAL", resp.RiskLevel)
	assert.True(t, resp.IsFraudulent)
}

func TestPredictFraudRejectsInvalidTransaction(t *testing.T) {
	s := testServer(t)
	payload := transactionPayload()
	payload["amount"] = -5

	w := doJSON(t, s, http.MethodPost, "/v1/transactions/predict", payload)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_failed")
}

func TestAssessEndpoint(t *testing.T) {
	s := testServer(t)
	w := doJSON(t, s, http.MethodPost, "/v1/assessments", map[string]interface{}{
		"userId":      "user-1",
		"fingerprint": fingerprintPayload(),
		"transaction": transactionPayload(),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		RecommendedAction string  `json:"recommendedAction"`
		DeviceTrust       float64 `json:"deviceTrust"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// First sighting carries neutral trust: monitor, never allow.
	assert.Equal(t, report.ActionMonitor, resp.RecommendedAction)
	assert.Equal(t, 0.5, resp.DeviceTrust)
}

func TestAssessRequiresUserID(t *testing.T) {
	s := testServer(t)
	w := doJSON(t, s, http.MethodPost, "/v1/assessments", map[string]interface{}{
		"fingerprint": fingerprintPayload(),
		"transaction": transactionPayload(),
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPredictions(t *testing.T) {
	s := testServer(t)
	require.Equal(t, http.StatusOK,
		doJSON(t, s, http.MethodPost, "/v1/transactions/predict", transactionPayload()).Code)

	// The audit write is asynchronous; wait for it to land.
	var count int
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w := doJSON(t, s, http.MethodGet, "/v1/predictions", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Predictions []json.RawMessage `json:"predictions"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		count = len(resp.Predictions)
		if count > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 1, count)
}

func TestListPredictionsRejectsBadLimit(t *testing.T) {
	s := testServer(t)
	for _, limit := range []string{"0", "-1", "501", "abc"} {
		w := doJSON(t, s, http.MethodGet, "/v1/predictions?limit="+limit, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit %s", limit)
	}
}

func TestDeviceReportEndpoint(t *testing.T) {
	s := testServer(t)
	w := doJSON(t, s, http.MethodPost, "/v1/devices/user-1/report", fingerprintPayload())
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		TrustScore      float64  `json:"trustScore"`
		Recommendations []string `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0.5, resp.TrustScore)
	assert.NotEmpty(t, resp.Recommendations)
}
