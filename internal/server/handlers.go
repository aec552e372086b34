package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sentrasec/sentra/internal/fingerprint"
	"github.com/sentrasec/sentra/internal/metrics"
	"github.com/sentrasec/sentra/internal/realtime"
	"github.com/sentrasec/sentra/internal/report"
	"github.com/sentrasec/sentra/internal/risk"
	"github.com/sentrasec/sentra/internal/traces"
	"github.com/sentrasec/sentra/internal/validation"
)

// writeError maps engine failures to HTTP responses. Validation rejections
// are 4xx; anything else is a 500 and gets logged upstream by gin recovery
// or the caller.
func writeError(c *gin.Context, err error) {
	var fpErr *fingerprint.ValidationError
	var txErr *risk.ValidationError
	switch {
	case errors.As(err, &fpErr), errors.As(err, &txErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "scoring failed",
		})
	}
}

func userIDParam(c *gin.Context) (string, bool) {
	id := validation.SanitizeUserID(c.Param("userId"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_user_id",
			"message": "userId path parameter is missing or malformed",
		})
		return "", false
	}
	return id, true
}

func bindFingerprint(c *gin.Context) (*fingerprint.DeviceFingerprint, bool) {
	var fp fingerprint.DeviceFingerprint
	if err := c.ShouldBindJSON(&fp); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "request body is not a valid fingerprint",
		})
		return nil, false
	}
	return &fp, true
}

// handleDetectChanges implements POST /v1/devices/:userId/changes.
// Read-only: compares against the stored baseline without appending.
func (s *Server) handleDetectChanges(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	fp, ok := bindFingerprint(c)
	if !ok {
		return
	}

	ctx, span := traces.StartScoring(c.Request.Context(), "detect_changes", userID)
	defer span.End()
	defer metrics.TimeOperation("detect_changes", time.Now())

	analysis, err := s.trust.DetectChanges(ctx, fp, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	s.observePatterns(analysis)
	c.JSON(http.StatusOK, analysis)
}

// handleTrustScore implements POST /v1/devices/:userId/trust.
// Appends the fingerprint to the user's history.
func (s *Server) handleTrustScore(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	fp, ok := bindFingerprint(c)
	if !ok {
		return
	}

	ctx, span := traces.StartScoring(c.Request.Context(), "trust_score", userID)
	defer span.End()
	defer metrics.TimeOperation("trust_score", time.Now())

	trust, analysis, err := s.trust.Score(ctx, fp, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	s.observePatterns(analysis)
	c.JSON(http.StatusOK, gin.H{
		"trustScore": trust,
		"analysis":   analysis,
	})
}

// handleDeviceReport implements POST /v1/devices/:userId/report.
func (s *Server) handleDeviceReport(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	fp, ok := bindFingerprint(c)
	if !ok {
		return
	}

	ctx, span := traces.StartScoring(c.Request.Context(), "device_report", userID)
	defer span.End()
	defer metrics.TimeOperation("device_report", time.Now())

	rpt, err := s.assembler.DeviceAnalysis(ctx, fp, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(rpt.SecurityFlags) > 0 {
		s.hub.Broadcast(&realtime.Event{
			Type:      realtime.EventDeviceAlert,
			RiskLevel: rpt.RiskLevel,
			Timestamp: time.Now(),
			Data:      gin.H{"userId": userID, "report": rpt},
		})
	}
	c.JSON(http.StatusOK, rpt)
}

// handleResetHistory implements DELETE /v1/devices/:userId/history
// (privacy reset).
func (s *Server) handleResetHistory(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	if err := s.trust.Reset(c.Request.Context(), userID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// handlePredictFraud implements POST /v1/transactions/predict.
func (s *Server) handlePredictFraud(c *gin.Context) {
	var tx risk.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "request body is not a valid transaction",
		})
		return
	}

	ctx, span := traces.StartScoring(c.Request.Context(), "predict_fraud", "")
	defer span.End()
	defer metrics.TimeOperation("predict_fraud", time.Now())

	pred, err := s.engine.Predict(ctx, &tx)
	if err != nil {
		writeError(c, err)
		return
	}

	metrics.FraudPredictionsTotal.WithLabelValues(string(pred.RiskLevel)).Inc()
	s.hub.Broadcast(&realtime.Event{
		Type:      realtime.EventPrediction,
		RiskLevel: pred.RiskLevel,
		Timestamp: time.Now(),
		Data:      pred,
	})
	c.JSON(http.StatusOK, pred)
}

// assessRequest is the combined scoring payload.
type assessRequest struct {
	UserID      string                        `json:"userId" binding:"required"`
	Fingerprint fingerprint.DeviceFingerprint `json:"fingerprint" binding:"required"`
	Transaction risk.Transaction              `json:"transaction" binding:"required"`
}

// handleAssess implements POST /v1/assessments: full pipeline, device and
// transaction merged into one verdict.
func (s *Server) handleAssess(c *gin.Context) {
	var req assessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "request body is not a valid assessment request",
		})
		return
	}
	userID := validation.SanitizeUserID(req.UserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_user_id",
			"message": "userId is missing or malformed",
		})
		return
	}

	ctx, span := traces.StartScoring(c.Request.Context(), "assess", userID)
	defer span.End()
	defer metrics.TimeOperation("assess", time.Now())

	assessment, err := s.assembler.Assess(ctx, &req.Transaction, &req.Fingerprint, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	metrics.FraudPredictionsTotal.WithLabelValues(string(assessment.RiskLevel)).Inc()
	eventType := realtime.EventPrediction
	if assessment.RecommendedAction == report.ActionBlock {
		eventType = realtime.EventBlocked
	}
	s.hub.Broadcast(&realtime.Event{
		Type:      eventType,
		RiskLevel: assessment.RiskLevel,
		Timestamp: time.Now(),
		Data:      gin.H{"userId": userID, "assessment": assessment},
	})
	c.JSON(http.StatusOK, assessment)
}

// handleListPredictions implements GET /v1/predictions?limit=N over the
// audit store.
func (s *Server) handleListPredictions(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be an integer between 1 and 500",
			})
			return
		}
		limit = n
	}

	predictions, err := s.predictions.ListRecent(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if predictions == nil {
		predictions = []*risk.Prediction{}
	}
	c.JSON(http.StatusOK, gin.H{"predictions": predictions})
}

// observePatterns records suspicious pattern hits in metrics.
func (s *Server) observePatterns(analysis *fingerprint.ChangeAnalysis) {
	for _, p := range analysis.SuspiciousPatterns {
		metrics.DeviceChangePatterns.WithLabelValues(string(p)).Inc()
	}
}
