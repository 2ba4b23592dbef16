package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Veraticus/callguard/internal/common"
	"github.com/Veraticus/callguard/internal/model"
	"github.com/Veraticus/callguard/internal/monitor"
)

// FallbackHeader marks a 200 response that carries the fallback result
// because the remote classifier was unavailable.
const FallbackHeader = "X-Callguard-Fallback"

const (
	msgNoTranscript = "No transcript provided"
	msgRateLimited  = "Rate limit exceeded. Please try again in a moment."
	msgQuota        = "Usage limit reached. Please check your account."
)

type analyzeRequest struct {
	Transcript string `json:"transcript"`
	Language   string `json:"language"`
}

type transcriptRequest struct {
	Transcript string `json:"transcript"`
	Append     bool   `json:"append"`
}

type uploadResponse struct {
	Result model.AnalysisResult `json:"result"`
	Record model.CallRecord     `json:"record"`
}

type indicatorResponse struct {
	ID          model.IndicatorID `json:"id"`
	Severity    model.Severity    `json:"severity"`
	Label       string            `json:"label"`
	Description string            `json:"description"`
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"monitoring": s.cfg.Controller.State() == monitor.StateMonitoring,
	})
}

func (s *Server) analyzeHandler(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	transcript := strings.TrimSpace(req.Transcript)
	if transcript == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoTranscript})
		return
	}
	if s.cfg.Assessor == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Remote classifier is not configured"})
		return
	}

	locale := s.locale(req.Language)
	result, err := s.cfg.Assessor.Assess(c.Request.Context(), transcript, locale)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case errors.Is(err, common.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoTranscript})
	case errors.Is(err, common.ErrRateLimit):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": msgRateLimited})
	case errors.Is(err, common.ErrQuotaExceeded):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": msgQuota})
	case errors.Is(err, common.ErrMalformedResponse):
		common.LogError(s.logger, err, "classifier response unusable, returning fallback")
		c.JSON(http.StatusOK, s.cfg.Assessor.Fallback(locale))
	default:
		common.LogError(s.logger, err, "classifier unavailable, returning fallback")
		c.Header(FallbackHeader, common.ReasonUnavailable)
		c.JSON(http.StatusOK, s.cfg.Assessor.Fallback(locale))
	}
}

func (s *Server) startHandler(c *gin.Context) {
	result, err := s.cfg.Controller.Start(c.Request.Context())
	if err != nil {
		s.stateError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) stopHandler(c *gin.Context) {
	record, err := s.cfg.Controller.Stop(c.Request.Context())
	if err != nil {
		s.stateError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) stateError(c *gin.Context, err error) {
	if errors.Is(err, monitor.ErrAlreadyMonitoring) || errors.Is(err, monitor.ErrNotMonitoring) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	common.LogError(s.logger, err, "monitor request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Monitoring failed"})
}

func (s *Server) currentHandler(c *gin.Context) {
	result, ok := s.cfg.Controller.Current()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No analysis yet"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) transcriptHandler(c *gin.Context) {
	var req transcriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Append {
		s.cfg.Feed.Append(req.Transcript)
	} else {
		s.cfg.Feed.Set(req.Transcript)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) uploadHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	up := monitor.Upload{
		Transcript: c.PostForm("transcript"),
		Locale:     s.locale(c.PostForm("language")),
	}

	if raw := c.PostForm("duration"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "duration must be a non-negative number of seconds"})
			return
		}
		up.Duration = time.Duration(seconds) * time.Second
	}

	file, _, err := c.Request.FormFile("audio")
	switch {
	case err == nil:
		defer func() { _ = file.Close() }()
		up.Audio, err = io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Audio file too large"})
			return
		}
	case errors.Is(err, http.ErrMissingFile):
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload"})
		return
	}

	result, record, err := s.cfg.Controller.AnalyzeOnce(c.Request.Context(), up)
	if err != nil {
		if errors.Is(err, common.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Upload needs a transcript or an audio file"})
			return
		}
		common.LogError(s.logger, err, "upload analysis failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis failed"})
		return
	}
	c.JSON(http.StatusOK, uploadResponse{Result: result, Record: record})
}

func (s *Server) historyHandler(c *gin.Context) {
	if s.cfg.History == nil {
		c.JSON(http.StatusOK, []model.CallRecord{})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	records, err := s.cfg.History.ListCallRecords(c.Request.Context(), limit)
	if err != nil {
		common.LogError(s.logger, err, "failed to list call history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}
	if records == nil {
		records = []model.CallRecord{}
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) indicatorsHandler(c *gin.Context) {
	locale := s.locale(c.Query("locale"))
	catalog := model.Catalog()
	out := make([]indicatorResponse, 0, len(catalog))
	for _, def := range catalog {
		out = append(out, indicatorResponse{
			ID:          def.ID,
			Severity:    def.Severity,
			Label:       s.cfg.Guidance.IndicatorLabel(def, locale),
			Description: s.cfg.Guidance.IndicatorDescription(def, locale),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) guidanceHandler(c *gin.Context) {
	level, err := model.ParseRiskLevel(c.Param("level"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	locale := s.locale(c.Query("locale"))
	c.JSON(http.StatusOK, gin.H{
		"level":    level,
		"label":    s.cfg.Guidance.RiskLabel(level, locale),
		"guidance": s.cfg.Guidance.Guidance(level, locale),
	})
}

func (s *Server) tipsHandler(c *gin.Context) {
	locale := s.locale(c.Query("locale"))
	c.JSON(http.StatusOK, gin.H{
		"tips":     s.cfg.Guidance.Tips(locale),
		"contacts": s.cfg.Guidance.EmergencyContacts(),
	})
}

func (s *Server) locale(requested string) string {
	if l := strings.TrimSpace(requested); l != "" {
		return l
	}
	return s.cfg.Locale
}
