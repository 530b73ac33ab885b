package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinical-dss-server/internal/domain"
	"github.com/clinical-dss-server/internal/feedback"
)

// MatchRequest is the body for POST /api/v1/match and /recommend-tests
type MatchRequest struct {
	Symptoms []string      `json:"symptoms"`
	Age      int           `json:"age"`
	Gender   domain.Gender `json:"gender"`
}

// ValidateRequest is the body for POST /api/v1/validate
type ValidateRequest struct {
	Symptoms      []string `json:"symptoms"`
	Comorbidities []string `json:"comorbidities"`
	Medications   []string `json:"medications"`
}

// RiskRequest is the body for POST /api/v1/risk
type RiskRequest struct {
	Snapshot  domain.ClinicalSnapshot `json:"snapshot"`
	Diagnosis string                  `json:"diagnosis"`
}

// BillingRequest is the body for POST /api/v1/billing
type BillingRequest struct {
	Diagnoses  []string `json:"diagnoses"`
	Procedures []string `json:"procedures"`
}

// DeidentifyRequest is the body for POST /api/v1/deidentify
type DeidentifyRequest struct {
	Record map[string]interface{} `json:"record"`
}

// AssessRequest is the body for POST /api/v1/assess
type AssessRequest struct {
	EncounterID string                  `json:"encounter_id"`
	Snapshot    domain.ClinicalSnapshot `json:"snapshot"`
	Procedures  []string                `json:"procedures"`
}

func (s *Server) badRequest(c *gin.Context, message, details string) {
	e := domain.NewError(domain.ErrInvalidInput, message, details)
	e.RequestID = c.GetString("correlation_id")
	c.JSON(http.StatusBadRequest, gin.H{"error": e})
}

// validationFailed reports a well-formed request whose values fail a
// semantic check, distinct from a malformed body.
func (s *Server) validationFailed(c *gin.Context, verr *domain.ValidationError) {
	e := domain.NewError(domain.ErrValidation, verr.Error(), "")
	e.RequestID = c.GetString("correlation_id")
	c.JSON(http.StatusBadRequest, gin.H{"error": e})
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.WithError(err).Error("Request failed")
	e := domain.NewError(domain.ErrInternalServer, "internal server error", "")
	e.RequestID = c.GetString("correlation_id")
	c.JSON(http.StatusInternalServerError, gin.H{"error": e})
}

func (s *Server) storageError(c *gin.Context, err error) {
	s.logger.WithError(err).Error("Feedback store operation failed")
	e := domain.NewError(domain.ErrStorage, "feedback store unavailable", "")
	e.RequestID = c.GetString("correlation_id")
	c.JSON(http.StatusInternalServerError, gin.H{"error": e})
}

// validateSnapshot rejects negative counts at the boundary so the core
// never sees them.
func validateSnapshot(snapshot domain.ClinicalSnapshot) *domain.ValidationError {
	if snapshot.Age < 0 {
		return domain.NewValidationError("age", "must be non-negative", snapshot.Age)
	}
	if snapshot.PreviousAdmissions < 0 {
		return domain.NewValidationError("previous_admissions", "must be non-negative", snapshot.PreviousAdmissions)
	}
	if snapshot.LabAbnormalities < 0 {
		return domain.NewValidationError("lab_abnormalities", "must be non-negative", snapshot.LabAbnormalities)
	}
	return nil
}

func (s *Server) handleMatch(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body", err.Error())
		return
	}
	if req.Age < 0 {
		s.validationFailed(c, domain.NewValidationError("age", "must be non-negative", req.Age))
		return
	}

	result, err := s.matcher.Match(c.Request.Context(), req.Symptoms, req.Age, req.Gender)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleValidate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body", err.Error())
		return
	}

	verdict, err := s.validate.Validate(c.Request.Context(), req.Symptoms, req.Comorbidities, req.Medications)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func (s *Server) handleRisk(c *gin.Context) {
	var req RiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body", err.Error())
		return
	}
	if verr := validateSnapshot(req.Snapshot); verr != nil {
		s.validationFailed(c, verr)
		return
	}

	assessment, err := s.risk.Score(c.Request.Context(), req.Snapshot, req.Diagnosis)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func (s *Server) handleBilling(c *gin.Context) {
	var req BillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body", err.Error())
		return
	}

	bundle, err := s.coding.GenerateBundle(c.Request.Context(), req.Diagnoses, req.Procedures)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

func (s *Server) handleDeidentify(c *gin.Context) {
	var req DeidentifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body", err.Error())
		return
	}
	if req.Record == nil {
		s.badRequest(c, "record is required", "")
		return
	}

	result, err := s.deid.Deidentify(req.Record)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleRecommendTests(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body", err.Error())
		return
	}
	if req.Age < 0 {
		s.validationFailed(c, domain.NewValidationError("age", "must be non-negative", req.Age))
		return
	}

	rec, err := s.labs.RecommendTests(c.Request.Context(), req.Symptoms, req.Age, req.Gender)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// handleAssess runs the full decision-support pass. Matcher and
// validator have no data dependency, so they run concurrently; the top
// candidate then feeds the risk scorer and coding engine.
func (s *Server) handleAssess(c *gin.Context) {
	var req AssessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body", err.Error())
		return
	}
	if verr := validateSnapshot(req.Snapshot); verr != nil {
		s.validationFailed(c, verr)
		return
	}

	ctx := c.Request.Context()
	snapshot := req.Snapshot

	var (
		wg          sync.WaitGroup
		match       *domain.MatchResult
		verdict     *domain.GuidelineVerdict
		matchErr    error
		validateErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		match, matchErr = s.matcher.Match(ctx, snapshot.Symptoms, snapshot.Age, snapshot.Gender)
	}()
	go func() {
		defer wg.Done()
		verdict, validateErr = s.validate.Validate(ctx, snapshot.Symptoms, snapshot.Comorbidities, snapshot.CurrentMedications)
	}()
	wg.Wait()

	if matchErr != nil {
		s.internalError(c, matchErr)
		return
	}
	if validateErr != nil {
		s.internalError(c, validateErr)
		return
	}

	topDiagnosis := ""
	if len(match.Candidates) > 0 {
		topDiagnosis = match.Candidates[0].Disease
	}

	assessment, err := s.risk.Score(ctx, snapshot, topDiagnosis)
	if err != nil {
		s.internalError(c, err)
		return
	}

	bundle, err := s.coding.GenerateBundle(ctx, []string{topDiagnosis}, req.Procedures)
	if err != nil {
		s.internalError(c, err)
		return
	}

	encounterID := req.EncounterID
	if encounterID == "" {
		encounterID = uuid.New().String()
	}

	c.JSON(http.StatusOK, domain.DecisionSupportResult{
		EncounterID: encounterID,
		Match:       match,
		Verdict:     verdict,
		Risk:        assessment,
		Billing:     bundle,
		GeneratedAt: time.Now().UTC(),
	})
}

func (s *Server) handleLabTestCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": s.labs.TestCategories()})
}

func (s *Server) handleGetDisease(c *gin.Context) {
	entry, err := s.base.Lookup(c.Param("name"))
	if err != nil {
		if domain.IsNotFound(err) {
			e := domain.NewNotFoundError("disease", c.Param("name"))
			e.RequestID = c.GetString("correlation_id")
			c.JSON(http.StatusNotFound, gin.H{"error": e})
			return
		}
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleSaveFeedback(c *gin.Context) {
	var fb feedback.Feedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		s.badRequest(c, "invalid request body", err.Error())
		return
	}
	if fb.EncounterID == "" {
		s.badRequest(c, "encounter_id is required", "")
		return
	}

	if err := s.store.Save(c.Request.Context(), &fb); err != nil {
		s.storageError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}

func (s *Server) handleListFeedback(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		s.badRequest(c, "invalid limit", "")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		s.badRequest(c, "invalid offset", "")
		return
	}

	entries, err := s.store.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.storageError(c, err)
		return
	}
	count, err := s.store.Count(c.Request.Context())
	if err != nil {
		s.storageError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feedback": entries,
		"count":    count,
		"limit":    limit,
		"offset":   offset,
	})
}
