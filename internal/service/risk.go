package service

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/clinical-dss-server/internal/domain"
	"github.com/clinical-dss-server/internal/knowledge"
)

const (
	riskBase           = 0.10
	riskCeiling        = 0.95
	readmissionCostKES = 15000.0
	avoidableFraction  = 0.30
	confidenceInterval = 0.85
)

const (
	factorAdherence = "Medication adherence"
	factorFollowUp  = "Lack of follow-up appointment"
	factorSupport   = "Limited social support"
)

// RiskScorer computes 30-day readmission risk from discharge-time
// patient state
type RiskScorer struct {
	logger *logrus.Logger
	base   *knowledge.Base
}

// NewRiskScorer creates a new readmission risk scorer
func NewRiskScorer(logger *logrus.Logger, base *knowledge.Base) *RiskScorer {
	return &RiskScorer{
		logger: logger,
		base:   base,
	}
}

// Score runs the capped additive risk model over the snapshot and the
// accepted diagnosis. Negative numeric inputs are clamped to zero; the
// transport layer rejects them before they reach here.
func (r *RiskScorer) Score(ctx context.Context, snapshot domain.ClinicalSnapshot, diagnosis string) (*domain.RiskAssessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	age := clampNonNegative(snapshot.Age)
	comorbidities := clampNonNegative(len(snapshot.Comorbidities))
	admissions := clampNonNegative(snapshot.PreviousAdmissions)
	labs := clampNonNegative(snapshot.LabAbnormalities)

	score := riskBase
	score += float64(age) / 100.0 * 0.30
	score += math.Min(0.40, float64(comorbidities)*0.10)
	score += math.Min(0.20, float64(admissions)*0.10)
	score += float64(r.diagnosisComplexity(diagnosis)) * 0.10
	score += math.Min(0.20, float64(labs)*0.05)
	score = math.Min(riskCeiling, score)

	factors := r.modifiableFactors(snapshot)
	interventions := make([]string, 0)
	for _, factor := range factors {
		interventions = append(interventions, r.base.Risk.Interventions[factor]...)
	}

	assessment := &domain.RiskAssessment{
		Score:              score,
		Category:           categorize(score),
		RiskFactors:        factors,
		Interventions:      interventions,
		CostAvoidanceKES:   round2(readmissionCostKES * score * avoidableFraction),
		ConfidenceInterval: confidenceInterval,
	}

	r.logger.WithFields(logrus.Fields{
		"diagnosis":     diagnosis,
		"risk_score":    assessment.Score,
		"risk_category": assessment.Category,
		"factors":       len(factors),
	}).Debug("Readmission risk scored")

	return assessment, nil
}

// diagnosisComplexity weights the accepted diagnosis by treatment
// complexity: 3 for the high set, 2 for the medium set, 1 otherwise.
func (r *RiskScorer) diagnosisComplexity(diagnosis string) int {
	if containsString(r.base.Risk.HighComplexityDiagnoses, diagnosis) {
		return 3
	}
	if containsString(r.base.Risk.MediumComplexityDiagnoses, diagnosis) {
		return 2
	}
	return 1
}

// modifiableFactors reports the discharge-planning factors care teams
// can still act on. An unreported adherence or support level counts as
// the at-risk value.
func (r *RiskScorer) modifiableFactors(snapshot domain.ClinicalSnapshot) []string {
	factors := make([]string, 0, 3)
	if snapshot.MedicationAdherence == "" || snapshot.MedicationAdherence == "poor" {
		factors = append(factors, factorAdherence)
	}
	if !snapshot.FollowUpScheduled {
		factors = append(factors, factorFollowUp)
	}
	if snapshot.SocialSupport == "" || snapshot.SocialSupport == "limited" {
		factors = append(factors, factorSupport)
	}
	return factors
}

func categorize(score float64) domain.RiskCategory {
	switch {
	case score < 0.10:
		return domain.RiskLow
	case score < 0.30:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
