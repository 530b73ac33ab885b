package service

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/clinical-dss-server/internal/domain"
	"github.com/clinical-dss-server/internal/knowledge"
)

const (
	insuranceCoverageRate    = 0.80
	highAcuityMultiplier     = 1.5
	baseConsultationCategory = "Specialist"
	priorAuthLikelihoodHigh  = "High"
)

// CodingEngine maps accepted diagnoses and ordered procedures to
// billing codes and a KES cost estimate
type CodingEngine struct {
	logger *logrus.Logger
	base   *knowledge.Base
}

// NewCodingEngine creates a new coding and pricing engine
func NewCodingEngine(logger *logrus.Logger, base *knowledge.Base) *CodingEngine {
	return &CodingEngine{
		logger: logger,
		base:   base,
	}
}

// GenerateBundle derives the billing bundle for an encounter. Unknown
// diagnosis or procedure names contribute nothing rather than erroring;
// coding gaps are a clinical-content concern, not a request failure.
func (e *CodingEngine) GenerateBundle(ctx context.Context, diagnoses, procedures []string) (*domain.BillingBundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	icd10 := unionCodes(diagnoses, e.base.Coding.ICD10)
	cpt := unionCodes(procedures, e.base.Coding.CPT)

	total := e.estimatedCost(procedures, diagnoses)
	coverage := int64(math.Round(float64(total) * insuranceCoverageRate))

	bundle := &domain.BillingBundle{
		CPTCodes:          cpt,
		ICD10Codes:        icd10,
		Complexity:        billingComplexity(diagnoses, procedures),
		EstimatedCostKES:  total,
		InsuranceCoverage: coverage,
		PatientPortion:    total - coverage,
		PriorAuth:         e.predictPriorAuth(procedures),
	}

	e.logger.WithFields(logrus.Fields{
		"diagnoses":      len(diagnoses),
		"procedures":     len(procedures),
		"estimated_cost": bundle.EstimatedCostKES,
		"complexity":     bundle.Complexity,
	}).Debug("Billing bundle generated")

	return bundle, nil
}

// unionCodes merges the code lists for every matched table key,
// deduplicated in first-seen order.
func unionCodes(names []string, table map[string][]string) []string {
	codes := make([]string, 0)
	seen := make(map[string]struct{})
	for _, name := range names {
		for _, code := range table[name] {
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}
	return codes
}

// estimatedCost starts from the specialist consultation fee, adds price
// table line items whose names appear inside the procedure description,
// then applies the high-acuity multiplier.
func (e *CodingEngine) estimatedCost(procedures, diagnoses []string) int64 {
	total := e.base.Pricing.Consultation[baseConsultationCategory]

	for _, procedure := range procedures {
		switch {
		case strings.Contains(procedure, "Lab"):
			for item, cost := range e.base.Pricing.Laboratory {
				if strings.Contains(procedure, item) {
					total += cost
				}
			}
		case strings.Contains(procedure, "Imaging"):
			for item, cost := range e.base.Pricing.Imaging {
				if strings.Contains(procedure, item) {
					total += cost
				}
			}
		}
	}

	multiplier := 1.0
	for _, dx := range diagnoses {
		if containsString(e.base.Coding.HighCostDiagnoses, dx) {
			multiplier = highAcuityMultiplier
			break
		}
	}

	return int64(math.Round(float64(total) * multiplier))
}

// predictPriorAuth flags a procedure category when any of its trigger
// keywords appears inside an ordered procedure's description.
func (e *CodingEngine) predictPriorAuth(procedures []string) domain.PriorAuthPrediction {
	prediction := domain.PriorAuthPrediction{
		Required:                  make([]string, 0),
		Likelihood:                make(map[string]string),
		DocumentationRequirements: make(map[string][]string),
	}

	categories := make([]string, 0, len(e.base.Coding.PriorAuthRules))
	for category := range e.base.Coding.PriorAuthRules {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, procedure := range procedures {
		for _, category := range categories {
			keywords := e.base.Coding.PriorAuthRules[category]
			for _, keyword := range keywords {
				if strings.Contains(procedure, keyword) {
					prediction.Required = append(prediction.Required, category)
					prediction.Likelihood[category] = priorAuthLikelihoodHigh
					prediction.DocumentationRequirements[category] = keywords
					break
				}
			}
		}
	}

	return prediction
}

// billingComplexity weights procedure count over diagnosis count
func billingComplexity(diagnoses, procedures []string) domain.BillingComplexity {
	score := float64(len(diagnoses))*0.3 + float64(len(procedures))*0.7
	switch {
	case score < 1:
		return domain.BillingLow
	case score < 2:
		return domain.BillingMedium
	default:
		return domain.BillingHigh
	}
}
