package domain

import (
	"time"
)

// Core Enums and Types

// Severity represents the severity tier of a disease entry
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityVariable Severity = "variable"
)

// Gender represents patient gender as reported at registration
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

// RiskCategory represents the thresholded readmission risk tier
type RiskCategory string

const (
	RiskLow    RiskCategory = "Low"
	RiskMedium RiskCategory = "Medium"
	RiskHigh   RiskCategory = "High"
)

// BillingComplexity represents the billing complexity tier of an encounter
type BillingComplexity string

const (
	BillingLow    BillingComplexity = "Low"
	BillingMedium BillingComplexity = "Medium"
	BillingHigh   BillingComplexity = "High"
)

// Guideline verdict constants. Compliance and evidence grading are fixed
// in the current guideline data set; they become computed values only
// when the knowledge base grows real evidence grading.
const (
	ComplianceHigh = "High"
	EvidenceLevelA = "A"
	RiskLevelLow   = "Low"
)

// Knowledge Base Models

// DiseaseEntry is a single curated disease profile. Entries are immutable
// after load; symptom tokens are lower-cased and trimmed by the loader.
type DiseaseEntry struct {
	Name              string   `json:"name"`
	Symptoms          []string `json:"symptoms"`
	Medications       []string `json:"medications"`
	Severity          Severity `json:"severity"`
	Transmission      string   `json:"transmission"`
	Incubation        string   `json:"incubation"`
	DiagnosticSamples []string `json:"diagnostic_samples"`
	LabFindings       []string `json:"lab_findings"`
}

// Request/Response Models

// ClinicalSnapshot is the per-request patient state supplied by the
// encounter workflow. The core never retains it.
type ClinicalSnapshot struct {
	Age                 int      `json:"age"`
	Gender              Gender   `json:"gender"`
	Symptoms            []string `json:"symptoms"`
	Comorbidities       []string `json:"comorbidities"`
	CurrentMedications  []string `json:"current_medications"`
	PreviousAdmissions  int      `json:"previous_admissions"`
	LabAbnormalities    int      `json:"lab_abnormalities"`
	MedicationAdherence string   `json:"medication_adherence,omitempty"`
	FollowUpScheduled   bool     `json:"follow_up_scheduled,omitempty"`
	SocialSupport       string   `json:"social_support,omitempty"`
}

// DiagnosisCandidate is one ranked diagnosis suggestion from the matcher
type DiagnosisCandidate struct {
	Disease         string   `json:"disease"`
	Confidence      float64  `json:"confidence"`
	MatchedSymptoms []string `json:"matched_symptoms"`
	Severity        Severity `json:"severity,omitempty"`
	Medications     []string `json:"medications,omitempty"`
	LabFindings     []string `json:"lab_findings,omitempty"`
}

// MatchResult is the ranked candidate list plus provenance flags.
// Sentinel marks the empty-input placeholder; Fallback marks the static
// low-specificity triple returned when nothing in the catalog matched.
// Callers must not treat either as a real diagnostic inference.
type MatchResult struct {
	Candidates []DiagnosisCandidate `json:"candidates"`
	Sentinel   bool                 `json:"sentinel"`
	Fallback   bool                 `json:"fallback"`
}

// GuidelineVerdict is the result of validating reported symptoms and
// medications against the guideline tables
type GuidelineVerdict struct {
	ApprovedDiagnoses []string `json:"approved_diagnoses"`
	Compliance        string   `json:"guideline_compliance"`
	Contraindications []string `json:"contraindications"`
	RiskLevel         string   `json:"risk_level"`
	EvidenceLevel     string   `json:"evidence_level"`
}

// RiskAssessment is a 30-day readmission risk prediction with
// explainable contributing factors. Cost avoidance is a planning
// estimate in the deployment currency (KES), not a guarantee.
type RiskAssessment struct {
	Score              float64      `json:"risk_score"`
	Category           RiskCategory `json:"risk_category"`
	RiskFactors        []string     `json:"risk_factors"`
	Interventions      []string     `json:"interventions"`
	CostAvoidanceKES   float64      `json:"expected_cost_avoidance"`
	ConfidenceInterval float64      `json:"confidence_interval"`
}

// PriorAuthPrediction lists procedure categories expected to need prior
// authorization, each with a likelihood and documentation requirements
type PriorAuthPrediction struct {
	Required                  []string            `json:"prior_auth_required"`
	Likelihood                map[string]string   `json:"likelihood"`
	DocumentationRequirements map[string][]string `json:"documentation_requirements"`
}

// BillingBundle is the coding and pricing output for an encounter.
// Amounts are whole KES; PatientPortion + InsuranceCoverage always
// equals EstimatedCost.
type BillingBundle struct {
	CPTCodes          []string            `json:"cpt_codes"`
	ICD10Codes        []string            `json:"icd10_codes"`
	Complexity        BillingComplexity   `json:"billing_complexity"`
	EstimatedCostKES  int64               `json:"estimated_cost_kes"`
	InsuranceCoverage int64               `json:"insurance_coverage"`
	PatientPortion    int64               `json:"patient_portion"`
	PriorAuth         PriorAuthPrediction `json:"prior_authorization"`
}

// DeidentifiedRecord is a patient record with the 16 Safe-Harbor
// identifier fields removed, plus its deterministic research token.
// FullDigest carries the untruncated digest for deployments where
// collision risk at the short length matters.
type DeidentifiedRecord struct {
	Fields     map[string]interface{} `json:"fields"`
	Token      string                 `json:"research_token"`
	FullDigest string                 `json:"full_digest"`
}

// TestRecommendation maps likely diagnoses to concrete orderable lab
// tests and required sample types
type TestRecommendation struct {
	RecommendedTests   []string `json:"recommended_tests"`
	PotentialDiagnoses []string `json:"potential_diagnoses"`
	DiagnosticSamples  []string `json:"diagnostic_samples"`
}

// DecisionSupportResult is the combined output of one assessment pass:
// matcher and validator run concurrently, then the top candidate feeds
// the risk scorer and coding engine.
type DecisionSupportResult struct {
	EncounterID string             `json:"encounter_id"`
	Match       *MatchResult       `json:"match"`
	Verdict     *GuidelineVerdict  `json:"guideline_verdict"`
	Risk        *RiskAssessment    `json:"risk_assessment"`
	Billing     *BillingBundle     `json:"billing,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Configuration Models

// Config represents the main application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Feedback  FeedbackConfig  `mapstructure:"feedback"`
	Matcher   MatcherConfig   `mapstructure:"matcher"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	RateBurst    int           `mapstructure:"rate_burst"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// KnowledgeConfig represents knowledge base source configuration.
// An empty DataDir means the embedded tables shipped with the binary.
type KnowledgeConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// FeedbackConfig represents clinician feedback store configuration
type FeedbackConfig struct {
	Driver      string `mapstructure:"driver"`
	Path        string `mapstructure:"path"`
	DatabaseURL string `mapstructure:"database_url"`
}

// MatcherConfig represents symptom matcher tuning
type MatcherConfig struct {
	CacheSize int `mapstructure:"cache_size"`
}
