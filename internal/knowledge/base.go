package knowledge

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/clinical-dss-server/internal/domain"
)

//go:embed data/*.json
var embedded embed.FS

// GuidelineTables holds the curated symptom-to-diagnosis and
// drug-interaction reference tables
type GuidelineTables struct {
	SymptomDiagnoses map[string][]string `json:"symptom_diagnoses"`
	DrugInteractions map[string][]string `json:"drug_interactions"`
}

// CodingTables holds the medical coding crosswalks and prior-auth rules
type CodingTables struct {
	ICD10             map[string][]string `json:"icd10"`
	CPT               map[string][]string `json:"cpt"`
	HighCostDiagnoses []string            `json:"high_cost_diagnoses"`
	PriorAuthRules    map[string][]string `json:"prior_auth_rules"`
}

// PricingTables holds service prices in whole KES
type PricingTables struct {
	Consultation map[string]int64 `json:"consultation"`
	Laboratory   map[string]int64 `json:"laboratory"`
	Imaging      map[string]int64 `json:"imaging"`
	Procedures   map[string]int64 `json:"procedures"`
	Room         map[string]int64 `json:"room"`
}

// CriticalThreshold bounds a lab value range that requires immediate
// clinician notification. A nil bound means no limit on that side.
type CriticalThreshold struct {
	Low  *float64 `json:"low,omitempty"`
	High *float64 `json:"high,omitempty"`
}

// LabTables holds laboratory reference data
type LabTables struct {
	CriticalThresholds map[string]CriticalThreshold `json:"critical_thresholds"`
	NormalRanges       map[string]string            `json:"normal_ranges"`
	DefaultRange       string                       `json:"default_range"`
	TestCategories     map[string][]string          `json:"test_categories"`
	SampleTests        map[string][]string          `json:"sample_tests"`
	FindingTests       map[string][]string          `json:"finding_tests"`
}

// RiskTables holds the readmission model constants
type RiskTables struct {
	HighComplexityDiagnoses   []string            `json:"high_complexity_diagnoses"`
	MediumComplexityDiagnoses []string            `json:"medium_complexity_diagnoses"`
	Interventions             map[string][]string `json:"interventions"`
}

// Base is the immutable in-memory knowledge base. It is loaded once at
// startup and never mutated afterwards, so concurrent reads need no
// locking.
type Base struct {
	logger *logrus.Logger

	diseases []domain.DiseaseEntry
	index    map[string]int

	Guidelines GuidelineTables
	Coding     CodingTables
	Pricing    PricingTables
	Labs       LabTables
	Risk       RiskTables
}

// Load reads the knowledge tables and validates them. Files are read
// from cfg.DataDir when set (clinical-content updates without a
// rebuild), falling back to the embedded copies shipped with the
// binary.
func Load(cfg domain.KnowledgeConfig, logger *logrus.Logger) (*Base, error) {
	b := &Base{
		logger: logger,
		index:  make(map[string]int),
	}

	if err := readTable(cfg.DataDir, "diseases.json", &b.diseases); err != nil {
		return nil, err
	}
	if err := readTable(cfg.DataDir, "guidelines.json", &b.Guidelines); err != nil {
		return nil, err
	}
	if err := readTable(cfg.DataDir, "coding.json", &b.Coding); err != nil {
		return nil, err
	}
	if err := readTable(cfg.DataDir, "pricing.json", &b.Pricing); err != nil {
		return nil, err
	}
	if err := readTable(cfg.DataDir, "labs.json", &b.Labs); err != nil {
		return nil, err
	}
	if err := readTable(cfg.DataDir, "risk.json", &b.Risk); err != nil {
		return nil, err
	}

	if err := b.normalize(); err != nil {
		return nil, err
	}
	if err := b.validate(); err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"diseases":      len(b.diseases),
		"symptom_rules": len(b.Guidelines.SymptomDiagnoses),
		"interactions":  len(b.Guidelines.DrugInteractions),
		"icd10_entries": len(b.Coding.ICD10),
		"source":        sourceLabel(cfg.DataDir),
	}).Info("Knowledge base loaded")

	return b, nil
}

func sourceLabel(dataDir string) string {
	if dataDir == "" {
		return "embedded"
	}
	return dataDir
}

// readTable decodes one named table, preferring an on-disk override
// when dataDir is set and the file exists there.
func readTable(dataDir, name string, out interface{}) error {
	var (
		raw []byte
		err error
	)
	if dataDir != "" {
		path := filepath.Join(dataDir, name)
		if _, statErr := os.Stat(path); statErr == nil {
			raw, err = os.ReadFile(path)
			if err != nil {
				return domain.NewError(domain.ErrKnowledgeBase,
					fmt.Sprintf("failed to read knowledge table %s", name), err.Error())
			}
		}
	}
	if raw == nil {
		raw, err = embedded.ReadFile("data/" + name)
		if err != nil {
			return domain.NewError(domain.ErrKnowledgeBase,
				fmt.Sprintf("embedded knowledge table %s missing", name), err.Error())
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.NewError(domain.ErrKnowledgeBase,
			fmt.Sprintf("failed to parse knowledge table %s", name), err.Error())
	}
	return nil
}

// normalize lower-cases and trims symptom tokens and builds the
// catalog-order index used by the matcher's tie-break.
func (b *Base) normalize() error {
	for i := range b.diseases {
		entry := &b.diseases[i]
		for j, symptom := range entry.Symptoms {
			entry.Symptoms[j] = strings.ToLower(strings.TrimSpace(symptom))
		}
		key := strings.ToLower(entry.Name)
		if _, exists := b.index[key]; exists {
			return domain.NewError(domain.ErrKnowledgeBase,
				fmt.Sprintf("duplicate disease entry: %s", entry.Name), "")
		}
		b.index[key] = i
	}
	return nil
}

func (b *Base) validate() error {
	if len(b.diseases) == 0 {
		return domain.NewError(domain.ErrKnowledgeBase, "disease catalog is empty", "")
	}
	for _, entry := range b.diseases {
		if strings.TrimSpace(entry.Name) == "" {
			return domain.NewError(domain.ErrKnowledgeBase, "disease entry with empty name", "")
		}
		if len(entry.Symptoms) == 0 {
			return domain.NewError(domain.ErrKnowledgeBase,
				fmt.Sprintf("disease %s has no symptoms", entry.Name), "")
		}
		switch entry.Severity {
		case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh, domain.SeverityVariable:
		default:
			return domain.NewError(domain.ErrKnowledgeBase,
				fmt.Sprintf("disease %s has unknown severity %q", entry.Name, entry.Severity), "")
		}
	}
	for _, table := range []map[string]int64{
		b.Pricing.Consultation, b.Pricing.Laboratory, b.Pricing.Imaging,
		b.Pricing.Procedures, b.Pricing.Room,
	} {
		for item, price := range table {
			if price <= 0 {
				return domain.NewError(domain.ErrKnowledgeBase,
					fmt.Sprintf("non-positive price for %s", item), "")
			}
		}
	}
	if len(b.Guidelines.SymptomDiagnoses) == 0 || len(b.Guidelines.DrugInteractions) == 0 {
		return domain.NewError(domain.ErrKnowledgeBase, "guideline tables are empty", "")
	}
	return nil
}

// Diseases returns the catalog in insertion order. Callers must treat
// the returned slice as read-only.
func (b *Base) Diseases() []domain.DiseaseEntry {
	return b.diseases
}

// Lookup returns the catalog entry for a disease name, matched
// case-insensitively.
func (b *Base) Lookup(name string) (*domain.DiseaseEntry, error) {
	i, ok := b.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, domain.NewNotFoundError("disease", name)
	}
	return &b.diseases[i], nil
}
