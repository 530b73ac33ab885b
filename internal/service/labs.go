package service

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/clinical-dss-server/internal/domain"
	"github.com/clinical-dss-server/internal/knowledge"
)

// LabService answers laboratory reference questions and recommends
// orderable tests for a symptom presentation
type LabService struct {
	logger  *logrus.Logger
	base    *knowledge.Base
	matcher *Matcher
}

// NewLabService creates a new lab reference service
func NewLabService(logger *logrus.Logger, base *knowledge.Base, matcher *Matcher) *LabService {
	return &LabService{
		logger:  logger,
		base:    base,
		matcher: matcher,
	}
}

// IsAbnormal reports whether a result value falls outside a "low-high"
// normal range string. Unparseable values or ranges report false:
// insufficient evidence is never an abnormality.
func (l *LabService) IsAbnormal(testName, value, normalRange string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return false
	}
	parts := strings.Split(normalRange, "-")
	if len(parts) != 2 {
		return false
	}
	low, ok := firstNumber(parts[0])
	if !ok {
		return false
	}
	high, ok := firstNumber(parts[1])
	if !ok {
		return false
	}
	return v < low || v > high
}

// firstNumber parses the first whitespace-separated field of s, so
// "5.0 mmol/L" yields 5.0.
func firstNumber(s string) (float64, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// IsCritical reports whether a result value crosses a critical
// threshold. Thresholds match by substring so "Serum Potassium"
// resolves to the Potassium bounds.
func (l *LabService) IsCritical(testName, value string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return false
	}
	for test, bounds := range l.base.Labs.CriticalThresholds {
		if !strings.Contains(testName, test) {
			continue
		}
		if bounds.Low != nil && v < *bounds.Low {
			return true
		}
		if bounds.High != nil && v > *bounds.High {
			return true
		}
	}
	return false
}

// NormalRange returns the reference range string for a test
func (l *LabService) NormalRange(testName string) string {
	if r, ok := l.base.Labs.NormalRanges[testName]; ok {
		return r
	}
	return l.base.Labs.DefaultRange
}

// TestCategories returns the orderable test catalog grouped by
// laboratory section
func (l *LabService) TestCategories() map[string][]string {
	return l.base.Labs.TestCategories
}

// RecommendTests runs the matcher over the symptom tokens and maps the
// candidates' diagnostic samples and lab findings to concrete test
// names. Fallback candidates without catalog entries contribute only
// their diagnosis name.
func (l *LabService) RecommendTests(ctx context.Context, symptoms []string, age int, gender domain.Gender) (*domain.TestRecommendation, error) {
	match, err := l.matcher.Match(ctx, symptoms, age, gender)
	if err != nil {
		return nil, err
	}

	rec := &domain.TestRecommendation{
		RecommendedTests:   make([]string, 0),
		PotentialDiagnoses: make([]string, 0, len(match.Candidates)),
		DiagnosticSamples:  make([]string, 0),
	}
	seenTests := make(map[string]struct{})
	seenSamples := make(map[string]struct{})

	findingKeywords := make([]string, 0, len(l.base.Labs.FindingTests))
	for keyword := range l.base.Labs.FindingTests {
		findingKeywords = append(findingKeywords, keyword)
	}
	sort.Strings(findingKeywords)

	addTest := func(test string) {
		if _, dup := seenTests[test]; dup {
			return
		}
		seenTests[test] = struct{}{}
		rec.RecommendedTests = append(rec.RecommendedTests, test)
	}

	for _, candidate := range match.Candidates {
		rec.PotentialDiagnoses = append(rec.PotentialDiagnoses, candidate.Disease)

		entry, err := l.base.Lookup(candidate.Disease)
		if err != nil {
			continue
		}
		for _, sample := range entry.DiagnosticSamples {
			for _, test := range l.base.Labs.SampleTests[sample] {
				addTest(test)
			}
			if _, dup := seenSamples[sample]; !dup {
				seenSamples[sample] = struct{}{}
				rec.DiagnosticSamples = append(rec.DiagnosticSamples, sample)
			}
		}
		for _, finding := range entry.LabFindings {
			for _, keyword := range findingKeywords {
				if strings.Contains(finding, keyword) {
					for _, test := range l.base.Labs.FindingTests[keyword] {
						addTest(test)
					}
				}
			}
		}
	}

	l.logger.WithFields(logrus.Fields{
		"symptoms":  len(symptoms),
		"tests":     len(rec.RecommendedTests),
		"diagnoses": len(rec.PotentialDiagnoses),
	}).Debug("Lab tests recommended")

	return rec, nil
}

// RecommendedMedications returns the catalog medication list for a
// diagnosis, empty when the diagnosis is unknown
func (l *LabService) RecommendedMedications(diagnosis string) []string {
	entry, err := l.base.Lookup(diagnosis)
	if err != nil {
		return []string{}
	}
	return entry.Medications
}
