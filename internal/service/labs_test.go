package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-dss-server/internal/domain"
)

func newTestLabService(t *testing.T) *LabService {
	t.Helper()
	matcher := newTestMatcher(t)
	return NewLabService(testLogger(), matcher.base, matcher)
}

func TestIsAbnormal(t *testing.T) {
	labs := newTestLabService(t)

	tests := []struct {
		name        string
		value       string
		normalRange string
		want        bool
	}{
		{name: "within range", value: "7.0", normalRange: "4-11", want: false},
		{name: "below range", value: "3.2", normalRange: "4-11", want: true},
		{name: "above range", value: "14", normalRange: "4-11", want: true},
		{name: "boundary is normal", value: "11", normalRange: "4-11", want: false},
		{name: "units after numbers", value: "5.6", normalRange: "3.5 mmol/L - 5.0 mmol/L", want: true},
		{name: "non-numeric value", value: "positive", normalRange: "4-11", want: false},
		{name: "range without dash", value: "7.0", normalRange: "Negative", want: false},
		{name: "range with extra dashes", value: "13", normalRange: "12.0-16.0 g/dL (F), 13.5-17.5 g/dL (M)", want: false},
		{name: "empty range", value: "7.0", normalRange: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, labs.IsAbnormal("WBC", tt.value, tt.normalRange))
		})
	}
}

func TestIsCritical(t *testing.T) {
	labs := newTestLabService(t)

	tests := []struct {
		name     string
		testName string
		value    string
		want     bool
	}{
		{name: "potassium critically low", testName: "Potassium", value: "2.1", want: true},
		{name: "potassium critically high", testName: "Potassium", value: "6.5", want: true},
		{name: "potassium normal", testName: "Potassium", value: "4.2", want: false},
		{name: "substring test name", testName: "Serum Potassium", value: "2.1", want: true},
		{name: "creatinine high-only bound", testName: "Creatinine", value: "11.0", want: true},
		{name: "creatinine low not critical", testName: "Creatinine", value: "0.1", want: false},
		{name: "unknown test", testName: "TSH", value: "900", want: false},
		{name: "non-numeric value", testName: "Potassium", value: "hemolyzed", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, labs.IsCritical(tt.testName, tt.value))
		})
	}
}

func TestNormalRange(t *testing.T) {
	labs := newTestLabService(t)

	assert.Equal(t, "135-145 mmol/L", labs.NormalRange("Sodium"))
	assert.Equal(t, "Refer to laboratory reference ranges", labs.NormalRange("Quantum Flux Assay"))
}

func TestRecommendTestsForMalariaSymptoms(t *testing.T) {
	labs := newTestLabService(t)

	rec, err := labs.RecommendTests(context.Background(),
		[]string{"fever", "chills", "sweating"}, 30, domain.GenderFemale)
	require.NoError(t, err)

	assert.Contains(t, rec.PotentialDiagnoses, "Malaria")
	assert.Contains(t, rec.RecommendedTests, "Complete Blood Count (CBC)")
	assert.Contains(t, rec.RecommendedTests, "Basic Metabolic Panel")
	assert.Contains(t, rec.RecommendedTests, "Malaria Parasite Test")
	assert.Contains(t, rec.DiagnosticSamples, "Blood")

	// Dedup: each test appears once even when several candidates share a sample.
	seen := map[string]int{}
	for _, test := range rec.RecommendedTests {
		seen[test]++
	}
	for test, n := range seen {
		assert.Equal(t, 1, n, "test %q recommended %d times", test, n)
	}
}

func TestRecommendTestsFallbackDiagnosesSkipLookups(t *testing.T) {
	labs := newTestLabService(t)

	rec, err := labs.RecommendTests(context.Background(),
		[]string{"glowing toenails"}, 30, domain.GenderMale)
	require.NoError(t, err)

	// Viral Syndrome and General Medical Condition have no catalog entry.
	assert.Equal(t, []string{
		"Upper Respiratory Infection", "Viral Syndrome", "General Medical Condition",
	}, rec.PotentialDiagnoses)
	assert.Contains(t, rec.DiagnosticSamples, "None typically")
}

func TestRecommendedMedications(t *testing.T) {
	labs := newTestLabService(t)

	meds := labs.RecommendedMedications("Malaria")
	assert.Contains(t, meds, "Artemisinin-based Combination Therapies")

	assert.Empty(t, labs.RecommendedMedications("Dragon Pox"))
}
