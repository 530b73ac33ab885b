package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-dss-server/internal/domain"
)

func newTestCodingEngine(t *testing.T) *CodingEngine {
	t.Helper()
	return NewCodingEngine(testLogger(), testBase(t))
}

func TestGenerateBundleCodes(t *testing.T) {
	engine := newTestCodingEngine(t)

	bundle, err := engine.GenerateBundle(context.Background(),
		[]string{"Malaria", "Hypertension", "Malaria"},
		[]string{"Office Visit"})
	require.NoError(t, err)

	// Duplicate diagnosis contributes its codes once, first-seen order.
	assert.Equal(t, []string{"B54", "B50.9", "B51.9", "I10", "I11.9", "I12.9"}, bundle.ICD10Codes)
	assert.Equal(t, []string{"99213", "99214", "99215"}, bundle.CPTCodes)
}

func TestGenerateBundleUnknownNamesIgnored(t *testing.T) {
	engine := newTestCodingEngine(t)

	bundle, err := engine.GenerateBundle(context.Background(),
		[]string{"Dragon Pox"}, []string{"Interpretive Dance"})
	require.NoError(t, err)

	assert.Empty(t, bundle.ICD10Codes)
	assert.Empty(t, bundle.CPTCodes)
	// Base consultation fee still applies.
	assert.Equal(t, int64(3000), bundle.EstimatedCostKES)
}

func TestEstimatedCost(t *testing.T) {
	engine := newTestCodingEngine(t)

	tests := []struct {
		name       string
		diagnoses  []string
		procedures []string
		want       int64
	}{
		{
			name:       "consultation only",
			diagnoses:  []string{"Malaria"},
			procedures: nil,
			want:       3000,
		},
		{
			name:       "lab line item by substring",
			diagnoses:  []string{"Malaria"},
			procedures: []string{"Lab Tests - Malaria Test"},
			want:       3500,
		},
		{
			name:       "imaging line item by substring",
			diagnoses:  []string{"Malaria"},
			procedures: []string{"Imaging - CT Scan"},
			want:       15000,
		},
		{
			name:       "high acuity multiplier",
			diagnoses:  []string{"HIV/AIDS"},
			procedures: []string{"Lab Tests - HIV Test"},
			want:       4950, // (3000 + 300) * 1.5
		},
		{
			name:       "multiplier applies to whole total",
			diagnoses:  []string{"Stroke"},
			procedures: []string{"Imaging - MRI"},
			want:       42000, // (3000 + 25000) * 1.5
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle, err := engine.GenerateBundle(context.Background(), tt.diagnoses, tt.procedures)
			require.NoError(t, err)
			assert.Equal(t, tt.want, bundle.EstimatedCostKES)
		})
	}
}

func TestCoveragePlusPatientEqualsTotal(t *testing.T) {
	engine := newTestCodingEngine(t)

	cases := [][2][]string{
		{{"Malaria"}, {"Lab Tests - Malaria Test"}},
		{{"HIV/AIDS"}, {"Imaging - MRI", "Lab Tests - HIV Test"}},
		{{"Dragon Pox"}, nil},
	}
	for _, c := range cases {
		bundle, err := engine.GenerateBundle(context.Background(), c[0], c[1])
		require.NoError(t, err)

		assert.Equal(t, bundle.EstimatedCostKES, bundle.InsuranceCoverage+bundle.PatientPortion)
		assert.GreaterOrEqual(t, bundle.PatientPortion, int64(0))
	}
}

func TestBillingComplexity(t *testing.T) {
	tests := []struct {
		diagnoses  int
		procedures int
		want       domain.BillingComplexity
	}{
		{0, 0, domain.BillingLow},
		{1, 0, domain.BillingLow},   // 0.3
		{0, 1, domain.BillingLow},   // 0.7
		{1, 1, domain.BillingMedium}, // 1.0
		{2, 1, domain.BillingMedium}, // 1.3
		{1, 2, domain.BillingMedium}, // 1.7
		{0, 3, domain.BillingHigh},  // 2.1
		{3, 2, domain.BillingHigh},  // 2.3
	}

	for _, tt := range tests {
		dx := make([]string, tt.diagnoses)
		proc := make([]string, tt.procedures)
		assert.Equal(t, tt.want, billingComplexity(dx, proc),
			"%d diagnoses, %d procedures", tt.diagnoses, tt.procedures)
	}
}

func TestPredictPriorAuth(t *testing.T) {
	engine := newTestCodingEngine(t)

	bundle, err := engine.GenerateBundle(context.Background(), nil,
		[]string{"MRI lumbar spine after failed conservative treatment"})
	require.NoError(t, err)

	require.Equal(t, []string{"MRI"}, bundle.PriorAuth.Required)
	assert.Equal(t, "High", bundle.PriorAuth.Likelihood["MRI"])
	assert.Equal(t, []string{"failed conservative treatment", "neurological symptoms"},
		bundle.PriorAuth.DocumentationRequirements["MRI"])
}

func TestPredictPriorAuthNoTrigger(t *testing.T) {
	engine := newTestCodingEngine(t)

	bundle, err := engine.GenerateBundle(context.Background(), nil, []string{"Office Visit"})
	require.NoError(t, err)

	assert.Empty(t, bundle.PriorAuth.Required)
	assert.Empty(t, bundle.PriorAuth.Likelihood)
	assert.Empty(t, bundle.PriorAuth.DocumentationRequirements)
}
