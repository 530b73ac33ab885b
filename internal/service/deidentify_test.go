package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeidentifyStripsSafeHarborFields(t *testing.T) {
	deid := NewDeidentifier(testLogger())

	record := map[string]interface{}{
		"name":                  "Jane Mwangi",
		"phone":                 "+254700000000",
		"email":                 "jane@example.com",
		"medical_record_number": "MRN-1234",
		"age":                   34,
		"diagnosis":             "Malaria",
	}
	result, err := deid.Deidentify(record)
	require.NoError(t, err)

	assert.NotContains(t, result.Fields, "name")
	assert.NotContains(t, result.Fields, "phone")
	assert.NotContains(t, result.Fields, "email")
	assert.NotContains(t, result.Fields, "medical_record_number")
	assert.Contains(t, result.Fields, "age")
	assert.Contains(t, result.Fields, "diagnosis")

	// Input record is not mutated.
	assert.Contains(t, record, "name")
}

func TestDeidentifyTokenShape(t *testing.T) {
	deid := NewDeidentifier(testLogger())

	result, err := deid.Deidentify(map[string]interface{}{"diagnosis": "Malaria"})
	require.NoError(t, err)

	assert.Len(t, result.Token, 16)
	assert.Len(t, result.FullDigest, 64)
	assert.Equal(t, result.FullDigest[:16], result.Token)
	assert.Regexp(t, "^[0-9a-f]+$", result.FullDigest)
}

func TestDeidentifyDeterministicAndOrderIndependent(t *testing.T) {
	deid := NewDeidentifier(testLogger())

	a, err := deid.Deidentify(map[string]interface{}{
		"diagnosis": "Malaria", "age": 34, "county": "Kisumu",
	})
	require.NoError(t, err)
	b, err := deid.Deidentify(map[string]interface{}{
		"county": "Kisumu", "age": 34, "diagnosis": "Malaria",
	})
	require.NoError(t, err)

	assert.Equal(t, a.Token, b.Token)
	assert.Equal(t, a.FullDigest, b.FullDigest)
}

func TestDeidentifyIdempotent(t *testing.T) {
	deid := NewDeidentifier(testLogger())

	first, err := deid.Deidentify(map[string]interface{}{
		"name": "Jane Mwangi", "diagnosis": "Malaria", "age": 34,
	})
	require.NoError(t, err)

	second, err := deid.Deidentify(first.Fields)
	require.NoError(t, err)

	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, first.Fields, second.Fields)
}

func TestDeidentifyDistinctRecordsDistinctTokens(t *testing.T) {
	deid := NewDeidentifier(testLogger())

	a, err := deid.Deidentify(map[string]interface{}{"diagnosis": "Malaria"})
	require.NoError(t, err)
	b, err := deid.Deidentify(map[string]interface{}{"diagnosis": "Influenza"})
	require.NoError(t, err)

	assert.NotEqual(t, a.Token, b.Token)
}

func TestDeidentifyEmptyRecord(t *testing.T) {
	deid := NewDeidentifier(testLogger())

	result, err := deid.Deidentify(map[string]interface{}{})
	require.NoError(t, err)

	assert.Empty(t, result.Fields)
	assert.Len(t, result.Token, 16)
}
