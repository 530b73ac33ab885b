package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/clinical-dss-server/internal/domain"
	"github.com/clinical-dss-server/internal/knowledge"
)

const (
	maxCandidates     = 3
	confidenceBoost   = 0.30
	confidenceCeiling = 0.95
	sentinelDiagnosis = "No specific diagnosis"
	defaultCacheSize  = 512
)

// fallbackCandidates is returned when no catalog entry overlaps the
// reported symptoms. Confidence values are fixed low-specificity
// placeholders, not inference output.
var fallbackCandidates = []domain.DiagnosisCandidate{
	{Disease: "Upper Respiratory Infection", Confidence: 0.65},
	{Disease: "Viral Syndrome", Confidence: 0.55},
	{Disease: "General Medical Condition", Confidence: 0.45},
}

// Matcher ranks catalog diseases against free-form symptom tokens
type Matcher struct {
	logger *logrus.Logger
	base   *knowledge.Base
	cache  *lru.Cache[string, domain.MatchResult]
}

// NewMatcher creates a new symptom matcher with an LRU memo of recent
// results. cacheSize <= 0 selects the default.
func NewMatcher(logger *logrus.Logger, base *knowledge.Base, cacheSize int) (*Matcher, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, domain.MatchResult](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create matcher cache: %w", err)
	}
	return &Matcher{
		logger: logger,
		base:   base,
		cache:  cache,
	}, nil
}

// Match scores the symptom tokens against every catalog entry and
// returns up to three candidates ranked by confidence. Age and gender
// are accepted for signature stability with the encounter workflow;
// the current scoring model does not use them.
func (m *Matcher) Match(ctx context.Context, symptoms []string, age int, gender domain.Gender) (*domain.MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := normalizeTokens(symptoms)
	if len(tokens) == 0 {
		return &domain.MatchResult{
			Candidates: []domain.DiagnosisCandidate{{
				Disease:         sentinelDiagnosis,
				Confidence:      0.0,
				MatchedSymptoms: []string{},
			}},
			Sentinel: true,
		}, nil
	}

	key := cacheKey(tokens)
	if cached, ok := m.cache.Get(key); ok {
		m.logger.WithField("cache_key", key).Debug("Matcher cache hit")
		result := cached
		return &result, nil
	}

	candidates := make([]domain.DiagnosisCandidate, 0, maxCandidates)
	for _, entry := range m.base.Diseases() {
		matched := matchedTokens(entry.Symptoms, tokens)
		if len(matched) == 0 {
			continue
		}
		score := float64(len(matched)) / float64(len(entry.Symptoms))
		confidence := score + confidenceBoost
		if confidence > confidenceCeiling {
			confidence = confidenceCeiling
		}
		candidates = append(candidates, domain.DiagnosisCandidate{
			Disease:         entry.Name,
			Confidence:      confidence,
			MatchedSymptoms: matched,
			Severity:        entry.Severity,
			Medications:     entry.Medications,
			LabFindings:     entry.LabFindings,
		})
	}

	result := domain.MatchResult{}
	if len(candidates) == 0 {
		result.Candidates = append([]domain.DiagnosisCandidate(nil), fallbackCandidates...)
		result.Fallback = true
	} else {
		// Stable sort keeps catalog insertion order for equal confidence.
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Confidence > candidates[j].Confidence
		})
		if len(candidates) > maxCandidates {
			candidates = candidates[:maxCandidates]
		}
		result.Candidates = candidates
	}

	m.cache.Add(key, result)

	m.logger.WithFields(logrus.Fields{
		"tokens":     len(tokens),
		"candidates": len(result.Candidates),
		"fallback":   result.Fallback,
	}).Debug("Symptom match completed")

	out := result
	return &out, nil
}

// normalizeTokens lower-cases and trims the reported symptoms,
// dropping empties.
func normalizeTokens(symptoms []string) []string {
	tokens := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		t := strings.ToLower(strings.TrimSpace(s))
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// matchedTokens returns the input tokens hit by any catalog symptom,
// using bidirectional substring containment so "coughing" matches
// "cough" and "pain" matches "chest pain". A token counts once no
// matter how many catalog symptoms it spans; the score divides the
// matched token count by the catalog symptom count.
func matchedTokens(catalog, tokens []string) []string {
	matched := make([]string, 0, len(tokens))
	for _, t := range tokens {
		for _, cs := range catalog {
			if strings.Contains(t, cs) || strings.Contains(cs, t) {
				matched = append(matched, t)
				break
			}
		}
	}
	return matched
}

// cacheKey digests the sorted token set so permutations of the same
// symptoms share one memo entry.
func cacheKey(tokens []string) string {
	sorted := append([]string(nil), tokens...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\x1f")))
	return hex.EncodeToString(sum[:])
}
