// Package feedback provides clinician feedback storage for diagnosis
// suggestions. It stores agreements and corrections so the knowledge
// base curators can review where the matcher diverges from clinical
// judgement.
package feedback

import (
	"context"
	"io"
	"time"

	"github.com/clinical-dss-server/internal/domain"
)

// Feedback represents a clinician's verdict on a suggested diagnosis.
type Feedback struct {
	ID                 int64               `json:"id,omitempty"`
	EncounterID        string              `json:"encounter_id"`        // External encounter reference
	Symptoms           string              `json:"symptoms"`            // Comma-joined symptom tokens as reported
	SuggestedDiagnosis string              `json:"suggested_diagnosis"` // System's top candidate
	ClinicianDiagnosis string              `json:"clinician_diagnosis"` // Clinician's decision
	ClinicianAgreed    bool                `json:"clinician_agreed"`    // Did the clinician accept the suggestion?
	RiskCategory       domain.RiskCategory `json:"risk_category,omitempty"`
	Notes              string              `json:"notes,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates clinician feedback.
	// If feedback for the same encounter exists, it will be updated.
	Save(ctx context.Context, feedback *Feedback) error

	// Get retrieves the feedback recorded for an encounter.
	// Returns nil without error when the encounter has none.
	Get(ctx context.Context, encounterID string) (*Feedback, error)

	// List returns all feedback entries with pagination.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// Delete removes a feedback entry by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all feedback to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports feedback from a JSON reader.
	// Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// FeedbackExport represents the JSON export format.
type FeedbackExport struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}
