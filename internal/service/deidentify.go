package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/clinical-dss-server/internal/domain"
)

const researchTokenLength = 16

// safeHarborFields are the direct-identifier fields stripped from every
// record before research export
var safeHarborFields = []string{
	"name",
	"address",
	"phone",
	"email",
	"ssn",
	"medical_record_number",
	"health_plan_beneficiary_number",
	"account_number",
	"certificate_license_number",
	"vehicle_identifier",
	"device_identifier",
	"url",
	"ip_address",
	"biometric_identifier",
	"full_face_photo",
	"any_other_unique_identifier",
}

// Deidentifier strips direct identifiers from patient records and
// issues a deterministic research token
type Deidentifier struct {
	logger *logrus.Logger
}

// NewDeidentifier creates a new de-identification service
func NewDeidentifier(logger *logrus.Logger) *Deidentifier {
	return &Deidentifier{logger: logger}
}

// Deidentify returns a copy of the record with the Safe-Harbor fields
// removed and a token derived from the remaining content. JSON
// marshaling sorts map keys, so the token is independent of field
// order, and running the output through again yields the same token.
func (d *Deidentifier) Deidentify(record map[string]interface{}) (*domain.DeidentifiedRecord, error) {
	fields := make(map[string]interface{}, len(record))
	for k, v := range record {
		fields[k] = v
	}
	removed := 0
	for _, field := range safeHarborFields {
		if _, ok := fields[field]; ok {
			delete(fields, field)
			removed++
		}
	}

	serialized, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize de-identified record: %w", err)
	}
	digest := sha256.Sum256(serialized)
	full := hex.EncodeToString(digest[:])

	d.logger.WithFields(logrus.Fields{
		"fields_removed":  removed,
		"fields_retained": len(fields),
	}).Debug("Record de-identified")

	return &domain.DeidentifiedRecord{
		Fields:     fields,
		Token:      full[:researchTokenLength],
		FullDigest: full,
	}, nil
}
