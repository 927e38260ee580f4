// Package audit records pipeline decisions for after-the-fact inspection.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/millworks/millrun/internal/store"
)

// Trail writes decision records for state-mutating pipeline actions
// (dispatch, execution outcomes, evaluation outcomes).
type Trail struct {
	store *store.Store
}

// NewTrail creates a new audit trail writer.
func NewTrail(s *store.Store) *Trail {
	return &Trail{store: s}
}

// Record writes an audit entry for an action. Inputs are hashed so the
// record stays small while remaining comparable.
func (t *Trail) Record(action string, inputs interface{}, outcome, taskID, details string) error {
	return t.store.WriteAudit(action, hashInputs(inputs), outcome, taskID, details)
}

// hashInputs creates a SHA256 hash of the inputs for reproducibility.
func hashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
