package canonical

import (
	"errors"
	"fmt"
)

// ErrMissingIdentifier is matched by every MissingIdentifierError via errors.Is.
var ErrMissingIdentifier = errors.New("missing identifier")

// MissingIdentifierError reports that no identity key could be derived for a
// record. The record must not be assigned an identity.
type MissingIdentifierError struct {
	CandidateID string `json:"candidate_id"`
	Entity      string `json:"entity"`
}

func (e *MissingIdentifierError) Error() string {
	if e == nil {
		return ErrMissingIdentifier.Error()
	}
	if e.CandidateID == "" {
		return fmt.Sprintf("%s: no %s identifier available", ErrMissingIdentifier, e.Entity)
	}
	return fmt.Sprintf("%s: no %s identifier available for candidate %q", ErrMissingIdentifier, e.Entity, e.CandidateID)
}

func (e *MissingIdentifierError) Is(target error) bool {
	return target == ErrMissingIdentifier
}
