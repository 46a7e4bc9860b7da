package utils

import "github.com/google/uuid"

// NewRunID returns a random (version 4) identifier for a saved analysis.
func NewRunID() string {
	return uuid.NewString()
}

// IsRunID reports whether s parses as an identifier produced by NewRunID.
func IsRunID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
