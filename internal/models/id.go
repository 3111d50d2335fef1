package models

import "github.com/google/uuid"

// NewID returns a fresh random row identifier.
func NewID() string {
	return uuid.NewString()
}
