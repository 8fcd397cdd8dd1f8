package model

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random 16-character hex id
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
