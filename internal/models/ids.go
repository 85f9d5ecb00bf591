package models

import (
	"strings"

	"github.com/google/uuid"
)

func ensureID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// NormalizeEmail is the storage form of every email column
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
