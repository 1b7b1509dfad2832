package utils

import "github.com/google/uuid"

// GenerateUUID returns a random v4 UUID string. Used for session ids and
// for line ids assigned during offline merges.
func GenerateUUID() string {
	return uuid.New().String()
}
