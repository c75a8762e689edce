package domain

import "github.com/google/uuid"

// ValidID reports whether id has the shape of a record identifier.
func ValidID(id string) bool {
	return uuid.Validate(id) == nil
}
