package domain

import "github.com/google/uuid"

// ValidID reports whether id has the canonical 36-character UUID form used for
// every primary key. Anything else cannot match a row.
func ValidID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
