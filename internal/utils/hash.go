package utils

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// HashValue creates a deterministic SHA-256 hash of a JSON-serialisable value. Map keys
// are marshalled in sorted order, so equal content always yields the same hash.
func HashValue(value any) string {
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		jsonBytes = []byte("{}")
	}

	hash := sha256.Sum256(jsonBytes)
	return fmt.Sprintf("%x", hash)
}
