// Package ids mints record identifiers: a type prefix plus a UUIDv7, which is a
// millisecond timestamp followed by random bits.
package ids

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

const (
	ConsultationPrefix = "CON-"
	PaymentPrefix      = "PAG-"
	RatingPrefix       = "AVA-"
	PrescriptionPrefix = "PRE-"
)

// Generator returns a fresh id carrying prefix.
type Generator func(prefix string) (string, error)

// UUIDv7 is the production Generator.
func UUIDv7(prefix string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("ids: generate: %w", err)
	}
	return prefix + id.String(), nil
}

// Sequence returns a deterministic Generator for tests: prefix + 1, 2, 3...
// Each prefix counts independently.
func Sequence() Generator {
	var mu sync.Mutex
	counters := map[string]int{}
	return func(prefix string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		counters[prefix]++
		return fmt.Sprintf("%s%d", prefix, counters[prefix]), nil
	}
}

// Fixed returns a Generator that always yields the same id per prefix. It
// exists to exercise collision handling.
func Fixed(id string) Generator {
	return func(prefix string) (string, error) {
		return prefix + id, nil
	}
}
