package core

import (
	"fmt"

	"github.com/segmentio/ksuid"
)

// ID identifies a single sort run. It is a KSUID, so IDs sort by creation time.
type ID string

func (id ID) String() string {
	return string(id)
}

// NewID generates a new run ID.
func NewID() (ID, error) {
	k, err := ksuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate ID: %w", err)
	}
	return ID(k.String()), nil
}
