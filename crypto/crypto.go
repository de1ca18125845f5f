package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// RandomData returns size bytes read from the system's secure random source.
func RandomData(size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.New("size cannot be negative")
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, data); err != nil {
		return nil, fmt.Errorf("failed generating random data: %w", err)
	}

	return data, nil
}
