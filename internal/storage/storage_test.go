// internal/storage/storage_test.go
package storage_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tmdojo/viewer/internal/storage"
)

func TestErrNotFoundWraps(t *testing.T) {
	err := fmt.Errorf("replay %q: %w", "r1", storage.ErrNotFound)

	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, err.Error(), "r1")
}
