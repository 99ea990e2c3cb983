package spatiotemporal

import (
	"testing"

	"github.com/google/uuid"
)

func mustNewUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}
