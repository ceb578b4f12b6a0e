package repo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/store"
)

// newTestStore opens a fresh in-memory database per call, matching the
// config.Config.DSN test-mode DSN so repo tests exercise the exact schema
// init path the server uses at startup.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
