package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

func TestEventRepo_AppendList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	events := NewEventRepo(s.DB)

	require.NoError(t, events.Append(ctx, model.EventEntry{Type: "encounter.started", Payload: map[string]any{"encounterId": "e1"}}))
	require.NoError(t, events.Append(ctx, model.EventEntry{Type: "encounter.ended", Payload: map[string]any{"encounterId": "e1"}}))

	list, err := events.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	// List returns oldest-first despite the underlying DESC-limit query.
	require.Equal(t, "encounter.started", list[0].Type)
	require.Equal(t, "encounter.ended", list[1].Type)
	require.Equal(t, "e1", list[0].Payload["encounterId"])
}
