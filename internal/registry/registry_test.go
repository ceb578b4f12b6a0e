package registry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/pkg/logger"
)

func init() { logger.Init() }

type pingPayload struct {
	Name string `json:"name"`
}

func (p pingPayload) Validate() error {
	if p.Name == "" {
		return apperr.Validation("name is required", nil)
	}
	return nil
}

func registerPing(t *testing.T, r *Registry) {
	t.Helper()
	err := RegisterTyped[pingPayload](r, "ping", "says hello", func(ctx context.Context, sess SessionContext, p pingPayload) (string, any, error) {
		return "hello " + p.Name, map[string]any{"name": p.Name}, nil
	})
	require.NoError(t, err)
}

func TestRegistry_InvokeRoundTrip(t *testing.T) {
	r := New()
	registerPing(t, r)

	env, err := r.Invoke(context.Background(), "ping", json.RawMessage(`{"name":"hero"}`), SessionContext{SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, env.Content, 1)
	require.Contains(t, env.Content[0].Text, "hello hero")
	require.Contains(t, env.Content[0].Text, "STATE_JSON")
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := New()
	_, err := r.Invoke(context.Background(), "missing", nil, SessionContext{})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.KindUnknownTool, ae.Kind)
}

func TestRegistry_DuplicateTool(t *testing.T) {
	r := New()
	registerPing(t, r)
	err := RegisterTyped[pingPayload](r, "ping", "again", func(ctx context.Context, sess SessionContext, p pingPayload) (string, any, error) {
		return "", nil, nil
	})
	require.Error(t, err)
}

func TestRegistry_ValidationErrorPropagates(t *testing.T) {
	r := New()
	registerPing(t, r)

	_, err := r.Invoke(context.Background(), "ping", json.RawMessage(`{}`), SessionContext{})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.KindValidation, ae.Kind)
}

func TestRegistry_List_SortedByName(t *testing.T) {
	r := New()
	require.NoError(t, RegisterTyped[pingPayload](r, "zeta", "z", func(ctx context.Context, sess SessionContext, p pingPayload) (string, any, error) {
		return "", nil, nil
	}))
	registerPing(t, r)

	list := r.List()
	require.Len(t, list, 2)
	require.Equal(t, "ping", list[0].Name)
	require.Equal(t, "zeta", list[1].Name)
}

func TestRegistry_RegisterRaw(t *testing.T) {
	r := New()
	err := RegisterRaw(r, "raw_tool", "raw", nil, func(ctx context.Context, raw json.RawMessage, sess SessionContext) (Envelope, error) {
		return NewEnvelope("ok", nil), nil
	})
	require.NoError(t, err)

	env, err := r.Invoke(context.Background(), "raw_tool", nil, SessionContext{})
	require.NoError(t, err)
	require.Equal(t, "ok", env.Content[0].Text)
}

func TestToErrorEnvelope_WrapsNonAppErr(t *testing.T) {
	env := ToErrorEnvelope(context.DeadlineExceeded)
	require.Contains(t, env.Content[0].Text, "StorageError")
}
