// Package kvtest holds behaviour checks shared by every kv.Slot backend.
package kvtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"leadcrm/internal/infra/kv"
)

// Exercise runs the common load/save contract against slot.
func Exercise(t *testing.T, slot kv.Slot) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := slot.Load(ctx, "leadcrm.state")
	require.NoError(t, err)
	require.False(t, ok, "fresh slot should report missing key")

	require.NoError(t, slot.Save(ctx, "leadcrm.state", []byte(`{"leads":[]}`)))
	got, ok, err := slot.Load(ctx, "leadcrm.state")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"leads":[]}`, string(got))

	require.NoError(t, slot.Save(ctx, "leadcrm.state", []byte(`{"leads":[{"id":"1"}]}`)))
	got, ok, err = slot.Load(ctx, "leadcrm.state")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"leads":[{"id":"1"}]}`, string(got), "save must overwrite")

	require.NoError(t, slot.Save(ctx, "other", []byte(`"x"`)))
	got, _, err = slot.Load(ctx, "leadcrm.state")
	require.NoError(t, err)
	require.JSONEq(t, `{"leads":[{"id":"1"}]}`, string(got), "keys must be independent")

	_, _, err = slot.Load(ctx, "  ")
	require.ErrorIs(t, err, kv.ErrEmptyKey)
	require.ErrorIs(t, slot.Save(ctx, "", nil), kv.ErrEmptyKey)
}
