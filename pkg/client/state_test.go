package client_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Chauhan0050r/GPT-clone/pkg/client"
)

func TestStateFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.yaml")
	file := client.NewStateFile(path)

	// A missing file reads as empty state.
	state, err := file.Load()
	require.NoError(t, err)
	require.Equal(t, client.LocalState{}, state)

	want := client.LocalState{Token: "tok", Nickname: "alice", LastSessionID: "s-1"}
	require.NoError(t, file.Save(want))

	got, err := file.Load()
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestStateFileClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	file := client.NewStateFile(path)

	require.NoError(t, file.Save(client.LocalState{Token: "tok"}))
	require.NoError(t, file.Clear())

	state, err := file.Load()
	require.NoError(t, err)
	require.Equal(t, client.LocalState{}, state)

	// Clearing twice is fine.
	require.NoError(t, file.Clear())
}
