package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"agora/api/internal/reorder"
)

func TestReadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drag.json")
	script := `[
		{"type":"dragStart","nodeId":"a"},
		{"type":"dragOver","nodeId":"c","side":"after"},
		{"type":"dragEnd"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o600))

	events, err := readScript(path)
	require.NoError(t, err)
	require.Equal(t, []reorder.Event{
		{Type: reorder.EventDragStart, NodeID: "a"},
		{Type: reorder.EventDragOver, NodeID: "c", Side: reorder.SideAfter},
		{Type: reorder.EventDragEnd},
	}, events)
}

func TestReadScriptRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drag.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":`), 0o600))

	_, err := readScript(path)
	require.ErrorContains(t, err, "decode script")

	_, err = readScript(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorContains(t, err, "open script")
}
