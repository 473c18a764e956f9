package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rts.log")
	log, err := New(Options{File: path, Level: "info", MaxSizeMB: 1})
	require.NoError(t, err)

	log.Infow("match started", "players", 2)
	log.Debugw("hidden at info")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "match started")
	assert.Contains(t, string(data), "players")
	assert.NotContains(t, string(data), "hidden at info")
}

func TestNew_RejectsBadOptions(t *testing.T) {
	_, err := New(Options{File: "x.log", Level: "loud"})
	assert.Error(t, err)

	_, err = New(Options{Level: "info"})
	assert.Error(t, err)
}
