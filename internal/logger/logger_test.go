package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeWritesJSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	log, err := New().FromWriter(&buf).Level("debug").Make()
	require.NoError(t, err)

	log.Logger.Debug().Int64("subject", 3).Msg("query")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "query", entry["message"])
	assert.EqualValues(t, 3, entry["subject"])
	assert.Contains(t, entry, "time")
}

func TestMakeFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New().FromWriter(&buf).Level("warn").Make()
	require.NoError(t, err)

	log.Logger.Info().Msg("dropped")
	assert.Empty(t, buf.String())
}

func TestMakeAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataapi.log")
	log, err := New().FromPath(path).Make()
	require.NoError(t, err)

	log.Logger.Info().Msg("first")
	require.NoError(t, log.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"message":"first"`)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = ParseLevel(" ERROR ")
	require.NoError(t, err)
	assert.Equal(t, zerolog.ErrorLevel, lvl)

	_, err = New().Level("loud").Make()
	assert.Error(t, err)
}
