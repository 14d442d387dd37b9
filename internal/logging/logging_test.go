package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", "json")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("listening", "addr", ":3001")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "listening", line["msg"])
	assert.Equal(t, ":3001", line["addr"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewRejectsUnknown(t *testing.T) {
	_, err := New(nil, "loud", "text")
	assert.Error(t, err)

	_, err = New(nil, "info", "xml")
	assert.Error(t, err)
}

func TestNewLevels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", "INFO"} {
		_, err := New(nil, lvl, "logfmt")
		assert.NoError(t, err, lvl)
	}
}
