package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/18061718791/AITestCraft-sub000/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restoreStandardLogger undoes the global changes NewWithOutput makes.
func restoreStandardLogger(t *testing.T) {
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetFormatter(&logrus.TextFormatter{})
	})
}

func TestNewWithOutputJSON(t *testing.T) {
	restoreStandardLogger(t)
	var buf bytes.Buffer
	logger, err := NewWithOutput(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.WithField("component", "ingestion").Debug("row parsed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "ingestion", entry["component"])
	assert.Equal(t, "row parsed", entry["msg"])
}

func TestNewWithOutputRejectsBadSettings(t *testing.T) {
	_, err := NewWithOutput(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = NewWithOutput(config.LogConfig{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNewWithOutputDefaultsToInfoText(t *testing.T) {
	restoreStandardLogger(t)
	var buf bytes.Buffer
	logger, err := NewWithOutput(config.LogConfig{}, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
