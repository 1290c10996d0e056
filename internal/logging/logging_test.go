package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "debug", true)

	Component(log, "retry").WithField("attempt", 2).Warn("backing off")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "retry", entry["component"])
	assert.Equal(t, float64(2), entry["attempt"])
	assert.Equal(t, "warning", entry["level"])
}

func TestNewWithOutput_BadLevelFallsBackToInfo(t *testing.T) {
	log := NewWithOutput(&bytes.Buffer{}, "chatty", false)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}
