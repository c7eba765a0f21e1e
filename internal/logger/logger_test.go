package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeWithWriter(t *testing.T) {
	t.Run("JSON format honours level", func(t *testing.T) {
		var buf bytes.Buffer
		InitializeWithWriter("warn", "json", &buf)

		Info("hidden")
		Warn("shown", "contract_id", "c1")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, "shown", entry["msg"])
		assert.Equal(t, "c1", entry["contract_id"])
	})

	t.Run("External failures are logged at error", func(t *testing.T) {
		var buf bytes.Buffer
		InitializeWithWriter("error", "text", &buf)

		ExternalServiceResult("rental-api", "GetContractByID", nil)
		assert.Empty(t, buf.String())

		ExternalServiceResult("rental-api", "GetContractByID", errors.New("timeout"))
		assert.Contains(t, buf.String(), "timeout")
		assert.Contains(t, buf.String(), "rental-api")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel(" Warning ").String())
	assert.Equal(t, "INFO", parseLevel("nonsense").String())
}
