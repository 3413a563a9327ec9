package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, false, true)
	t.Cleanup(func() { Setup(&bytes.Buffer{}, false, false) })

	log.Debug().Msg("hidden")
	log.Info().Str("agent_id", "alpha").Msg("competition finished")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	assert.Equal(t, "alpha", event["agent_id"])
	assert.Equal(t, "info", event["level"])
	assert.False(t, DebugEnabled())
}

func TestSetup_DebugConsole(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, true, false)
	t.Cleanup(func() { Setup(&bytes.Buffer{}, false, false) })

	log.Debug().Msg("scenario generated")

	assert.Contains(t, buf.String(), "scenario generated")
	assert.True(t, DebugEnabled())
}
