package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmitsOneLinePerEvent(t *testing.T) {
	var lines []string
	log := New(func(line string) { lines = append(lines, line) })

	log.Info().Str("foo", "bar").Msg("hello")
	log.Debug().Int("n", 3).Msg("again")

	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "hello")
	assert.Contains(t, lines[0], "foo=bar")
	assert.Contains(t, lines[1], "again")
	for _, l := range lines {
		assert.False(t, strings.ContainsAny(l, "\r\n"))
	}
}

func TestNewNilSinkIsSilent(t *testing.T) {
	log := New(nil)
	log.Info().Msg("dropped")
	log.Error().Msg("dropped too")
}
