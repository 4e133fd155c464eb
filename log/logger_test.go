package log

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSinkAndLevel(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	t.Cleanup(func() {
		SetSink(os.Stdout)
		SetLevel(Notice)
	})

	logger := New("logtest")
	SetLevel(Notice)
	logger.Info("hidden")
	logger.Noticef("shown %d", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[logtest]")
	assert.Contains(t, buf.String(), "shown 1")

	buf.Reset()
	SetLevel(Debug)
	logger.Debug("verbose")
	assert.Contains(t, buf.String(), "verbose")

	// A new sink keeps the current level.
	var next bytes.Buffer
	SetSink(&next)
	logger.Debug("still verbose")
	assert.Contains(t, next.String(), "still verbose")
	assert.NotContains(t, buf.String(), "still verbose")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":    Debug,
		"info":     Info,
		"notice":   Notice,
		"warning":  Warning,
		"error":    Error,
		"critical": Error,
	}
	for name, want := range cases {
		got, ok := ParseLevel(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	got, ok := ParseLevel("loud")
	assert.False(t, ok)
	assert.Equal(t, Notice, got)
}
