package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBuildsLoggerAtRequestedLevel(t *testing.T) {
	log, err := New(Options{Level: "debug", JSON: true})
	require.NoError(t, err)
	require.NotNil(t, log)
	require.True(t, log.Core().Enabled(-1)) // debug level
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Options{Level: "bogus"})
	require.Error(t, err)
}
