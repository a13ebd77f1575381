package logging_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/redbco/mongostore/pkg/logging"
)

func TestNew(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	log := logging.New(buff)
	require.NotNil(t, log)
	require.Equal(t, 0, buff.Len())

	log.Info("connected to %s", "127.0.0.1:27017/test")

	require.Contains(t, buff.String(), "connected to 127.0.0.1:27017/test")
	require.Contains(t, buff.String(), `"level":"info"`)
}

func TestWithLevel(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	log := logging.WithLevel(logging.New(buff), "warn")

	log.Debug("drained %d actions", 3)
	log.Info("connected")
	require.Equal(t, 0, buff.Len())

	log.Warn("slow ping")
	require.Contains(t, buff.String(), "slow ping")
}

func TestNop(t *testing.T) {
	log := logging.Nop()
	require.NotNil(t, log)

	// Must not panic, must not write anywhere.
	log.Debug("debug %d", 1)
	log.Info("info")
	log.Warn("warn")
	log.Error("error: %v", nil)
}
