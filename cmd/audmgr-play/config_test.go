// SPDX-License-Identifier: EPL-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audmgr"
)

func settingsFor(t *testing.T, args ...string) (*Settings, error) {
	t.Helper()

	v := newViper()
	cmd := &cobra.Command{Use: "test"}
	require.NoError(t, setupFlags(cmd, v))
	require.NoError(t, cmd.ParseFlags(args))
	return loadSettings(cmd, v)
}

func TestSettingsDefaults(t *testing.T) {
	s, err := settingsFor(t)
	require.NoError(t, err)

	def := audmgr.DefaultConfig()
	assert.Equal(t, "oto", s.Device)
	assert.Equal(t, modeSync, s.Mode)
	assert.Equal(t, 44100, s.SampleRate)
	assert.Equal(t, 2, s.Channels)
	assert.Equal(t, 25*time.Millisecond, s.Poll)
	assert.Equal(t, "info", s.Log.Level)
	assert.False(t, s.Log.JSON)
	assert.Equal(t, def.QueueSize, s.Manager.QueueSize)
	assert.Equal(t, def.EnqueueTimeout, s.Manager.EnqueueTimeout)
	assert.Zero(t, s.Manager.WakeInterval)
}

func TestSettingsFlagsAndEnv(t *testing.T) {
	t.Setenv("AUDMGR_LOG_LEVEL", "debug")
	t.Setenv("AUDMGR_MANAGER_QUEUE_SIZE", "7")
	t.Setenv("AUDMGR_MODE", modeAsync)

	s, err := settingsFor(t, "--device", "null", "--mode", modeStream, "--wake-interval", "10ms", "--log-json")
	require.NoError(t, err)

	assert.Equal(t, "null", s.Device)
	assert.Equal(t, modeStream, s.Mode, "flags win over the environment")
	assert.Equal(t, "debug", s.Log.Level)
	assert.True(t, s.Log.JSON)
	assert.Equal(t, 7, s.Manager.QueueSize)
	assert.Equal(t, 10*time.Millisecond, s.Manager.WakeInterval)
}

func TestSettingsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audmgr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
device: "null"
voices: 4
chunk_frames: 512
manager:
  enqueue_timeout: 250ms
log:
  level: warn
`), 0o600))

	s, err := settingsFor(t, "--config", path)
	require.NoError(t, err)

	assert.Equal(t, "null", s.Device)
	assert.Equal(t, 4, s.Voices)
	assert.Equal(t, 512, s.ChunkFrames)
	assert.Equal(t, 250*time.Millisecond, s.Manager.EnqueueTimeout)
	assert.Equal(t, "warn", s.Log.Level)
}

func TestSettingsValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"device", []string{"--device", "alsa"}},
		{"mode", []string{"--mode", "lazy"}},
		{"channels", []string{"--channels", "6"}},
		{"voices", []string{"--voices", "0"}},
		{"poll", []string{"--poll", "0s"}},
		{"stream window", []string{"--queue-chunks", "1"}},
		{"log level", []string{"--log-level", "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := settingsFor(t, tt.args...)
			require.Error(t, err)
		})
	}

	_, err := settingsFor(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
