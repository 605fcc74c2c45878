// SPDX-License-Identifier: EPL-2.0

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ik5/audmgr"
)

const envPrefix = "AUDMGR"

const (
	modeSync   = "sync"
	modeAsync  = "async"
	modeStream = "stream"
)

// Settings is everything the player reads from flags, the environment and
// an optional YAML file.
type Settings struct {
	Device      string        `mapstructure:"device"`
	Mode        string        `mapstructure:"mode"`
	SampleRate  int           `mapstructure:"sample_rate"`
	Channels    int           `mapstructure:"channels"`
	Voices      int           `mapstructure:"voices"`
	Poll        time.Duration `mapstructure:"poll"`
	ChunkFrames int           `mapstructure:"chunk_frames"`
	QueueChunks int           `mapstructure:"queue_chunks"`
	DumpDir     string        `mapstructure:"dump_dir"`
	MetricsAddr string        `mapstructure:"metrics_addr"`

	Log struct {
		Level string `mapstructure:"level"`
		JSON  bool   `mapstructure:"json"`
	} `mapstructure:"log"`

	Manager audmgr.Config `mapstructure:"manager"`
}

func setDefaults(v *viper.Viper) {
	def := audmgr.DefaultConfig()

	v.SetDefault("device", "oto")
	v.SetDefault("mode", modeSync)
	v.SetDefault("sample_rate", 44100)
	v.SetDefault("channels", 2)
	v.SetDefault("voices", 32)
	v.SetDefault("poll", 25*time.Millisecond)
	v.SetDefault("chunk_frames", 4096)
	v.SetDefault("queue_chunks", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("manager.wake_interval", def.WakeInterval)
	v.SetDefault("manager.queue_size", def.QueueSize)
	v.SetDefault("manager.enqueue_timeout", def.EnqueueTimeout)
}

func setupFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.Flags()
	flags.String("config", "", "Path to a YAML config file")
	flags.String("device", v.GetString("device"), "Output device: oto, null")
	flags.StringP("mode", "m", v.GetString("mode"), "Load mode: sync, async, stream")
	flags.Int("sample-rate", v.GetInt("sample_rate"), "Output sample rate in Hz")
	flags.Int("channels", v.GetInt("channels"), "Output channels: 1 or 2")
	flags.Int("voices", v.GetInt("voices"), "Number of device voices")
	flags.Duration("poll", v.GetDuration("poll"), "How often playback state is updated")
	flags.Int("chunk-frames", v.GetInt("chunk_frames"), "Frames per streaming chunk")
	flags.Int("queue-chunks", v.GetInt("queue_chunks"), "Chunks decoded ahead while streaming")
	flags.String("dump-dir", "", "Write every loaded buffer to this directory as WAV")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	flags.String("log-level", v.GetString("log.level"), "Log level: debug, info, warn, error")
	flags.Bool("log-json", v.GetBool("log.json"), "Log as JSON")
	flags.Duration("wake-interval", v.GetDuration("manager.wake_interval"), "Worker timer period, 0 to wake only on Update")

	for key, name := range map[string]string{
		"device":                "device",
		"mode":                  "mode",
		"sample_rate":           "sample-rate",
		"channels":              "channels",
		"voices":                "voices",
		"poll":                  "poll",
		"chunk_frames":          "chunk-frames",
		"queue_chunks":          "queue-chunks",
		"dump_dir":              "dump-dir",
		"metrics_addr":          "metrics-addr",
		"log.level":             "log-level",
		"log.json":              "log-json",
		"manager.wake_interval": "wake-interval",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// loadSettings reads the config file named by the config flag, if any, and
// decodes the merged view.
func loadSettings(cmd *cobra.Command, v *viper.Viper) (*Settings, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	if err := validateSettings(s); err != nil {
		return nil, err
	}
	return s, nil
}

func validateSettings(s *Settings) error {
	var errs []error
	switch s.Device {
	case "oto", "null":
	default:
		errs = append(errs, fmt.Errorf("unknown device %q", s.Device))
	}
	switch s.Mode {
	case modeSync, modeAsync, modeStream:
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q", s.Mode))
	}
	if s.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("invalid sample rate %d", s.SampleRate))
	}
	if s.Channels != 1 && s.Channels != 2 {
		errs = append(errs, fmt.Errorf("invalid channel count %d", s.Channels))
	}
	if s.Voices < 1 {
		errs = append(errs, fmt.Errorf("invalid voice count %d", s.Voices))
	}
	if s.Poll <= 0 {
		errs = append(errs, fmt.Errorf("invalid poll interval %s", s.Poll))
	}
	if s.ChunkFrames < 1 || s.QueueChunks < 2 {
		errs = append(errs, fmt.Errorf("invalid stream window %dx%d", s.ChunkFrames, s.QueueChunks))
	}
	if _, err := parseLevel(s.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func parseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", level)
	}
	return l, nil
}

func newLogger(s *Settings) *slog.Logger {
	level, _ := parseLevel(s.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if s.Log.JSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
