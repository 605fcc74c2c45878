// SPDX-License-Identifier: EPL-2.0

package audmgr

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ik5/audmgr/audio"
	"github.com/ik5/audmgr/internal/ringqueue"
)

// Config holds the settings a Context is created with. Fields tagged "-"
// are wired in code rather than loaded from configuration files.
type Config struct {
	// WakeInterval is the period of the worker's timer. Zero wakes the
	// worker only when signaled, which Update does.
	WakeInterval time.Duration `mapstructure:"wake_interval"`
	// QueueSize bounds the number of queued asynchronous loads.
	QueueSize int `mapstructure:"queue_size"`
	// EnqueueTimeout bounds how long GetBufferAsync waits for a queue slot.
	// Zero waits until the worker stops.
	EnqueueTimeout time.Duration `mapstructure:"enqueue_timeout"`

	Logger *slog.Logger `mapstructure:"-"`
	// Registry overrides the process-wide decoder registry.
	Registry *audio.Registry `mapstructure:"-"`
	// Opener defaults to the local filesystem.
	Opener  audio.FileOpener `mapstructure:"-"`
	Handler MessageHandler   `mapstructure:"-"`
	// Registerer receives the context's metrics. Nil keeps them in a
	// private registry.
	Registerer prometheus.Registerer `mapstructure:"-"`
	// OnWorkerState is called from the worker on every state change.
	OnWorkerState func(WorkerState) `mapstructure:"-"`
}

func DefaultConfig() Config {
	return Config{
		QueueSize:      ringqueue.DefaultCapacity,
		EnqueueTimeout: 5 * time.Second,
	}
}
