// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ik5/audmgr"
	"github.com/ik5/audmgr/audio"
	"github.com/ik5/audmgr/formats/wav"
)

// messages logs context notifications and, with a dump directory, writes
// every buffer being loaded to a WAV file.
type messages struct {
	audmgr.NopMessageHandler

	logger  *slog.Logger
	dumpDir string
}

func (m *messages) DeviceDisconnected() {
	m.logger.Error("audio device disconnected")
}

func (m *messages) SourceStopped(src *audmgr.Source, forced bool) {
	m.logger.Debug("source stopped", "source", src.ID(), "forced", forced)
}

func (m *messages) BufferLoading(name string, chans audio.ChannelConfig, typ audio.SampleType, rate int, data []byte) {
	if m.dumpDir == "" {
		return
	}
	if typ != audio.Int16 {
		m.logger.Warn("skipping dump of non 16-bit buffer", "name", name, "type", typ.String())
		return
	}

	path := dumpPath(m.dumpDir, name)
	if err := writeDump(path, rate, chans.Count(), data); err != nil {
		m.logger.Warn("failed to dump buffer", "name", name, "error", err)
		return
	}
	m.logger.Info("buffer dumped", "name", name, "path", path)
}

func dumpPath(dir, name string) string {
	base := filepath.Base(name)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".wav")
}

func writeDump(path string, rate, channels int, data []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w", cerr)
		}
	}()

	return wav.WritePCM(f, rate, channels, data)
}
