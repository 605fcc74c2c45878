// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ik5/audmgr"
	"github.com/ik5/audmgr/audio"
	"github.com/ik5/audmgr/device"
	"github.com/ik5/audmgr/device/otodev"
)

type player struct {
	mgr      *audmgr.Context
	settings *Settings
	logger   *slog.Logger
	// null is set when playing on the in-memory device, which only moves
	// forward when advanced.
	null *device.Memory
}

func play(ctx context.Context, s *Settings, files []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(s)

	dev, null, err := openDevice(s, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			logger.Warn("failed to close device", "error", err)
		}
	}()
	fmt.Printf("Opened %q\n", dev.Name())

	if s.DumpDir != "" {
		if err := os.MkdirAll(s.DumpDir, 0o755); err != nil {
			return fmt.Errorf("error creating dump directory: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	if s.MetricsAddr != "" {
		srv := serveMetrics(s.MetricsAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	cfg := s.Manager
	cfg.Logger = logger
	cfg.Registerer = reg
	cfg.Handler = &messages{logger: logger, dumpDir: s.DumpDir}

	mgr, err := audmgr.NewContext(dev, cfg)
	if err != nil {
		return err
	}
	if err := audmgr.MakeCurrent(mgr); err != nil {
		return err
	}
	defer func() {
		if err := audmgr.MakeCurrent(nil); err != nil {
			logger.Warn("failed to release context", "error", err)
		}
		if err := mgr.Destroy(); err != nil {
			logger.Warn("failed to destroy context", "error", err)
		}
	}()

	p := &player{mgr: mgr, settings: s, logger: logger, null: null}
	var errs []error
	for _, name := range files {
		if err := p.playFile(ctx, name); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("failed to play file", "name", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func openDevice(s *Settings, logger *slog.Logger) (device.Device, *device.Memory, error) {
	if s.Device == "null" {
		mem := device.NewMemory(s.Voices)
		return mem, mem, nil
	}

	dev, err := otodev.Open(otodev.Options{
		SampleRate: s.SampleRate,
		Channels:   s.Channels,
		MaxVoices:  s.Voices,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audio output: %w", err)
	}
	return dev, nil, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

func (p *player) playFile(ctx context.Context, name string) error {
	var (
		buf  *audmgr.Buffer
		rate int
		err  error
	)

	switch p.settings.Mode {
	case modeSync:
		buf, err = p.mgr.GetBuffer(name)
	case modeAsync:
		buf, err = p.loadAsync(ctx, name)
	}
	if err != nil {
		return err
	}
	if buf != nil {
		rate = buf.Format().SampleRate
		defer func() {
			if err := p.mgr.RemoveBufferHandle(buf); err != nil {
				p.logger.Warn("failed to remove buffer", "name", name, "error", err)
			}
		}()
	}

	src, err := p.mgr.CreateSource()
	if err != nil {
		return err
	}
	defer func() {
		if err := src.Release(); err != nil {
			p.logger.Warn("failed to release source", "error", err)
		}
	}()

	if buf != nil {
		err = src.Play(buf)
	} else {
		rate, err = p.stream(src, name)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Playing %s (%dhz)\n", name, rate)

	return p.wait(ctx, src, rate)
}

func (p *player) loadAsync(ctx context.Context, name string) (*audmgr.Buffer, error) {
	buf, err := p.mgr.GetBufferAsync(name)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(p.settings.Poll)
	defer ticker.Stop()
	for buf.LoadStatus() == audmgr.Pending {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		if err := p.mgr.Update(); err != nil {
			return nil, err
		}
	}

	if buf.LoadStatus() == audmgr.Failed {
		return nil, fmt.Errorf("%w: %s", audio.ErrBufferLoadFailed, name)
	}
	return buf, nil
}

func (p *player) stream(src *audmgr.Source, name string) (int, error) {
	dec, err := p.mgr.CreateDecoder(name)
	if err != nil {
		return 0, err
	}
	rate := dec.SampleRate()
	if err := src.PlayStream(dec, p.settings.ChunkFrames, p.settings.QueueChunks); err != nil {
		return 0, err
	}
	return rate, nil
}

// wait updates the context until src finishes or ctx is canceled.
func (p *player) wait(ctx context.Context, src *audmgr.Source, rate int) error {
	ticker := time.NewTicker(p.settings.Poll)
	defer ticker.Stop()

	frames := uint64(p.settings.Poll.Seconds() * float64(rate))
	for src.IsPlaying() {
		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), src.Stop())
		case <-ticker.C:
		}

		if p.null != nil {
			p.null.Advance(max(frames, 1))
		}
		if err := p.mgr.Update(); err != nil {
			return err
		}
	}
	return nil
}
