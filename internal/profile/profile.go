// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package profile captures pprof profiles around a signing run.
package profile

import (
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Config names the profile outputs. Empty paths are disabled.
type Config struct {
	CPUProfile   string
	MemProfile   string
	BlockProfile string
	MutexProfile string
}

// RegisterFlags binds the profile flags to fs.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.CPUProfile, "cpuprofile", "", "write a CPU profile to `file`")
	fs.StringVar(&c.MemProfile, "memprofile", "", "write a heap profile to `file`")
	fs.StringVar(&c.BlockProfile, "blockprofile", "", "write a block profile to `file`")
	fs.StringVar(&c.MutexProfile, "mutexprofile", "", "write a mutex profile to `file`")
}

// Enabled reports whether any profile is requested.
func (c Config) Enabled() bool {
	return c.CPUProfile != "" || c.MemProfile != "" || c.BlockProfile != "" || c.MutexProfile != ""
}

// Profiler runs the profiles named by a Config.
type Profiler struct {
	cfg     Config
	log     *zap.Logger
	cpuFile *os.File
	start   time.Time
}

// New returns a profiler. A nil logger is replaced with a no-op one.
func New(cfg Config, log *zap.Logger) *Profiler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Profiler{cfg: cfg, log: log}
}

// Start enables the requested profiles.
func (p *Profiler) Start() error {
	p.start = time.Now()
	if p.cfg.BlockProfile != "" {
		runtime.SetBlockProfileRate(1)
	}
	if p.cfg.MutexProfile != "" {
		runtime.SetMutexProfileFraction(1)
	}
	if p.cfg.CPUProfile == "" {
		return nil
	}
	f, err := os.Create(p.cfg.CPUProfile)
	if err != nil {
		return errors.Wrap(err, "create CPU profile")
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "start CPU profile")
	}
	p.cpuFile = f
	return nil
}

// Stop flushes every profile to disk.
func (p *Profiler) Stop() error {
	p.log.Info("profiling finished", zap.Duration("elapsed", time.Since(p.start)))
	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := p.cpuFile.Close(); err != nil {
			return errors.Wrap(err, "close CPU profile")
		}
		p.log.Info("wrote profile", zap.String("kind", "cpu"), zap.String("path", p.cfg.CPUProfile))
	}
	if p.cfg.MemProfile != "" {
		runtime.GC()
		if err := p.write("heap", p.cfg.MemProfile); err != nil {
			return err
		}
	}
	if p.cfg.BlockProfile != "" {
		err := p.write("block", p.cfg.BlockProfile)
		runtime.SetBlockProfileRate(0)
		if err != nil {
			return err
		}
	}
	if p.cfg.MutexProfile != "" {
		err := p.write("mutex", p.cfg.MutexProfile)
		runtime.SetMutexProfileFraction(0)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Profiler) write(kind, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s profile", kind)
	}
	defer f.Close()
	if err := pprof.Lookup(kind).WriteTo(f, 0); err != nil {
		return errors.Wrapf(err, "write %s profile", kind)
	}
	p.log.Info("wrote profile", zap.String("kind", kind), zap.String("path", path))
	return nil
}

// MemFields returns the current heap statistics as log fields.
func MemFields() []zap.Field {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return []zap.Field{
		zap.String("alloc", humanize.IBytes(m.Alloc)),
		zap.String("total_alloc", humanize.IBytes(m.TotalAlloc)),
		zap.String("sys", humanize.IBytes(m.Sys)),
		zap.Uint32("num_gc", m.NumGC),
	}
}
