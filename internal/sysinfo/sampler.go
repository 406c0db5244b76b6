// Package sysinfo samples host CPU, memory, disk and uptime counters.
package sysinfo

import (
	"context"
	"math"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/sync/errgroup"

	"github.com/hostwatch/hostwatch/internal/model"
)

// CPUWindow is how long CPU usage is measured for each snapshot.
const CPUWindow = 200 * time.Millisecond

// HostnameEnv overrides the reported hostname, for containers that see their
// own id as hostname.
const HostnameEnv = "HOST_HOSTNAME"

// Config selects what the sampler reports.
type Config struct {
	DiskPath string
	Hostname string
}

// probes are the OS reads behind a snapshot. Tests swap them out.
type probes struct {
	cpuPercent func(ctx context.Context, window time.Duration) (float64, error)
	cpuCores   func(ctx context.Context) (int, error)
	memory     func(ctx context.Context) (total, free uint64, err error)
	disk       func(ctx context.Context, path string) (total, used uint64, err error)
	uptime     func(ctx context.Context) (uint64, error)
	hostname   func() (string, error)
}

// Sampler produces host snapshots.
type Sampler struct {
	cfg    Config
	probes probes
}

// NewSampler creates a Sampler backed by gopsutil.
func NewSampler(cfg Config) *Sampler {
	if cfg.DiskPath == "" {
		cfg.DiskPath = "/"
	}
	return &Sampler{cfg: cfg, probes: gopsutilProbes()}
}

// Snapshot measures the host. CPU and disk are sampled concurrently; a disk
// read failure reports zeros rather than failing the snapshot.
func (s *Sampler) Snapshot(ctx context.Context) (*model.SystemInfo, error) {
	info := &model.SystemInfo{Status: "ok", Hostname: s.hostname()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pct, err := s.probes.cpuPercent(gctx, CPUWindow)
		if err != nil {
			return err
		}
		info.CPUPercent = round2(pct)
		return nil
	})
	g.Go(func() error {
		total, used, err := s.probes.disk(gctx, s.cfg.DiskPath)
		if err != nil {
			return nil
		}
		info.Disk = usage(total, used)
		return nil
	})

	cores, err := s.probes.cpuCores(ctx)
	if err == nil {
		info.CPUCores = cores
	}
	if total, free, err := s.probes.memory(ctx); err == nil {
		info.Memory = usage(total, total-free)
	}
	if up, err := s.probes.uptime(ctx); err == nil {
		info.UptimeSeconds = up
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return info, nil
}

func (s *Sampler) hostname() string {
	if s.cfg.Hostname != "" {
		return s.cfg.Hostname
	}
	if h := os.Getenv(HostnameEnv); h != "" {
		return h
	}
	h, _ := s.probes.hostname()
	return h
}

func usage(total, used uint64) model.UsageStats {
	u := model.UsageStats{Total: total, Used: used}
	if total > 0 {
		u.Percent = round2(float64(used) / float64(total) * 100)
	}
	return u
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func gopsutilProbes() probes {
	return probes{
		cpuPercent: func(ctx context.Context, window time.Duration) (float64, error) {
			pcts, err := cpu.PercentWithContext(ctx, window, false)
			if err != nil || len(pcts) == 0 {
				return 0, err
			}
			return pcts[0], nil
		},
		cpuCores: func(ctx context.Context) (int, error) {
			return cpu.CountsWithContext(ctx, true)
		},
		memory: func(ctx context.Context) (uint64, uint64, error) {
			v, err := mem.VirtualMemoryWithContext(ctx)
			if err != nil {
				return 0, 0, err
			}
			return v.Total, v.Free, nil
		},
		disk: func(ctx context.Context, path string) (uint64, uint64, error) {
			u, err := disk.UsageWithContext(ctx, path)
			if err != nil {
				return 0, 0, err
			}
			return u.Total, u.Used, nil
		},
		uptime:   host.UptimeWithContext,
		hostname: os.Hostname,
	}
}
