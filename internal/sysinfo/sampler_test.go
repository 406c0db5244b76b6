package sysinfo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hostwatch/hostwatch/internal/model"
)

func fakeProbes() probes {
	return probes{
		cpuPercent: func(context.Context, time.Duration) (float64, error) { return 12.3456, nil },
		cpuCores:   func(context.Context) (int, error) { return 8, nil },
		memory:     func(context.Context) (uint64, uint64, error) { return 1000, 250, nil },
		disk:       func(context.Context, string) (uint64, uint64, error) { return 200, 50, nil },
		uptime:     func(context.Context) (uint64, error) { return 3600, nil },
		hostname:   func() (string, error) { return "os-host", nil },
	}
}

func TestSnapshot(t *testing.T) {
	t.Setenv(HostnameEnv, "")
	s := &Sampler{cfg: Config{DiskPath: "/"}, probes: fakeProbes()}

	got, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	want := &model.SystemInfo{
		Status:        "ok",
		Hostname:      "os-host",
		CPUPercent:    12.35,
		CPUCores:      8,
		Memory:        model.UsageStats{Total: 1000, Used: 750, Percent: 75},
		Disk:          model.UsageStats{Total: 200, Used: 50, Percent: 25},
		UptimeSeconds: 3600,
	}
	if *got != *want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestSnapshotDiskFailureReportsZeros(t *testing.T) {
	p := fakeProbes()
	p.disk = func(context.Context, string) (uint64, uint64, error) { return 0, 0, errors.New("no such mount") }
	s := &Sampler{cfg: Config{DiskPath: "/missing"}, probes: p}

	got, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got.Disk != (model.UsageStats{}) {
		t.Errorf("got disk %+v, want zeros", got.Disk)
	}
}

func TestSnapshotCPUFailure(t *testing.T) {
	p := fakeProbes()
	p.cpuPercent = func(context.Context, time.Duration) (float64, error) { return 0, errors.New("boom") }
	s := &Sampler{probes: p}

	if _, err := s.Snapshot(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestHostnamePrecedence(t *testing.T) {
	t.Setenv(HostnameEnv, "env-host")

	s := &Sampler{probes: fakeProbes()}
	if got := s.hostname(); got != "env-host" {
		t.Errorf("hostname = %q, want env-host", got)
	}

	s.cfg.Hostname = "configured"
	if got := s.hostname(); got != "configured" {
		t.Errorf("hostname = %q, want configured", got)
	}
}
