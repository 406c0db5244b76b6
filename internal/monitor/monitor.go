// Package monitor assembles the dashboard reports from the Docker engine, the
// host sampler and the traffic estimator.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hostwatch/hostwatch/internal/docker"
	"github.com/hostwatch/hostwatch/internal/model"
	"github.com/hostwatch/hostwatch/internal/traffic"
)

// statsConcurrency bounds parallel stats requests per poll.
const statsConcurrency = 4

// defaultPollTimeout bounds one shared traffic poll.
const defaultPollTimeout = 30 * time.Second

// tunnelLogTail is how many log lines are searched for the registration line.
const tunnelLogTail = 200

var tunnelRegistered = regexp.MustCompile(`(?i)Registered tunnel connection`)

// DockerAPI is what the monitor needs from the engine. *docker.Client
// satisfies it.
type DockerAPI interface {
	ListContainers(ctx context.Context, all bool) ([]docker.Container, error)
	ContainerStats(ctx context.Context, id string) (*docker.Stats, error)
	ContainerLogs(ctx context.Context, name string, tail int) (string, error)
}

// HostSampler produces host snapshots. *sysinfo.Sampler satisfies it.
type HostSampler interface {
	Snapshot(ctx context.Context) (*model.SystemInfo, error)
}

// Config names the containers the dashboard watches.
type Config struct {
	Services          []string
	FirebirdContainer string
	TunnelContainer   string
}

// Monitor serves the read-only dashboard reports.
type Monitor struct {
	docker    DockerAPI
	host      HostSampler
	cfg       Config
	estimator *traffic.Estimator
	logger    *slog.Logger
	now       func() time.Time

	polls       singleflight.Group
	pollTimeout time.Duration
}

// New creates a Monitor.
func New(d DockerAPI, host HostSampler, cfg Config, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		docker:      d,
		host:        host,
		cfg:         cfg,
		estimator:   traffic.NewEstimator(),
		logger:      logger,
		now:         time.Now,
		pollTimeout: defaultPollTimeout,
	}
}

// System returns the host snapshot.
func (m *Monitor) System(ctx context.Context) (*model.SystemInfo, error) {
	return m.host.Snapshot(ctx)
}

// Docker lists every container with its display fields.
func (m *Monitor) Docker(ctx context.Context) (*model.DockerReport, error) {
	containers, err := m.docker.ListContainers(ctx, true)
	if err != nil {
		return nil, err
	}

	report := &model.DockerReport{Status: "ok", Containers: make([]model.ContainerSummary, 0, len(containers))}
	for _, c := range containers {
		report.Containers = append(report.Containers, model.ContainerSummary{
			Name:    c.PrimaryName(),
			Image:   c.Image,
			Status:  c.Status,
			Running: c.Running(),
			Uptime:  c.Status,
			Ports:   docker.HumanPorts(c.Ports),
			Network: c.HostConfig.NetworkMode,
		})
		if c.Running() {
			report.Running++
		}
	}
	report.Total = len(report.Containers)
	return report, nil
}

// Services reports whether each watched container is running. Containers
// that do not exist report false.
func (m *Monitor) Services(ctx context.Context) (*model.ServicesReport, error) {
	containers, err := m.docker.ListContainers(ctx, true)
	if err != nil {
		return nil, err
	}

	running := make(map[string]bool, len(containers))
	for _, c := range containers {
		running[c.PrimaryName()] = c.Running()
	}
	report := &model.ServicesReport{Status: "ok", Services: make(map[string]bool, len(m.cfg.Services))}
	for _, name := range m.cfg.Services {
		report.Services[name] = running[name]
	}
	return report, nil
}

// Firebird reports whether the database container is up and which image tag
// it runs.
func (m *Monitor) Firebird(ctx context.Context) (*model.FirebirdStatus, error) {
	start := m.now()
	containers, err := m.docker.ListContainers(ctx, true)
	if err != nil {
		return nil, err
	}

	name := m.cfg.FirebirdContainer
	c, ok := docker.FindByName(containers, name)
	if !ok || !c.Running() {
		return &model.FirebirdStatus{
			Status: "ok",
			Detail: fmt.Sprintf("container %s is not running", name),
		}, nil
	}

	elapsed := m.now().Sub(start).Milliseconds()
	version := docker.ImageVersion(c.Image)
	return &model.FirebirdStatus{
		Status:     "ok",
		OK:         true,
		ResponseMs: &elapsed,
		Version:    &version,
		Detail:     "firebird container active",
	}, nil
}

// Tunnel reports whether the tunnel connector runs and has registered a
// connection. A log read failure counts as not registered.
func (m *Monitor) Tunnel(ctx context.Context) (*model.TunnelStatus, error) {
	containers, err := m.docker.ListContainers(ctx, true)
	if err != nil {
		return nil, err
	}

	name := m.cfg.TunnelContainer
	c, ok := docker.FindByName(containers, name)
	status := &model.TunnelStatus{Status: "ok", Running: ok && c.Running()}

	logs, err := m.docker.ContainerLogs(ctx, name, tunnelLogTail)
	if err != nil {
		m.logger.Debug("tunnel logs unavailable", "container", name, "error", err)
		return status, nil
	}
	status.Registered = tunnelRegistered.MatchString(logs)
	return status, nil
}

// TrafficReport polls network counters for every running container and
// converts them into rates. Concurrent callers share one in-flight poll, so
// the estimator never sees overlapping cycles. The poll is detached from the
// caller that started it and bounded by a timeout; a caller whose ctx ends
// first gets ctx.Err() while the others keep waiting.
func (m *Monitor) TrafficReport(ctx context.Context) (*model.TrafficReport, error) {
	ch := m.polls.DoChan("traffic", func() (any, error) {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.pollTimeout)
		defer cancel()
		return m.pollTraffic(pctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.TrafficReport), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type containerSample struct {
	container docker.Container
	rx, tx    uint64
	ok        bool
}

func (m *Monitor) pollTraffic(ctx context.Context) (*model.TrafficReport, error) {
	containers, err := m.docker.ListContainers(ctx, false)
	if err != nil {
		// Counters restart with the engine, so old baselines would yield one
		// bogus sample once it is back.
		m.estimator.Reset()
		return nil, err
	}

	samples := make([]containerSample, len(containers))
	var failedMu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statsConcurrency)
	for i, c := range containers {
		samples[i].container = c
		g.Go(func() error {
			stats, err := m.docker.ContainerStats(gctx, c.ID)
			if err != nil {
				m.logger.Warn("container stats failed", "container", c.PrimaryName(), "error", err)
				failedMu.Lock()
				failed++
				failedMu.Unlock()
				return nil
			}
			samples[i].rx, samples[i].tx = stats.NetworkTotals()
			samples[i].ok = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := m.now()
	report := &model.TrafficReport{
		Status:     "ok",
		SampledAt:  now,
		Containers: make([]model.ContainerTraffic, 0, len(samples)),
		Partial:    failed > 0,
	}

	current := make(map[string]struct{}, len(samples))
	rates := make([]traffic.Sample, 0, len(samples))
	apps := make(map[string]string, len(samples))
	var sumRx, sumTx uint64

	for _, s := range samples {
		c := s.container
		current[c.ID] = struct{}{}
		if !s.ok {
			continue
		}

		rate := m.estimator.Observe(c.ID, s.rx, s.tx, now)
		sumRx += s.rx
		sumTx += s.tx

		app := appName(&c)
		apps[c.ID] = app
		rates = append(rates, traffic.Sample{ID: c.ID, Name: c.PrimaryName(), RxBytes: s.rx, TxBytes: s.tx, Rate: rate})
		report.Containers = append(report.Containers, model.ContainerTraffic{
			ID:      c.ID,
			Name:    c.PrimaryName(),
			App:     app,
			RxBytes: s.rx,
			TxBytes: s.tx,
			RxBps:   rate.RxBps,
			TxBps:   rate.TxBps,
		})
	}

	report.Total = model.TrafficTotal{RxBytes: sumRx, TxBytes: sumTx}
	if !report.Partial {
		total := m.estimator.ObserveTotal(sumRx, sumTx, now)
		report.Total.RxBps, report.Total.TxBps = total.RxBps, total.TxBps
	}
	m.estimator.Reconcile(current)

	groups := traffic.GroupBy(rates, func(s traffic.Sample) string { return apps[s.ID] })
	report.Apps = make([]model.AppTraffic, len(groups))
	for i, g := range groups {
		report.Apps[i] = model.AppTraffic{
			Name:       g.Name,
			Containers: g.Members,
			RxBytes:    g.RxBytes,
			TxBytes:    g.TxBytes,
			RxBps:      g.Rate.RxBps,
			TxBps:      g.Rate.TxBps,
		}
	}
	return report, nil
}

// appName groups containers by compose project, falling back to the
// container's own name.
func appName(c *docker.Container) string {
	if p := c.ComposeProject(); p != "" {
		return p
	}
	return c.PrimaryName()
}
