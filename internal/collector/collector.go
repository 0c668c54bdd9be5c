// Package collector mirrors the host's process table into the
// registry.
//
// A Collector periodically reads a Source (procfs in production, a
// fake in tests) and reconciles the registry against it: new processes
// are spawned under their parent's task, state changes are applied,
// and vanished processes exit. Processes whose parent is unknown hang
// off the root task, matching how orphans are reparented.
package collector

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/vatlidak/proctree-go/internal/core/domain"
	"github.com/vatlidak/proctree-go/internal/registry"
	"github.com/vatlidak/proctree-go/internal/telemetry/metric"
)

// ProcInfo is one process row from the Source.
type ProcInfo struct {
	PID   int
	PPID  int
	Comm  string
	State byte
	UID   uint32
}

// Source enumerates the live processes.
type Source interface {
	Procs(ctx context.Context) ([]ProcInfo, error)
}

// DefaultInterval is how often the collector reconciles when no
// interval is configured.
const DefaultInterval = 2 * time.Second

// Collector reconciles the registry against a process Source.
type Collector struct {
	reg      *registry.Registry
	source   Source
	logger   *slog.Logger
	interval time.Duration
	metrics  *metric.Metrics

	// pidTask maps OS process IDs to registry task IDs. Only the
	// collector goroutine touches it.
	pidTask map[int]domain.TaskID
}

// Option configures a Collector.
type Option func(*Collector)

// WithInterval overrides the reconciliation interval.
func WithInterval(d time.Duration) Option {
	return func(c *Collector) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithMetrics records sync outcomes on m.
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Collector) {
		c.metrics = m
	}
}

// New creates a Collector over the registry and source.
func New(reg *registry.Registry, source Source, logger *slog.Logger, opts ...Option) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Collector{
		reg:      reg,
		source:   source,
		logger:   logger,
		interval: DefaultInterval,
		pidTask:  make(map[int]domain.TaskID),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run reconciles on a ticker until ctx is canceled. The first sync
// happens immediately.
func (c *Collector) Run(ctx context.Context) error {
	if err := c.Sync(ctx); err != nil {
		c.logger.Error("initial sync failed", "error", err)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.Sync(ctx); err != nil {
				c.logger.Error("sync failed", "error", err)
			}
		}
	}
}

// Sync performs one reconciliation pass.
func (c *Collector) Sync(ctx context.Context) error {
	procs, err := c.source.Procs(ctx)
	if err != nil {
		if c.metrics != nil {
			c.metrics.CollectorSyncErrors.Inc()
		}
		return err
	}

	byPID := make(map[int]ProcInfo, len(procs))
	for _, p := range procs {
		byPID[p.PID] = p
	}

	// Exits first, so a reused PID is never mistaken for its previous
	// owner.
	for pid, taskID := range c.pidTask {
		if _, alive := byPID[pid]; alive {
			continue
		}
		if err := c.reg.Exit(taskID); err != nil {
			c.logger.Warn("exit failed", "pid", pid, "task", taskID, "error", err)
		}
		delete(c.pidTask, pid)
	}

	// Spawn parents before children: sort by PID as a cheap first
	// approximation, then resolve remaining out-of-order parents
	// recursively.
	sort.Slice(procs, func(i, j int) bool { return procs[i].PID < procs[j].PID })
	for _, p := range procs {
		c.ensure(p, byPID, make(map[int]bool))
	}

	if c.metrics != nil {
		c.metrics.CollectorSyncs.Inc()
	}
	return nil
}

// ensure makes sure the process and its ancestors have tasks, then
// applies any state change. visiting guards against PPID cycles in a
// racy /proc read.
func (c *Collector) ensure(p ProcInfo, byPID map[int]ProcInfo, visiting map[int]bool) domain.TaskID {
	if id, ok := c.pidTask[p.PID]; ok {
		state := domain.StateFromStatChar(p.State)
		if err := c.reg.SetState(id, state); err != nil {
			c.logger.Warn("set state failed", "pid", p.PID, "error", err)
		}
		return id
	}
	if visiting[p.PID] {
		return domain.RootTaskID
	}
	visiting[p.PID] = true

	parentTask := domain.RootTaskID
	if parent, ok := byPID[p.PPID]; ok && p.PPID != p.PID {
		parentTask = c.ensure(parent, byPID, visiting)
	}

	id, err := c.reg.Spawn(parentTask, domain.TruncateLabel(p.Comm), p.UID, domain.StateFromStatChar(p.State))
	if err != nil {
		c.logger.Warn("spawn failed", "pid", p.PID, "error", err)
		return domain.RootTaskID
	}
	c.pidTask[p.PID] = id
	return id
}

// TaskFor returns the registry task mirroring an OS process, if any.
// Only safe to call from the collector goroutine.
func (c *Collector) TaskFor(pid int) (domain.TaskID, bool) {
	id, ok := c.pidTask[pid]
	return id, ok
}
