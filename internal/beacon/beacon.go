// Package beacon provides a mountable marker that reports the lifecycle of
// one critical region to the interactivity registry.
package beacon

import (
	"sync"

	"github.com/jask/routepulse/internal/runloop"
)

// Reporter receives fire-and-forget readiness notifications.
type Reporter interface {
	DidReporterBecomeInteractive(name string)
	DidReporterBecomeNonInteractive(name string)
}

// Scheduler defers work until the host's next render pass has settled.
type Scheduler interface {
	AfterRender(fn func()) *runloop.Task
}

// Beacon reports interactive once after its first render following Mount,
// and non-interactive once on Unmount.
type Beacon struct {
	regionName string
	reporter   Reporter
	sched      Scheduler

	mu      sync.Mutex
	pending *runloop.Task
	mounted bool
	torn    bool
}

func New(regionName string, reporter Reporter, sched Scheduler) *Beacon {
	return &Beacon{regionName: regionName, reporter: reporter, sched: sched}
}

func (b *Beacon) RegionName() string {
	return b.regionName
}

// ReportingName is the name the registry knows this region by.
func (b *Beacon) ReportingName() string {
	return ReportingName(b.regionName)
}

// ReportingName builds the registry name for a beacon region.
func ReportingName(regionName string) string {
	return "beacon:" + regionName
}

// Mount schedules the become-interactive report. Only the first call has an
// effect; a torn down beacon cannot be mounted again.
func (b *Beacon) Mount() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mounted || b.torn {
		return
	}
	b.mounted = true
	b.pending = b.sched.AfterRender(b.reportInteractive)
}

// Unmount cancels a pending report and reports non-interactive. Idempotent.
func (b *Beacon) Unmount() {
	b.mu.Lock()
	if b.torn {
		b.mu.Unlock()
		return
	}
	b.torn = true
	b.pending.Cancel()
	b.pending = nil
	b.mu.Unlock()

	b.reporter.DidReporterBecomeNonInteractive(b.ReportingName())
}

func (b *Beacon) reportInteractive() {
	b.mu.Lock()
	if b.torn {
		b.mu.Unlock()
		return
	}
	b.pending = nil
	b.mu.Unlock()

	b.reporter.DidReporterBecomeInteractive(b.ReportingName())
}
