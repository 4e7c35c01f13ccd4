package sandbox

import (
	"context"
	"sync"
	"time"

	"github.com/BTreeMap/FieldOps/internal/capability"
)

// ManualClock is a Clock whose timers only fire when Tick is called.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers map[int]func()
}

// NewManualClock returns a clock frozen at now.
func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now, timers: make(map[int]func())}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward without firing timers.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *ManualClock) Every(ctx context.Context, interval time.Duration, tick func()) {
	c.mu.Lock()
	c.seq++
	id := c.seq
	c.timers[id] = tick
	c.mu.Unlock()

	<-ctx.Done()

	c.mu.Lock()
	delete(c.timers, id)
	c.mu.Unlock()
}

// Timers reports how many repeating timers are running.
func (c *ManualClock) Timers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Tick fires every running timer once.
func (c *ManualClock) Tick() {
	c.mu.Lock()
	ticks := make([]func(), 0, len(c.timers))
	for _, t := range c.timers {
		ticks = append(ticks, t)
	}
	c.mu.Unlock()
	for _, t := range ticks {
		t()
	}
}

// Recorder is a Diagnostics sink that keeps everything in memory.
type Recorder struct {
	mu          sync.Mutex
	incidents   []capability.Incident
	breadcrumbs []capability.Breadcrumb
	user        string
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Capture(ctx context.Context, incident capability.Incident) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incidents = append(r.incidents, incident)
}

func (r *Recorder) AddBreadcrumb(ctx context.Context, b capability.Breadcrumb) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breadcrumbs = append(r.breadcrumbs, b)
}

func (r *Recorder) UpdateUser(ctx context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.user = id
}

// Incidents returns the captured incidents.
func (r *Recorder) Incidents() []capability.Incident {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]capability.Incident(nil), r.incidents...)
}

// Breadcrumbs returns the recorded breadcrumbs.
func (r *Recorder) Breadcrumbs() []capability.Breadcrumb {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]capability.Breadcrumb(nil), r.breadcrumbs...)
}

// User returns the last user id.
func (r *Recorder) User() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.user
}
