// Package jobmgr provides simple asynchronous job execution with
// cancellation, status callbacks, and in-memory tracking of running jobs.
// Delayed jobs cover the "do X after N minutes unless someone cancels"
// pattern (scheduled unmute, lockdown expiry).
//
// The package is intentionally minimal: no retry logic, no persistence.
// Jobs run in separate goroutines and are removed on completion.
package jobmgr

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Job represents a running unit of work.
type Job struct {
	Name   string
	Cancel context.CancelFunc
}

// StatusReporter receives lifecycle events for jobs. Example messages:
//
//	running:unmute:123
//	error:unmute:123:missing permissions
//	done:unmute:123
type StatusReporter func(string)

// Manager orchestrates starting, stopping and tracking jobs.
// It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	Reporter StatusReporter
}

// NewManager creates a new Manager. The reporter callback may be nil.
func NewManager(reporter StatusReporter) *Manager {
	return &Manager{
		jobs:     make(map[string]*Job),
		Reporter: reporter,
	}
}

// StartAsync runs a job in a separate goroutine and returns immediately.
// If a job with the same name is already running, an error is returned.
func (m *Manager) StartAsync(name string, runner func(ctx context.Context) error) error {
	return m.start(name, 0, runner)
}

// StartDelayed schedules runner to execute after delay. Cancelling the
// job before the delay elapses means the runner never fires; this is the
// contract manual overrides rely on so a stale timer cannot re-apply an
// already-reversed action. Scheduling over an existing job with the same
// name replaces it.
func (m *Manager) StartDelayed(name string, delay time.Duration, runner func(ctx context.Context) error) {
	_ = m.Stop(name)
	_ = m.start(name, delay, runner)
}

func (m *Manager) start(name string, delay time.Duration, runner func(ctx context.Context) error) error {
	m.mu.Lock()
	if _, exists := m.jobs[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("job '%s' is already running", name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{Name: name, Cancel: cancel}
	m.jobs[name] = job
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			// A replaced job must not remove its replacement's entry.
			if m.jobs[name] == job {
				delete(m.jobs, name)
			}
			m.mu.Unlock()
		}()

		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}

		m.report("running:" + name)
		if err := runner(ctx); err != nil {
			m.report("error:" + name + ":" + err.Error())
		} else {
			m.report("done:" + name)
		}
	}()

	return nil
}

// Stop cancels a running or pending job by name.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("job '%s' not running", name)
	}

	job.Cancel()
	delete(m.jobs, name)
	return nil
}

// List returns the list of active job names.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	return out
}

// Status returns a human-readable summary of active jobs.
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(active, ", "))
}

func (m *Manager) report(s string) {
	if m.Reporter != nil {
		m.Reporter(s)
	}
}
