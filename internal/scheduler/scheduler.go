// Package scheduler runs the periodic jobs that keep the library warm: the
// full-library rescan and the existence-cache refresh.
package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// MinInterval bounds how often a job may run, so a misconfigured preference
// cannot flood the remote databases.
const MinInterval = 15 * time.Minute

type job struct {
	name string
	fn   func()
}

// Scheduler wraps cron with two behaviors the jobs rely on: every interval is
// clamped to MinInterval, and all jobs run once shortly after startup so the
// system is warm before the first interval elapses.
type Scheduler struct {
	cron  *cron.Cron
	jobs  []job
	grace time.Duration
}

func New() *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		grace: time.Minute,
	}
}

// Add registers a job to run every interval.
func (s *Scheduler) Add(name string, interval time.Duration, fn func()) error {
	interval = ClampInterval(interval)
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := s.cron.AddFunc(spec, fn); err != nil {
		return fmt.Errorf("scheduler: add %s: %w", name, err)
	}
	s.jobs = append(s.jobs, job{name: name, fn: fn})
	log.Printf("[scheduler] %s scheduled every %s", name, interval)
	return nil
}

// Start runs every job once after the startup grace delay, then begins the
// steady-state schedule.
func (s *Scheduler) Start() {
	go func() {
		time.Sleep(s.grace)
		for _, j := range s.jobs {
			log.Printf("[scheduler] initial run: %s", j.name)
			j.fn()
		}
		s.cron.Start()
	}()
}

// Stop halts the schedule. Jobs already running are not interrupted.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// ClampInterval enforces the interval floor.
func ClampInterval(interval time.Duration) time.Duration {
	if interval < MinInterval {
		return MinInterval
	}
	return interval
}
