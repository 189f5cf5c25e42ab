// Package scheduler runs named maintenance jobs on fixed intervals. It is
// the timer owner of the process: services expose plain operations and this
// package decides when they fire.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// Job is one periodic operation. Run errors are logged; the job keeps its
// cadence regardless.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	logger logging.Logger
	jobs   []Job
}

func New(logger logging.Logger) *Scheduler {
	return &Scheduler{logger: logger.With("module", "scheduler")}
}

// Add registers a job. Jobs with a non-positive interval are ignored.
func (s *Scheduler) Add(name string, interval time.Duration, run func(ctx context.Context) error) {
	if interval <= 0 {
		return
	}
	s.jobs = append(s.jobs, Job{Name: name, Interval: interval, Run: run})
}

// Run starts one ticker goroutine per job and blocks until ctx is cancelled
// and every goroutine has stopped.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for _, job := range s.jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()

			ticker := time.NewTicker(job.Interval)
			defer ticker.Stop()

			s.logger.Info(ctx, "job scheduled", "job", job.Name, "interval", job.Interval.String())

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := job.Run(ctx); err != nil {
						s.logger.Error(ctx, "job failed", "job", job.Name, "error", err.Error())
					}
				}
			}
		}(job)
	}

	wg.Wait()
}
