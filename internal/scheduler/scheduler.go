// Package scheduler manages the background jobs that keep caches and
// the price mirror warm.
package scheduler

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrUnknownJob is returned when a job name has never been registered
var ErrUnknownJob = errors.New("unknown job")

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// JobInfo describes a registered job and its most recent run
type JobInfo struct {
	Name       string     `json:"name"`
	Schedule   string     `json:"schedule"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	LastStatus string     `json:"last_status,omitempty"` // "ok" or "failed"
	LastError  string     `json:"last_error,omitempty"`
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	mu   sync.Mutex
	jobs map[string]Job
	info map[string]*JobInfo
	log  zerolog.Logger
}

// New creates a new scheduler. Schedules use six-field cron expressions
// (seconds first) or @-descriptors.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		jobs: make(map[string]Job),
		info: make(map[string]*JobInfo),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a job with a cron schedule. Failures are logged, a
// job run never takes the scheduler down.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		_ = s.runJob(job)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.jobs[job.Name()] = job
	s.info[job.Name()] = &JobInfo{Name: job.Name(), Schedule: schedule}
	s.mu.Unlock()

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// Jobs lists registered jobs with their last run state, sorted by name
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := make([]JobInfo, 0, len(s.info))
	for _, ji := range s.info {
		info = append(info, *ji)
	}
	sort.Slice(info, func(i, j int) bool { return info[i].Name < info[j].Name })
	return info
}

// RunNow executes a registered job immediately, outside its schedule
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownJob
	}

	s.log.Info().Str("job", name).Msg("Running job immediately")
	return s.runJob(job)
}

func (s *Scheduler) runJob(job Job) error {
	log := s.log.With().
		Str("job", job.Name()).
		Str("run_id", uuid.New().String()).
		Logger()
	log.Debug().Msg("Running job")

	err := job.Run()
	s.recordRun(job.Name(), err)

	if err != nil {
		log.Error().Err(err).Msg("Job failed")
		return err
	}

	log.Debug().Msg("Job completed")
	return nil
}

func (s *Scheduler) recordRun(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.info[name]
	if !ok {
		return
	}

	now := time.Now().UTC()
	info.LastRun = &now
	if err != nil {
		info.LastStatus = "failed"
		info.LastError = err.Error()
	} else {
		info.LastStatus = "ok"
		info.LastError = ""
	}
}
