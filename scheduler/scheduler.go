package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Job interface {
	Run()
}

type SchedulerParams struct {
	Logger zerolog.Logger
}

func NewScheduler(params SchedulerParams) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger{params.Logger}),
			cron.Recover(cronLogger{params.Logger}),
		)),
		logger: params.Logger,
		jobs:   make(map[cron.EntryID]Job),
	}
}

type Scheduler struct {
	cron   *cron.Cron
	jobs   map[cron.EntryID]Job
	logger zerolog.Logger
}

// Start the scheduler in its own routine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop the scheduler and wait for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) AddJob(schedule string, job Job) error {
	entry, err := s.cron.AddJob(schedule, job)
	if err != nil {
		return fmt.Errorf("could not add job: %w", err)
	}

	s.jobs[entry] = job

	return nil
}

func (s *Scheduler) RemoveJobs() {
	for entry := range s.jobs {
		s.cron.Remove(entry)
		delete(s.jobs, entry)
	}
}

// Len is the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.jobs)
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	parent zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.parent.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.parent.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
