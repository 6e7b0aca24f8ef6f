package scheduler

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a scheduled task that can be cancelled.
type Job interface {
	Cancel()
}

// Scheduler is the shared task scheduler for all things.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	cl     cron.Logger
	wg     sync.WaitGroup
}

// New starts a scheduler.
func New(logger *zap.Logger) *Scheduler {
	cl := cronLogger{log: logger.Named("scheduler").Sugar()}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl)))
	c.Start()
	return &Scheduler{cron: c, logger: logger.Named("scheduler"), cl: cl}
}

// Every runs fn now and then every interval. A run is skipped while the previous one is busy.
func (s *Scheduler) Every(name string, interval time.Duration, fn func()) Job {
	wrapped := cron.NewChain(cron.SkipIfStillRunning(s.cl)).Then(cron.FuncJob(fn))
	id := s.cron.Schedule(cron.Every(interval), wrapped)
	s.logger.Debug("job scheduled", zap.String("job", name), zap.Duration("interval", interval))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		wrapped.Run()
	}()
	return &periodicJob{cron: s.cron, id: id}
}

// Once runs fn after delay.
func (s *Scheduler) Once(name string, delay time.Duration, fn func()) Job {
	s.logger.Debug("one-shot job scheduled", zap.String("job", name), zap.Duration("delay", delay))
	s.wg.Add(1)
	j := &onceJob{}
	j.timer = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		if j.take() {
			fn()
		}
	})
	j.done = s.wg.Done
	return j
}

// Stop stops scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.wg.Wait()
}

type periodicJob struct {
	cron *cron.Cron
	id   cron.EntryID
}

func (j *periodicJob) Cancel() {
	j.cron.Remove(j.id)
}

type onceJob struct {
	mu    sync.Mutex
	timer *time.Timer
	fired bool
	done  func()
}

func (j *onceJob) take() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fired {
		return false
	}
	j.fired = true
	return true
}

func (j *onceJob) Cancel() {
	if j.timer.Stop() && j.take() {
		j.done()
	}
}

type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
