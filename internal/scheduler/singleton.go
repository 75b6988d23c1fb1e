package scheduler

import (
	"context"
	"sync"
	"time"

	"empire/internal/logger"
)

// DailyJob is a named task that must run once per UTC day at a fixed hour.
type DailyJob struct {
	Name string
	Hour int
	Run  func(ctx context.Context)
}

// JobState persists the last-fired day per job so a restart after a job's
// hour does not re-fire it the same day. A nil state keeps the day in memory
// only.
type JobState interface {
	LastJobRun(name string) (int, bool)
	SetLastJobRun(name string, day int) error
}

// DailyRunner fires each registered job once per UTC day at its hour. A job
// that was missed (process started after the hour, or a long stall) fires on
// the next check rather than waiting a full day. The runner is intended to be
// constructed once per process; per-symbol loops never own one.
type DailyRunner struct {
	ctx      context.Context
	state    JobState
	nowFn    func() time.Time
	interval time.Duration

	mu      sync.Mutex
	jobs    []*dailyJobState
	started bool
}

type dailyJobState struct {
	job     DailyJob
	lastDay int  // year*1000 + yday of the last firing, 0 = never
	loaded  bool // persisted day restored
}

func NewDailyRunner(ctx context.Context, state JobState) *DailyRunner {
	if ctx == nil {
		ctx = context.Background()
	}
	return &DailyRunner{
		ctx:      ctx,
		state:    state,
		nowFn:    time.Now,
		interval: time.Minute,
	}
}

// Register adds a job. Must be called before Start.
func (r *DailyRunner) Register(job DailyJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		logger.Warnf("daily runner: register after start ignored: %s", job.Name)
		return
	}
	if job.Run == nil {
		return
	}
	if job.Hour < 0 || job.Hour > 23 {
		logger.Warnf("daily runner: job %s has invalid hour %d, ignored", job.Name, job.Hour)
		return
	}
	r.jobs = append(r.jobs, &dailyJobState{job: job})
}

// Start blocks until ctx is done. Jobs run inline on the runner goroutine so
// two global jobs can never overlap each other.
func (r *DailyRunner) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		logger.Warnf("daily runner: Start called twice, ignored")
		return
	}
	r.started = true
	jobs := r.jobs
	r.mu.Unlock()

	logger.Infof("daily runner: started with %d job(s)", len(jobs))
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			logger.Infof("daily runner: ctx done, exit")
			return
		case <-ticker.C:
			r.check(jobs)
		}
	}
}

func (r *DailyRunner) check(jobs []*dailyJobState) {
	now := r.nowFn().UTC()
	day := now.Year()*1000 + now.YearDay()
	for _, st := range jobs {
		if !st.loaded {
			st.loaded = true
			if r.state != nil {
				if d, ok := r.state.LastJobRun(st.job.Name); ok {
					st.lastDay = d
				}
			}
		}
		if st.lastDay == day {
			continue
		}
		if now.Hour() < st.job.Hour {
			continue
		}
		st.lastDay = day
		if r.state != nil {
			if err := r.state.SetLastJobRun(st.job.Name, day); err != nil {
				logger.Warnf("daily runner: persisting last run of %s failed: %v", st.job.Name, err)
			}
		}
		logger.Infof("daily runner: firing %s (hour=%d now=%s)", st.job.Name, st.job.Hour, now.Format("15:04"))
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Errorf("daily runner: job %s panicked: %v", st.job.Name, rec)
				}
			}()
			st.job.Run(r.ctx)
		}()
	}
}
