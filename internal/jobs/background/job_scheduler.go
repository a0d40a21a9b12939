package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dmis/internal/config"
	"dmis/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job names
const (
	JobPlanning         = "replenishment-planning"
	JobFreshnessRefresh = "freshness-refresh"
)

// ErrJobNotRegistered is returned when a named job was never scheduled.
var ErrJobNotRegistered = errors.New("job not registered")

// JobScheduler runs periodic planning and freshness jobs
type JobScheduler struct {
	scheduler   gocron.Scheduler
	planning    services.PlanningService
	freshness   services.FreshnessService
	events      services.EventService
	systemActor uuid.UUID
	runTimeout  time.Duration
	logger      *zap.Logger
	jobs        map[string]gocron.Job
	lastResults map[uuid.UUID]*services.PlanningResult
	mu          sync.RWMutex
}

// NewJobScheduler creates the scheduler and registers its jobs. The planning
// job is only registered when a system actor is configured.
func NewJobScheduler(planning services.PlanningService, freshness services.FreshnessService, events services.EventService,
	cfg config.SchedulerConfig, logger *zap.Logger) (*JobScheduler, error) {

	limit := cfg.MaxConcurrentRuns
	if limit <= 0 {
		limit = 1
	}
	scheduler, err := gocron.NewScheduler(
		gocron.WithLimitConcurrentJobs(uint(limit), gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler:   scheduler,
		planning:    planning,
		freshness:   freshness,
		events:      events,
		runTimeout:  10 * time.Minute,
		logger:      logger,
		jobs:        make(map[string]gocron.Job),
		lastResults: make(map[uuid.UUID]*services.PlanningResult),
	}

	if cfg.SystemActorID != "" {
		actor, err := uuid.Parse(cfg.SystemActorID)
		if err != nil {
			return nil, fmt.Errorf("invalid scheduler.system_actor_id %q: %w", cfg.SystemActorID, err)
		}
		js.systemActor = actor
	}

	if err := js.registerJobs(cfg); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler", zap.Int("jobs", len(js.jobs)))
	js.scheduler.Start()
}

// Stop waits for running jobs and stops the scheduler
func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs(cfg config.SchedulerConfig) error {
	freshnessEvery := time.Duration(cfg.FreshnessIntervalMinutes) * time.Minute
	if freshnessEvery <= 0 {
		freshnessEvery = 5 * time.Minute
	}
	if err := js.addJob(JobFreshnessRefresh, freshnessEvery, js.refreshFreshness); err != nil {
		return err
	}

	if js.systemActor == uuid.Nil {
		js.logger.Warn("scheduler.system_actor_id not set, periodic planning disabled")
		return nil
	}
	planningEvery := time.Duration(cfg.PlanningIntervalMinutes) * time.Minute
	if planningEvery <= 0 {
		planningEvery = time.Hour
	}
	return js.addJob(JobPlanning, planningEvery, js.planActiveEvents)
}

func (js *JobScheduler) addJob(name string, every time.Duration, task func()) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	job, err := js.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", name, err)
	}
	js.jobs[name] = job
	js.logger.Info("registered job", zap.String("job", name), zap.Duration("every", every))
	return nil
}

// RefreshNow runs the freshness job out of schedule.
func (js *JobScheduler) RefreshNow() error {
	return js.RunNow(JobFreshnessRefresh)
}

// RunNow triggers a registered job immediately.
func (js *JobScheduler) RunNow(name string) error {
	js.mu.RLock()
	job, ok := js.jobs[name]
	js.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotRegistered, name)
	}
	return job.RunNow()
}

func (js *JobScheduler) refreshFreshness() {
	ctx, cancel := context.WithTimeout(context.Background(), js.runTimeout)
	defer cancel()

	summary, err := js.freshness.Recompute(ctx)
	if err != nil {
		js.logger.Error("freshness refresh failed", zap.Error(err))
		return
	}
	js.logger.Debug("freshness refreshed", zap.String("overall_state", string(summary.OverallState)))
}

func (js *JobScheduler) planActiveEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), js.runTimeout)
	defer cancel()
	js.runPlanning(ctx)
}

// runPlanning plans every active event in turn. A failure for one event does
// not stop the others.
func (js *JobScheduler) runPlanning(ctx context.Context) {
	events, err := js.events.ListActive(ctx)
	if err != nil {
		js.logger.Error("failed to list active events", zap.Error(err))
		return
	}

	for _, event := range events {
		if ctx.Err() != nil {
			js.logger.Warn("scheduled planning interrupted", zap.Error(ctx.Err()))
			return
		}
		result, err := js.planning.Run(ctx, services.PlanningRequest{
			EventID: event.ID,
			ActorID: js.systemActor,
			Trigger: services.TriggerScheduled,
		})
		if err != nil {
			js.logger.Error("scheduled planning failed", zap.Stringer("event_id", event.ID), zap.Error(err))
			continue
		}

		js.mu.Lock()
		js.lastResults[event.ID] = result
		js.mu.Unlock()
	}
}

// GetJobStatus returns information about scheduled jobs
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	jobs := make([]map[string]interface{}, 0, len(js.jobs))
	for name, job := range js.jobs {
		entry := map[string]interface{}{"name": name}
		if last, err := job.LastRun(); err == nil && !last.IsZero() {
			entry["last_run"] = last
		}
		if next, err := job.NextRun(); err == nil && !next.IsZero() {
			entry["next_run"] = next
		}
		jobs = append(jobs, entry)
	}

	runs := make(map[string]interface{}, len(js.lastResults))
	for eventID, r := range js.lastResults {
		runs[eventID.String()] = map[string]interface{}{
			"run_id":        r.RunID,
			"calculated_at": r.CalculatedAt,
			"needs_lists":   len(r.NeedsLists),
			"lines_planned": r.LinesPlanned,
			"lines_skipped": r.LinesSkipped,
			"cancelled":     r.Cancelled,
		}
	}

	return map[string]interface{}{
		"total_jobs":    len(js.jobs),
		"jobs":          jobs,
		"last_planning": runs,
	}
}
