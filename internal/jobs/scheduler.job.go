package jobs

import (
	"praid/config"
	"praid/internal/services"
	"time"

	logger "github.com/Bparsons0904/goLogger"
)

const (
	// uploads with no progress for this long are considered abandoned
	StaleUploadAge     = time.Hour
	StaleSweepInterval = 15 * time.Minute
)

func RegisterAllJobs(
	schedulerService *services.SchedulerService,
	config config.Config,
	health HealthRefresher,
	uploads StaleSweeper,
) error {
	log := logger.New("jobs").Function("RegisterAllJobs")

	if !config.SchedulerEnabled {
		log.Info("Scheduler disabled, skipping job registration")
		return nil
	}

	log.Info("Registering jobs")

	healthPollJob := NewHealthPollJob(health, services.Every(config.HealthPollInterval()))
	if err := schedulerService.AddJob(healthPollJob); err != nil {
		return log.Err("failed to register health poll job", err)
	}
	log.Info("Registered health poll job", "schedule", healthPollJob.Schedule().String())

	staleUploadJob := NewStaleUploadJob(uploads, StaleUploadAge, services.Every(StaleSweepInterval))
	if err := schedulerService.AddJob(staleUploadJob); err != nil {
		return log.Err("failed to register stale upload job", err)
	}
	log.Info("Registered stale upload job", "schedule", staleUploadJob.Schedule().String())

	return nil
}
