package jobs

import (
	"context"
	"praid/internal/services"
	"praid/internal/types"

	logger "github.com/Bparsons0904/goLogger"
)

type HealthRefresher interface {
	Refresh(ctx context.Context) (*types.HealthSnapshot, error)
}

// HealthPollJob re-checks the service tree so consoles see changes without asking.
type HealthPollJob struct {
	health   HealthRefresher
	log      logger.Logger
	schedule services.Schedule
}

func NewHealthPollJob(health HealthRefresher, schedule services.Schedule) *HealthPollJob {
	log := logger.New("healthPollJob")
	log.Info("Creating new health poll job", "schedule", schedule.String())

	return &HealthPollJob{
		health:   health,
		log:      log,
		schedule: schedule,
	}
}

func (j *HealthPollJob) Name() string {
	return "HealthPoll"
}

func (j *HealthPollJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	snapshot, err := j.health.Refresh(ctx)
	if err != nil {
		return log.Err("health refresh failed", err)
	}

	log.Debug("Health poll completed", "status", snapshot.Root.Status, "hash", snapshot.Hash)
	return nil
}

func (j *HealthPollJob) Schedule() services.Schedule {
	return j.schedule
}
