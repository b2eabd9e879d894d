package jobs

import (
	"context"
	"praid/internal/services"
	"time"

	logger "github.com/Bparsons0904/goLogger"
)

type StaleSweeper interface {
	SweepStale(ctx context.Context, olderThan time.Time) (int, error)
}

// StaleUploadJob fails uploads whose stream died with an earlier process.
type StaleUploadJob struct {
	uploads  StaleSweeper
	maxAge   time.Duration
	now      func() time.Time
	log      logger.Logger
	schedule services.Schedule
}

func NewStaleUploadJob(
	uploads StaleSweeper,
	maxAge time.Duration,
	schedule services.Schedule,
) *StaleUploadJob {
	log := logger.New("staleUploadJob")
	log.Info("Creating new stale upload job", "schedule", schedule.String(), "maxAge", maxAge)

	return &StaleUploadJob{
		uploads:  uploads,
		maxAge:   maxAge,
		now:      time.Now,
		log:      log,
		schedule: schedule,
	}
}

func (j *StaleUploadJob) Name() string {
	return "StaleUploadSweep"
}

func (j *StaleUploadJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	count, err := j.uploads.SweepStale(ctx, j.now().Add(-j.maxAge))
	if err != nil {
		return log.Err("stale upload sweep failed", err)
	}

	if count > 0 {
		log.Info("Marked stale uploads as failed", "count", count)
	}
	return nil
}

func (j *StaleUploadJob) Schedule() services.Schedule {
	return j.schedule
}
