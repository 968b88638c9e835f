package clientdata

import (
	"github.com/rs/zerolog"
)

// CleanupJob prunes expired rows from the cache tables. Scheduled daily so
// cache.db does not grow without bound between restarts.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger
}

// NewCleanupJob creates the cache pruning job.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "client_data_cleanup").Logger(),
	}
}

// Name identifies the job to the scheduler.
func (j *CleanupJob) Name() string {
	return "client_data_cleanup"
}

// Run deletes expired rows from every cache table.
func (j *CleanupJob) Run() error {
	deleted, err := j.repo.DeleteAllExpired()
	if err != nil {
		j.log.Error().Err(err).Msg("Cache cleanup failed")
		return err
	}

	var total int64
	counts := zerolog.Dict()
	for table, n := range deleted {
		total += n
		counts.Int64(table, n)
	}

	if total == 0 {
		j.log.Debug().Msg("No expired cache entries")
		return nil
	}

	j.log.Info().
		Dict("deleted", counts).
		Int64("total", total).
		Msg("Removed expired cache entries")
	return nil
}
