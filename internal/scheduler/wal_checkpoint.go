package scheduler

import (
	"github.com/rs/zerolog"
)

// Checkpointer is a database that can flush its write-ahead log.
type Checkpointer interface {
	Name() string
	WALCheckpoint(mode string) error
}

// WALCheckpointJob truncates the WAL of every registered database so
// the log files do not grow unbounded between restarts.
type WALCheckpointJob struct {
	databases []Checkpointer
	log       zerolog.Logger
}

// NewWALCheckpointJob creates a new WAL checkpoint job
func NewWALCheckpointJob(databases []Checkpointer, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		databases: databases,
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run checkpoints each database in turn. A failing database is logged
// and skipped so the others still get flushed.
func (j *WALCheckpointJob) Run() error {
	for _, db := range j.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().
				Err(err).
				Str("database", db.Name()).
				Msg("WAL checkpoint failed")
			continue
		}
		j.log.Debug().
			Str("database", db.Name()).
			Msg("WAL checkpoint completed")
	}
	return nil
}
