package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vekfolio/riskengine/internal/database"
	"github.com/vekfolio/riskengine/internal/events"
)

// BackupJob creates, uploads and rotates backups on a schedule.
type BackupJob struct {
	service       *BackupService
	bus           *events.Bus
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates a new backup job.
func NewBackupJob(service *BackupService, bus *events.Bus, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		bus:           bus,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name for scheduling and logging.
func (j *BackupJob) Name() string {
	return "backup"
}

// Run uploads a fresh backup, then rotates old ones.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return err
	}

	if err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		// Rotation failure leaves extra backups around; not fatal
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	if j.bus != nil {
		j.bus.Publish(events.Event{Type: events.EventBackupCompleted})
	}

	return nil
}

// MaintenanceJob runs daily database upkeep: integrity checks and WAL
// checkpoints across all databases.
type MaintenanceJob struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewMaintenanceJob creates a new maintenance job.
func NewMaintenanceJob(databases map[string]*database.DB, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		log:       log.With().Str("job", "db_maintenance").Logger(),
	}
}

// Name returns the job name for scheduling and logging.
func (j *MaintenanceJob) Name() string {
	return "db_maintenance"
}

// Run checks integrity and truncates the WAL of every database. A corrupt
// database is a hard failure; a failed checkpoint is only logged.
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for name, db := range j.databases {
		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", name).Msg("Integrity check failed")
			return err
		}

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
		}
	}

	j.log.Info().Int("databases", len(j.databases)).Msg("Database maintenance completed")
	return nil
}
