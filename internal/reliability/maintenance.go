package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/stockpulse/stockpulse/internal/database"
)

// Disk space thresholds in GB.
const (
	diskSpaceCritical = 0.5
	diskSpaceLow      = 5.0
)

// MaintenanceService runs periodic health and hygiene routines over the
// databases.
type MaintenanceService struct {
	databases map[string]*database.DB
	dataDir   string
	log       zerolog.Logger
}

// NewMaintenanceService creates a maintenance service.
func NewMaintenanceService(databases map[string]*database.DB, dataDir string, log zerolog.Logger) *MaintenanceService {
	return &MaintenanceService{
		databases: databases,
		dataDir:   dataDir,
		log:       log.With().Str("service", "maintenance").Logger(),
	}
}

// RunDaily performs the daily maintenance sweep: integrity checks, WAL
// checkpoints, and a disk space check. Fails only on corruption or
// critically low disk space.
func (s *MaintenanceService) RunDaily(ctx context.Context) error {
	startTime := time.Now()

	for name, db := range s.databases {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("integrity check failed for %s: %w", name, err)
		}
	}

	for name, db := range s.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			// Checkpoint failures are transient, the next sweep retries
			s.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
		}
	}

	if err := s.checkDiskSpace(); err != nil {
		return err
	}

	s.logDatabaseSizes()

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed")

	return nil
}

// VacuumAll runs VACUUM on every database to reclaim space. Expensive,
// intended for a weekly schedule.
func (s *MaintenanceService) VacuumAll() error {
	for name, db := range s.databases {
		before, _ := db.GetStats()

		if err := db.Vacuum(); err != nil {
			s.log.Error().Err(err).Str("database", name).Msg("VACUUM failed")
			continue
		}

		after, _ := db.GetStats()
		if before != nil && after != nil {
			s.log.Info().
				Str("database", name).
				Int64("size_before_bytes", before.SizeBytes).
				Int64("size_after_bytes", after.SizeBytes).
				Msg("VACUUM completed")
		}
	}
	return nil
}

// checkDiskSpace verifies the data directory's filesystem has room left.
func (s *MaintenanceService) checkDiskSpace() error {
	usage, err := disk.Usage(s.dataDir)
	if err != nil {
		return fmt.Errorf("failed to check disk usage: %w", err)
	}

	availableGB := float64(usage.Free) / 1e9

	if availableGB < diskSpaceCritical {
		return fmt.Errorf("only %.2f GB free on data volume", availableGB)
	}
	if availableGB < diskSpaceLow {
		s.log.Warn().Float64("available_gb", availableGB).Msg("Disk space running low")
	}

	return nil
}

func (s *MaintenanceService) logDatabaseSizes() {
	for name, db := range s.databases {
		stats, err := db.GetStats()
		if err != nil {
			s.log.Error().Err(err).Str("database", name).Msg("Failed to get database stats")
			continue
		}

		s.log.Info().
			Str("database", name).
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Msg("Database size")
	}
}
