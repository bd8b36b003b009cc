package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Job execution deadlines. Refresh sweeps hit the market data provider
// for every tracked symbol, so they get the long one.
const (
	refreshTimeout = 30 * time.Minute
	cleanupTimeout = time.Minute
	backupTimeout  = 15 * time.Minute
)

// MarketRefresher syncs profiles and price history for all tracked stocks.
type MarketRefresher interface {
	RefreshAll(ctx context.Context) (int, error)
}

// MarketRefreshJob refreshes market data for the whole tracked universe.
type MarketRefreshJob struct {
	refresher MarketRefresher
	log       zerolog.Logger
}

// NewMarketRefreshJob creates a market refresh job.
func NewMarketRefreshJob(refresher MarketRefresher, log zerolog.Logger) *MarketRefreshJob {
	return &MarketRefreshJob{
		refresher: refresher,
		log:       log.With().Str("job", "market_refresh").Logger(),
	}
}

// Run refreshes every tracked stock.
func (j *MarketRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	refreshed, err := j.refresher.RefreshAll(ctx)
	if err != nil {
		return err
	}

	j.log.Info().Int("refreshed", refreshed).Msg("Market data refreshed")
	return nil
}

// Name returns the job name for the scheduler.
func (j *MarketRefreshJob) Name() string {
	return "market_refresh"
}

// ExpiredDeleter removes rows whose validity window has passed.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// ExpiryCleanupJob purges expired rows from one repository.
type ExpiryCleanupJob struct {
	name    string
	deleter ExpiredDeleter
	log     zerolog.Logger
}

// NewExpiryCleanupJob creates a cleanup job for expired rows. The name
// distinguishes the analysis and recommendation variants in logs.
func NewExpiryCleanupJob(name string, deleter ExpiredDeleter, log zerolog.Logger) *ExpiryCleanupJob {
	return &ExpiryCleanupJob{
		name:    name,
		deleter: deleter,
		log:     log.With().Str("job", name).Logger(),
	}
}

// Run deletes expired rows.
func (j *ExpiryCleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	deleted, err := j.deleter.DeleteExpired(ctx)
	if err != nil {
		return err
	}

	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Expired rows purged")
	}
	return nil
}

// Name returns the job name for the scheduler.
func (j *ExpiryCleanupJob) Name() string {
	return j.name
}

// TaskDeleter removes finished tasks older than a cutoff.
type TaskDeleter interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// TaskCleanupJob removes finished analysis tasks past the retention window.
type TaskCleanupJob struct {
	deleter   TaskDeleter
	retention time.Duration
	log       zerolog.Logger
}

// NewTaskCleanupJob creates a task cleanup job.
func NewTaskCleanupJob(deleter TaskDeleter, retention time.Duration, log zerolog.Logger) *TaskCleanupJob {
	return &TaskCleanupJob{
		deleter:   deleter,
		retention: retention,
		log:       log.With().Str("job", "task_cleanup").Logger(),
	}
}

// Run deletes finished tasks older than the retention window.
func (j *TaskCleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	deleted, err := j.deleter.DeleteOlderThan(ctx, time.Now().UTC().Add(-j.retention))
	if err != nil {
		return err
	}

	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Old tasks purged")
	}
	return nil
}

// Name returns the job name for the scheduler.
func (j *TaskCleanupJob) Name() string {
	return "task_cleanup"
}

// CacheCleaner removes stale entries from the client cache.
type CacheCleaner interface {
	DeleteExpired() (int64, error)
}

// CacheCleanupJob purges expired client cache entries.
type CacheCleanupJob struct {
	cleaner CacheCleaner
	log     zerolog.Logger
}

// NewCacheCleanupJob creates a cache cleanup job.
func NewCacheCleanupJob(cleaner CacheCleaner, log zerolog.Logger) *CacheCleanupJob {
	return &CacheCleanupJob{
		cleaner: cleaner,
		log:     log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Run deletes expired cache entries.
func (j *CacheCleanupJob) Run() error {
	deleted, err := j.cleaner.DeleteExpired()
	if err != nil {
		return err
	}

	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Expired cache entries purged")
	}
	return nil
}

// Name returns the job name for the scheduler.
func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

// DailyMaintainer runs the daily database hygiene sweep.
type DailyMaintainer interface {
	RunDaily(ctx context.Context) error
}

// MaintenanceJob runs integrity checks and WAL checkpoints daily.
type MaintenanceJob struct {
	maintainer DailyMaintainer
}

// NewMaintenanceJob creates a maintenance job.
func NewMaintenanceJob(maintainer DailyMaintainer) *MaintenanceJob {
	return &MaintenanceJob{maintainer: maintainer}
}

// Run executes the daily maintenance sweep.
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()
	return j.maintainer.RunDaily(ctx)
}

// Name returns the job name for the scheduler.
func (j *MaintenanceJob) Name() string {
	return "daily_maintenance"
}

// Vacuumer reclaims space across the databases.
type Vacuumer interface {
	VacuumAll() error
}

// VacuumJob runs VACUUM on all databases weekly.
type VacuumJob struct {
	vacuumer Vacuumer
}

// NewVacuumJob creates a vacuum job.
func NewVacuumJob(vacuumer Vacuumer) *VacuumJob {
	return &VacuumJob{vacuumer: vacuumer}
}

// Run vacuums every database.
func (j *VacuumJob) Run() error {
	return j.vacuumer.VacuumAll()
}

// Name returns the job name for the scheduler.
func (j *VacuumJob) Name() string {
	return "weekly_vacuum"
}

// BackupUploader snapshots the databases and ships them to remote storage.
type BackupUploader interface {
	CreateAndUpload(ctx context.Context) error
}

// BackupJob creates and uploads a full backup archive.
type BackupJob struct {
	uploader BackupUploader
}

// NewBackupJob creates a backup job.
func NewBackupJob(uploader BackupUploader) *BackupJob {
	return &BackupJob{uploader: uploader}
}

// Run creates and uploads a backup.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()
	return j.uploader.CreateAndUpload(ctx)
}

// Name returns the job name for the scheduler.
func (j *BackupJob) Name() string {
	return "remote_backup"
}
