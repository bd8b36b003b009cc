package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/database"
)

const (
	archivePrefix    = "stockpulse-backup-"
	archiveTimestamp = "2006-01-02-150405"
	minBackupsToKeep = 3
)

// ObjectStore is the remote storage surface the backup service needs.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader) error
	List(ctx context.Context, prefix string) ([]RemoteObject, error)
	Delete(ctx context.Context, key string) error
}

// BackupMetadata describes the contents of one backup archive.
type BackupMetadata struct {
	Timestamp time.Time          `json:"timestamp"`
	Databases []DatabaseMetadata `json:"databases"`
}

// DatabaseMetadata describes a single database snapshot in the archive.
type DatabaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupInfo represents a backup archive stored remotely.
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// BackupService snapshots every database into a tar.gz archive with a
// checksum manifest and uploads it to remote storage.
type BackupService struct {
	databases map[string]*database.DB
	store     ObjectStore
	dataDir   string
	keep      int
	log       zerolog.Logger
}

// NewBackupService creates a backup service. keep is the number of remote
// archives retained during rotation.
func NewBackupService(databases map[string]*database.DB, store ObjectStore, dataDir string, keep int, log zerolog.Logger) *BackupService {
	return &BackupService{
		databases: databases,
		store:     store,
		dataDir:   dataDir,
		keep:      keep,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUpload snapshots all databases, archives them, and uploads the
// archive. Old archives beyond the retention count are deleted afterwards.
func (s *BackupService) CreateAndUpload(ctx context.Context) error {
	s.log.Info().Msg("Starting remote backup")
	startTime := time.Now()

	stagingDir, err := os.MkdirTemp(s.dataDir, "backup-staging-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	metadata := BackupMetadata{
		Timestamp: time.Now().UTC(),
		Databases: make([]DatabaseMetadata, 0, len(s.databases)),
	}

	names := make([]string, 0, len(s.databases))
	for name := range s.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		snapshotPath := filepath.Join(stagingDir, name+".db")

		if err := s.databases[name].BackupTo(snapshotPath); err != nil {
			return fmt.Errorf("failed to snapshot %s: %w", name, err)
		}

		info, err := os.Stat(snapshotPath)
		if err != nil {
			return fmt.Errorf("failed to stat %s snapshot: %w", name, err)
		}

		checksum, err := fileChecksum(snapshotPath)
		if err != nil {
			return fmt.Errorf("failed to checksum %s snapshot: %w", name, err)
		}

		metadata.Databases = append(metadata.Databases, DatabaseMetadata{
			Name:      name,
			Filename:  name + ".db",
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
	}

	metadataPath := filepath.Join(stagingDir, "backup-metadata.json")
	if err := writeMetadata(metadataPath, metadata); err != nil {
		return fmt.Errorf("failed to write backup metadata: %w", err)
	}

	archiveName := archivePrefix + time.Now().Format(archiveTimestamp) + ".tar.gz"
	archivePath := filepath.Join(stagingDir, archiveName)

	files := make([]string, 0, len(names)+1)
	for _, name := range names {
		files = append(files, name+".db")
	}
	files = append(files, "backup-metadata.json")

	if err := createArchive(archivePath, stagingDir, files); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return fmt.Errorf("failed to stat archive: %w", err)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	if err := s.store.Upload(ctx, archiveName, archiveFile); err != nil {
		return fmt.Errorf("failed to upload archive: %w", err)
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("archive", archiveName).
		Int64("size_bytes", archiveInfo.Size()).
		Msg("Remote backup completed")

	return s.RotateOldBackups(ctx)
}

// ListBackups lists remote archives, newest first.
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(objects))
	now := time.Now()

	for _, obj := range objects {
		timestamp, ok := parseArchiveTimestamp(obj.Key)
		if !ok {
			continue
		}
		backups = append(backups, BackupInfo{
			Filename:  obj.Key,
			Timestamp: timestamp,
			SizeBytes: obj.SizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// RotateOldBackups deletes archives beyond the retention count, always
// keeping a minimum regardless of configuration.
func (s *BackupService) RotateOldBackups(ctx context.Context) error {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return err
	}

	deleted := 0
	for _, filename := range backupsToPrune(backups, s.keep) {
		if err := s.store.Delete(ctx, filename); err != nil {
			s.log.Error().Err(err).Str("filename", filename).Msg("Failed to delete old backup")
			continue
		}
		s.log.Info().Str("filename", filename).Msg("Deleted old backup")
		deleted++
	}

	if deleted > 0 {
		s.log.Info().
			Int("deleted", deleted).
			Int("remaining", len(backups)-deleted).
			Msg("Backup rotation completed")
	}

	return nil
}

// backupsToPrune picks the archives to delete given a newest-first list.
func backupsToPrune(backups []BackupInfo, keep int) []string {
	if keep < minBackupsToKeep {
		keep = minBackupsToKeep
	}
	if len(backups) <= keep {
		return nil
	}

	prune := make([]string, 0, len(backups)-keep)
	for _, backup := range backups[keep:] {
		prune = append(prune, backup.Filename)
	}
	return prune
}

// parseArchiveTimestamp extracts the timestamp from an archive filename
// like stockpulse-backup-2026-01-08-143022.tar.gz.
func parseArchiveTimestamp(filename string) (time.Time, bool) {
	if !strings.HasPrefix(filename, archivePrefix) || !strings.HasSuffix(filename, ".tar.gz") {
		return time.Time{}, false
	}

	raw := strings.TrimSuffix(strings.TrimPrefix(filename, archivePrefix), ".tar.gz")
	timestamp, err := time.Parse(archiveTimestamp, raw)
	if err != nil {
		return time.Time{}, false
	}
	return timestamp, true
}

func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeMetadata(path string, metadata BackupMetadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

// createArchive writes the named files from sourceDir into a tar.gz at
// archivePath.
func createArchive(archivePath, sourceDir string, filenames []string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	for _, filename := range filenames {
		if err := addFileToArchive(tarWriter, filepath.Join(sourceDir, filename), filename); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", filename, err)
		}
	}

	return nil
}

func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}

	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}

	_, err = io.Copy(tarWriter, file)
	return err
}
