package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/stockpulse/stockpulse/internal/database"
)

// SystemHandlers serves process and database monitoring endpoints.
type SystemHandlers struct {
	dataDir   string
	databases map[string]*database.DB
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates system monitoring handlers.
func NewSystemHandlers(dataDir string, databases map[string]*database.DB, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		dataDir:   dataDir,
		databases: databases,
		startTime: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// SystemStatusResponse is the system status payload.
type SystemStatusResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskUsedGB    float64 `json:"disk_used_gb"`
	DiskFreeGB    float64 `json:"disk_free_gb"`
	DataDirMB     float64 `json:"data_dir_mb"`
	LastChecked   string  `json:"last_checked"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "running",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		DataDirMB:     h.getDirSize(h.dataDir),
		LastChecked:   time.Now().Format(time.RFC3339),
	}

	if usage, err := disk.Usage(h.dataDir); err == nil {
		response.DiskUsedGB = float64(usage.Used) / 1e9
		response.DiskFreeGB = float64(usage.Free) / 1e9
	} else {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	}

	h.writeJSON(w, response)
}

// DatabaseStatsEntry describes one database's size and page statistics.
type DatabaseStatsEntry struct {
	Name          string  `json:"name"`
	SizeMB        float64 `json:"size_mb"`
	WALSizeMB     float64 `json:"wal_size_mb"`
	PageCount     int64   `json:"page_count"`
	FreelistCount int64   `json:"freelist_count"`
}

// DatabaseStatsResponse is the database stats payload.
type DatabaseStatsResponse struct {
	Databases   []DatabaseStatsEntry `json:"databases"`
	TotalSizeMB float64              `json:"total_size_mb"`
	LastChecked string               `json:"last_checked"`
}

// HandleDatabaseStats handles GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	entries := make([]DatabaseStatsEntry, 0, len(h.databases))
	var totalMB float64

	for name, db := range h.databases {
		stats, err := db.GetStats()
		if err != nil {
			h.log.Error().Err(err).Str("database", name).Msg("Failed to get database stats")
			continue
		}

		sizeMB := float64(stats.SizeBytes) / 1024 / 1024
		totalMB += sizeMB

		entries = append(entries, DatabaseStatsEntry{
			Name:          name,
			SizeMB:        sizeMB,
			WALSizeMB:     float64(stats.WALSizeBytes) / 1024 / 1024,
			PageCount:     stats.PageCount,
			FreelistCount: stats.FreelistCount,
		})
	}

	h.writeJSON(w, DatabaseStatsResponse{
		Databases:   entries,
		TotalSizeMB: totalMB,
		LastChecked: time.Now().Format(time.RFC3339),
	})
}

// getSystemStats returns CPU and RAM usage percentages. The short CPU
// sampling interval keeps the endpoint responsive for pollers.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
