package server

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/vekfolio/riskengine/internal/database"
)

// JobRunner lists registered background jobs and triggers them by name.
type JobRunner interface {
	RunByName(name string) error
	JobNames() []string
}

// SystemHandlers handles system status endpoints
type SystemHandlers struct {
	dataDir   string
	databases map[string]*database.DB
	jobs      JobRunner
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates new system handlers. jobs may be nil, disabling
// the job endpoints.
func NewSystemHandlers(dataDir string, databases map[string]*database.DB, jobs JobRunner, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		dataDir:   dataDir,
		databases: databases,
		jobs:      jobs,
		startTime: time.Now(),
		log:       log.With().Str("handlers", "system").Logger(),
	}
}

// RegisterRoutes registers system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleStatus)
		r.Get("/databases", h.HandleDatabaseStats)
		r.Get("/disk", h.HandleDiskUsage)
		r.Get("/jobs", h.HandleListJobs)
		r.Post("/jobs/{name}/run", h.HandleRunJob)
	})
}

// HandleStatus reports process uptime and host resource usage.
func (h *SystemHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
	}

	if cpuPercents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercents) > 0 {
		status["cpu_percent"] = cpuPercents[0]
	} else if err != nil {
		h.log.Warn().Err(err).Msg("Failed to read CPU usage")
	}

	if vmem, err := mem.VirtualMemory(); err == nil {
		status["memory_percent"] = vmem.UsedPercent
		status["memory_used_mb"] = vmem.Used / 1024 / 1024
	} else {
		h.log.Warn().Err(err).Msg("Failed to read memory usage")
	}

	writeJSON(w, http.StatusOK, status)
}

// HandleDatabaseStats reports size and page statistics for each database.
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	result := make(map[string]interface{}, len(h.databases))

	for name, db := range h.databases {
		stats, err := db.GetStats()
		if err != nil {
			h.log.Error().Err(err).Str("database", name).Msg("Failed to get database stats")
			result[name] = map[string]string{"error": err.Error()}
			continue
		}
		result[name] = map[string]interface{}{
			"size_bytes":     stats.SizeBytes,
			"wal_size_bytes": stats.WALSizeBytes,
			"page_count":     stats.PageCount,
			"page_size":      stats.PageSize,
			"freelist_count": stats.FreelistCount,
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleListJobs lists the registered background jobs.
func (h *SystemHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "job scheduling is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": h.jobs.JobNames()})
}

// HandleRunJob triggers a registered job outside its schedule. The job runs
// synchronously so the caller sees failures directly.
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "job scheduling is not configured")
		return
	}

	name := chi.URLParam(r, "name")
	known := false
	for _, jobName := range h.jobs.JobNames() {
		if jobName == name {
			known = true
			break
		}
	}
	if !known {
		writeError(w, http.StatusNotFound, "unknown job "+name)
		return
	}

	if err := h.jobs.RunByName(name); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		writeError(w, http.StatusInternalServerError, "job "+name+" failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "completed", "job": name})
}

// HandleDiskUsage reports the size of the data directory in megabytes.
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	sizeBytes, err := getDirSize(h.dataDir)
	if err != nil {
		h.log.Error().Err(err).Str("dir", h.dataDir).Msg("Failed to measure data directory")
		writeError(w, http.StatusInternalServerError, "failed to measure data directory")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data_dir": h.dataDir,
		"size_mb":  float64(sizeBytes) / 1024.0 / 1024.0,
	})
}

// getDirSize walks a directory tree summing file sizes.
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
