package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/scheduler"
)

// StatsSource is a database that reports size and page statistics
type StatsSource interface {
	Name() string
	GetStats() (*database.Stats, error)
}

// JobRunner exposes registered jobs to the system API. Implemented by
// scheduler.Scheduler, kept as an interface to enable testing with mocks.
type JobRunner interface {
	Jobs() []scheduler.JobInfo
	RunNow(name string) error
}

// SystemHandlers serves process and database monitoring endpoints
type SystemHandlers struct {
	databases []StatsSource
	sched     JobRunner
	dataDir   string
	startedAt time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates system monitoring handlers
func NewSystemHandlers(dataDir string, databases []StatsSource, sched JobRunner, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		databases: databases,
		sched:     sched,
		dataDir:   dataDir,
		startedAt: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// RegisterRoutes registers system routes on the router
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleSystemStatus)
		r.Get("/database/stats", h.HandleDatabaseStats)
		r.Get("/jobs", h.HandleListJobs)
		r.Post("/jobs/{name}", h.HandleTriggerJob)
	})
}

// SystemStatusResponse reports process and host health
type SystemStatusResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsedPct float64 `json:"memory_used_pct"`
	MemoryUsedMB  float64 `json:"memory_used_mb"`
	DiskUsedPct   float64 `json:"disk_used_pct"`
	DiskFreeGB    float64 `json:"disk_free_gb"`
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	GoVersion     string  `json:"go_version"`
	NumCPU        int     `json:"num_cpu"`
}

// HandleSystemStatus returns process and host health
// GET /api/v1/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct, memUsedMB := h.hostStats()
	diskPct, diskFreeGB := h.diskStats()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		CPUPercent:    cpuPct,
		MemoryUsedPct: memPct,
		MemoryUsedMB:  memUsedMB,
		DiskUsedPct:   diskPct,
		DiskFreeGB:    diskFreeGB,
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(ms.HeapAlloc) / 1024 / 1024,
		GoVersion:     runtime.Version(),
		NumCPU:        runtime.NumCPU(),
	}

	h.writeData(w, http.StatusOK, response)
}

// hostStats samples CPU and memory usage. A short sample interval keeps
// the endpoint responsive for dashboard polling.
func (h *SystemHandlers) hostStats() (float64, float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuAvg, 0, 0
	}

	return cpuAvg, memStat.UsedPercent, float64(memStat.Used) / 1024 / 1024
}

func (h *SystemHandlers) diskStats() (float64, float64) {
	usage, err := disk.Usage(h.dataDir)
	if err != nil {
		h.log.Warn().Err(err).Str("dir", h.dataDir).Msg("Failed to get disk usage")
		return 0, 0
	}
	return usage.UsedPercent, float64(usage.Free) / 1024 / 1024 / 1024
}

// DBStatsEntry reports one database's size and page statistics
type DBStatsEntry struct {
	Name          string  `json:"name"`
	SizeMB        float64 `json:"size_mb"`
	WALSizeMB     float64 `json:"wal_size_mb"`
	PageCount     int64   `json:"page_count"`
	PageSize      int64   `json:"page_size"`
	FreelistCount int64   `json:"freelist_count"`
}

// DatabaseStatsResponse reports statistics for all registered databases
type DatabaseStatsResponse struct {
	Databases   []DBStatsEntry `json:"databases"`
	TotalSizeMB float64        `json:"total_size_mb"`
	LastChecked string         `json:"last_checked"`
}

// HandleDatabaseStats returns size and page statistics per database
// GET /api/v1/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	entries := make([]DBStatsEntry, 0, len(h.databases))
	totalMB := 0.0

	for _, db := range h.databases {
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to collect database stats")
			continue
		}

		sizeMB := float64(stats.SizeBytes) / 1024 / 1024
		totalMB += sizeMB

		entries = append(entries, DBStatsEntry{
			Name:          db.Name(),
			SizeMB:        sizeMB,
			WALSizeMB:     float64(stats.WALSizeBytes) / 1024 / 1024,
			PageCount:     stats.PageCount,
			PageSize:      stats.PageSize,
			FreelistCount: stats.FreelistCount,
		})
	}

	h.writeData(w, http.StatusOK, DatabaseStatsResponse{
		Databases:   entries,
		TotalSizeMB: totalMB,
		LastChecked: time.Now().Format(time.RFC3339),
	})
}

// HandleListJobs returns registered jobs with schedules and last run state
// GET /api/v1/system/jobs
func (h *SystemHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, h.sched.Jobs())
}

// HandleTriggerJob runs a registered job immediately
// POST /api/v1/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.sched.RunNow(name); err != nil {
		if errors.Is(err, scheduler.ErrUnknownJob) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeData(w, http.StatusOK, map[string]string{
		"job":    name,
		"status": "completed",
	})
}

// Helper methods

func (h *SystemHandlers) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *SystemHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
