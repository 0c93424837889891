package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/flipsight/flipsight/internal/database"
)

// handleHealth handles health check requests. Both databases get a quick
// ping; a failing ping degrades the status without taking the endpoint down.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	databases := map[string]string{}

	for _, db := range []*database.DB{s.cfg.FlipsDB, s.cfg.CatalogDB} {
		if db == nil {
			continue
		}
		if err := db.QuickCheck(r.Context()); err != nil {
			status = "degraded"
			databases[db.Name()] = err.Error()
		} else {
			databases[db.Name()] = "ok"
		}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	s.writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"version":   s.cfg.Version,
		"service":   "flipsight",
		"databases": databases,
	})
}

// handleSystemStatus handles system status requests
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":         "running",
		"version":        s.cfg.Version,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
	}

	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		response["cpu_percent"] = cpuPercent[0]
	}

	if memStat, err := mem.VirtualMemory(); err == nil {
		response["memory"] = map[string]interface{}{
			"used_mb":      memStat.Used / 1024 / 1024,
			"total_mb":     memStat.Total / 1024 / 1024,
			"used_percent": memStat.UsedPercent,
		}
	}

	databases := map[string]interface{}{}
	for _, db := range []*database.DB{s.cfg.FlipsDB, s.cfg.CatalogDB} {
		if db == nil {
			continue
		}
		stats, err := db.GetStats()
		if err != nil {
			s.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to read database stats")
			continue
		}
		databases[db.Name()] = map[string]interface{}{
			"size_mb":     float64(stats.SizeBytes) / 1024 / 1024,
			"wal_size_mb": float64(stats.WALSizeBytes) / 1024 / 1024,
		}
	}
	response["databases"] = databases

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
