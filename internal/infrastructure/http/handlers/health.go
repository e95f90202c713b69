package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/yuzvak/pdv-service/internal/config"
	"github.com/yuzvak/pdv-service/internal/infrastructure/http/response"
	"github.com/yuzvak/pdv-service/internal/pkg/dberr"
	"github.com/yuzvak/pdv-service/internal/pkg/logger"
)

type DatabaseProbe interface {
	Ping(ctx context.Context) error
	Version(ctx context.Context) (string, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db        DatabaseProbe
	redis     Pinger
	reporter  *dberr.Reporter
	info      config.DatabaseInfo
	log       *logger.Logger
	startTime time.Time
}

// NewHealthHandler accepts a nil redis when the cache is not configured.
func NewHealthHandler(db DatabaseProbe, redis Pinger, reporter *dberr.Reporter, info config.DatabaseInfo, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		redis:     redis,
		reporter:  reporter,
		info:      info,
		log:       log,
		startTime: time.Now().UTC(),
	}
}

type MemoryMetrics struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
}

type DatabaseStatus struct {
	Status  string                `json:"status"`
	Version string                `json:"version,omitempty"`
	Target  config.DatabaseInfo   `json:"target"`
	Error   *dberr.Classification `json:"error,omitempty"`
}

type HealthData struct {
	Status     string         `json:"status"`
	Database   DatabaseStatus `json:"database"`
	Redis      string         `json:"redis"`
	Uptime     string         `json:"uptime"`
	Memory     MemoryMetrics  `json:"memory"`
	Goroutines int            `json:"goroutines"`
}

func (h *HealthHandler) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		data := HealthData{
			Status:   "UP",
			Database: DatabaseStatus{Status: "UP", Target: h.info},
			Redis:    "DISABLED",
		}

		version, err := h.databaseVersion(ctx)
		if err != nil {
			classification, _ := h.reporter.Report(err, "health check")
			data.Status = "DOWN"
			data.Database.Status = "DOWN"
			data.Database.Error = &classification
		} else {
			data.Database.Version = version
		}

		if h.redis != nil {
			data.Redis = "UP"
			if err := h.redis.Ping(ctx); err != nil {
				h.log.Warn("Redis health check failed", "error", err)
				data.Redis = "DOWN"
			}
		}

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		data.Uptime = time.Since(h.startTime).Round(time.Second).String()
		data.Memory = MemoryMetrics{
			Alloc:      mem.Alloc,
			TotalAlloc: mem.TotalAlloc,
			Sys:        mem.Sys,
			NumGC:      mem.NumGC,
		}
		data.Goroutines = runtime.NumGoroutine()

		status := http.StatusOK
		if data.Database.Status != "UP" {
			status = http.StatusInternalServerError
		}
		response.WriteJSON(w, status, data)
	}
}

func (h *HealthHandler) databaseVersion(ctx context.Context) (string, error) {
	if err := h.db.Ping(ctx); err != nil {
		return "", err
	}
	return h.db.Version(ctx)
}
