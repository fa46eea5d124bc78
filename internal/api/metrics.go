package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/afkloop/internal/state"
	"github.com/nerrad567/afkloop/internal/worker"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     WSMetrics      `json:"websocket"`
	MQTT          *MQTTMetrics   `json:"mqtt,omitempty"`
	Workers       []worker.Stats `json:"workers,omitempty"`
	Run           RunMetrics     `json:"run"`
}

// RunMetrics summarises the loop itself.
type RunMetrics struct {
	Cycles       int     `json:"cycles"`
	Stage        string  `json:"stage,omitempty"`
	StageSeconds float64 `json:"stage_seconds"`
	Suspended    bool    `json:"suspended"`
	Stopping     bool    `json:"stopping"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int    `json:"connected_clients"`
	Dropped          uint64 `json:"dropped_events"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
			Dropped:          s.hub.Dropped(),
		},
		Run:       runMetrics(s.state.Status(), time.Now()),
	}
	if s.mqtt != nil {
		metrics.MQTT = &MQTTMetrics{Connected: s.mqtt.IsConnected()}
	}
	if s.workers != nil {
		metrics.Workers = s.workers.Stats()
	}

	writeJSON(w, http.StatusOK, metrics)
}

func runMetrics(st state.Status, now time.Time) RunMetrics {
	m := RunMetrics{
		Cycles:    st.Cycles,
		Stage:     st.Stage,
		Suspended: st.Suspended,
		Stopping:  st.Stopping,
	}
	if st.Stage != "" && !st.StageSince.IsZero() {
		m.StageSeconds = now.Sub(st.StageSince).Seconds()
	}
	return m
}
