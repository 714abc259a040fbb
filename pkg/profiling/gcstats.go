package profiling

import (
	"log"
	"runtime"
	"time"
)

// GCStats is a snapshot of garbage-collector figures for the debug routes.
type GCStats struct {
	NumGC        uint32
	PauseTotal   time.Duration
	PauseRecent  time.Duration
	GCCPUPercent float64
	LastGC       time.Time
}

// GetGCStats reads the current GC state.
func GetGCStats() GCStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var recent time.Duration
	if m.NumGC > 0 {
		recent = time.Duration(m.PauseNs[(m.NumGC+255)%256])
	}
	return GCStats{
		NumGC:        m.NumGC,
		PauseTotal:   time.Duration(m.PauseTotalNs),
		PauseRecent:  recent,
		GCCPUPercent: m.GCCPUFraction * 100,
		LastGC:       time.Unix(0, int64(m.LastGC)),
	}
}

// ForceGC triggers a collection; exposed on a debug route for memory
// investigations during long acquisitions.
func ForceGC() {
	runtime.GC()
}

// LogGCStats writes the current snapshot to the log.
func LogGCStats() {
	s := GetGCStats()
	log.Printf("gc: runs=%d pause_total=%v pause_recent=%v cpu=%.2f%% last=%s",
		s.NumGC, s.PauseTotal, s.PauseRecent, s.GCCPUPercent, s.LastGC.Format(time.RFC3339))
}
