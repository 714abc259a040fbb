package profiling

import (
	"context"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // pprof handler registration
	"runtime"
	"time"
)

// Profiler runs the pprof server on its own port so profiling traffic never
// competes with spectrum uploads.
type Profiler struct {
	enabled bool
	port    string
	server  *http.Server
}

// New creates a profiler; it does nothing until Start when disabled.
func New(enabled bool, port string) *Profiler {
	return &Profiler{enabled: enabled, port: port}
}

// Start launches the profiling server in the background.
func (p *Profiler) Start() error {
	if !p.enabled {
		log.Println("profiling disabled")
		return nil
	}

	runtime.SetBlockProfileRate(1)
	runtime.SetMutexProfileFraction(1)

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", http.DefaultServeMux.ServeHTTP)
	mux.HandleFunc("/debug/info", infoHandler)

	p.server = &http.Server{
		Addr:    ":" + p.port,
		Handler: mux,
	}

	log.Printf("profiling server on port %s (/debug/pprof/, /debug/info)", p.port)
	go func() {
		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("profiling server error: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the profiling server down.
func (p *Profiler) Stop() error {
	if p.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("profiling server shutdown: %w", err)
	}
	return nil
}

// infoHandler reports runtime and memory figures for quick inspection.
func infoHandler(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{
  "timestamp": "%s",
  "goroutines": %d,
  "num_cpu": %d,
  "version": "%s",
  "heap_alloc_mb": %.2f,
  "sys_mb": %.2f,
  "heap_objects": %d,
  "num_gc": %d
}`, time.Now().Format(time.RFC3339), runtime.NumGoroutine(), runtime.NumCPU(),
		runtime.Version(), bToMb(m.HeapAlloc), bToMb(m.Sys), m.HeapObjects, m.NumGC)
}

func bToMb(b uint64) float64 {
	return float64(b) / 1024 / 1024
}
