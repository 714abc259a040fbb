package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/radwatch/gammacore/pkg/config"
	"github.com/radwatch/gammacore/pkg/handlers"
	"github.com/radwatch/gammacore/pkg/history"
	"github.com/radwatch/gammacore/pkg/models"
	"github.com/radwatch/gammacore/pkg/profiling"
	"github.com/radwatch/gammacore/pkg/webhook"
	"github.com/radwatch/gammacore/pkg/worker"
)

// Server is the HTTP ingest daemon for spectrum analysis: it accepts
// uploads, fans them out to the worker pool, persists results, and pushes
// them to the configured results endpoint.
type Server struct {
	config        *config.Config
	serverConfig  *config.ServerConfig
	workerPool    *worker.Pool
	webhookClient *webhook.Client
	historyStore  *history.Store
	httpServer    *http.Server
	profiler      *profiling.Profiler
	middleware    *profiling.Middleware
}

// Options holds the server dependencies.
type Options struct {
	Config       *config.Config
	ServerConfig *config.ServerConfig
	Processor    handlers.ProcessorFunc
}

// New wires a server instance. Opening the history store is best-effort:
// the daemon still analyzes and pushes results when it fails.
func New(opts Options) *Server {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.ServerConfig == nil {
		opts.ServerConfig = config.DefaultServerConfig()
	}

	workerPool := worker.New(worker.Options{
		Workers: opts.ServerConfig.WorkerCount,
		Processor: func(item models.WorkItem) models.WorkResult {
			start := time.Now()
			record, err := opts.Processor(item.RequestID, item.Upload, opts.Config)
			res := models.WorkResult{
				ID:             item.ID,
				RequestID:      item.RequestID,
				BatchID:        item.BatchID,
				Sequence:       item.Sequence,
				Record:         record,
				ProcessingTime: time.Since(start),
				Success:        err == nil,
			}
			if err != nil {
				res.Err = err.Error()
			}
			return res
		},
	})

	var store *history.Store
	if opts.ServerConfig.HistoryPath != "" {
		var err error
		store, err = history.Open(opts.ServerConfig.HistoryPath)
		if err != nil {
			log.Printf("history store unavailable: %v", err)
			store = nil
		}
	}

	s := &Server{
		config:        opts.Config,
		serverConfig:  opts.ServerConfig,
		workerPool:    workerPool,
		webhookClient: webhook.NewClient(opts.ServerConfig.WebhookURL),
		historyStore:  store,
		profiler:      profiling.New(opts.ServerConfig.EnableProfiling, opts.ServerConfig.ProfilingPort),
		middleware:    profiling.NewMiddleware(opts.ServerConfig.EnableProfiling),
	}
	s.setupRoutes(opts.Processor)
	return s
}

func (s *Server) setupRoutes(processor handlers.ProcessorFunc) {
	mux := http.NewServeMux()

	var saver handlers.Saver
	if s.historyStore != nil {
		saver = s.historyStore
	}
	spectrumHandler := handlers.NewSpectrumHandler(s.config, s.workerPool, processor, saver)
	batchHandler := handlers.NewBatchHandler(s.config, s.workerPool, saver)

	mux.Handle("/spectrum", s.middleware.ProfiledHandler("spectrum-single", spectrumHandler))
	mux.Handle("/spectrum/batch", s.middleware.ProfiledHandler("spectrum-batch", batchHandler))
	mux.HandleFunc("/history", s.historyHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/debug/gc", s.gcHandler)

	s.httpServer = &http.Server{
		Addr:         ":" + s.serverConfig.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.historyStore == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "history store unavailable"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.historyStore.Recent(limit)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(records)
}

func (s *Server) gcHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	profiling.ForceGC()
	stats := profiling.GetGCStats()
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"gc_runs":%d,"pause_total_ms":%.3f,"cpu_percent":%.2f,"last_gc":"%s"}`,
		stats.NumGC,
		float64(stats.PauseTotal.Nanoseconds())/1e6,
		stats.GCCPUPercent,
		stats.LastGC.Format(time.RFC3339))
}

// Start launches the profiler, webhook drainer, and HTTP listener. It
// blocks until the listener exits.
func (s *Server) Start() error {
	if err := s.profiler.Start(); err != nil {
		log.Printf("failed to start profiler: %v", err)
	}
	go s.webhookClient.Run(s.workerPool.Webhooks())

	log.Printf("gammaspec server on port %s", s.serverConfig.Port)
	log.Printf("  - single:  POST /spectrum")
	log.Printf("  - batch:   POST /spectrum/batch")
	log.Printf("  - history: GET  /history")
	log.Printf("  - health:  GET  /health")

	return s.httpServer.ListenAndServe()
}

// Shutdown stops the pool, history store, and profiler.
func (s *Server) Shutdown() error {
	log.Println("shutting down server")
	if err := s.profiler.Stop(); err != nil {
		log.Printf("profiler shutdown error: %v", err)
	}
	s.workerPool.Shutdown()
	if s.historyStore != nil {
		if err := s.historyStore.Close(); err != nil {
			log.Printf("history close error: %v", err)
		}
	}
	return nil
}
