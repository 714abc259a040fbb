package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/mdobak/go-xerrors"
	"github.com/radwatch/gammacore/internal/utils"
	"github.com/radwatch/gammacore/pkg/config"
	"github.com/radwatch/gammacore/pkg/models"
	"github.com/radwatch/gammacore/pkg/webhook"
	"github.com/radwatch/gammacore/pkg/worker"
)

// ProcessorFunc runs one analysis for the HTTP layer.
type ProcessorFunc func(requestID string, upload models.SpectrumUpload, cfg *config.Config) (models.AnalysisRecord, error)

// Saver persists finished analyses; the history store implements it.
type Saver interface {
	Save(models.AnalysisRecord) error
}

// SpectrumHandler handles single-spectrum analysis requests.
type SpectrumHandler struct {
	config     *config.Config
	workerPool *worker.Pool
	processor  ProcessorFunc
	history    Saver
}

// NewSpectrumHandler creates a handler; history may be nil.
func NewSpectrumHandler(cfg *config.Config, pool *worker.Pool, processor ProcessorFunc, history Saver) *SpectrumHandler {
	return &SpectrumHandler{
		config:     cfg,
		workerPool: pool,
		processor:  processor,
		history:    history,
	}
}

// ServeHTTP accepts a SpectrumUpload, kicks off asynchronous analysis, and
// returns 202 with the request ID. Results flow to the webhook endpoint and
// the history store.
func (h *SpectrumHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setupCORS(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var upload models.SpectrumUpload
	if err := json.NewDecoder(r.Body).Decode(&upload); err != nil {
		writeError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if len(upload.Counts) == 0 {
		writeError(w, "no channel counts provided", http.StatusBadRequest)
		return
	}

	requestID := utils.GenerateID()
	go h.processAsync(requestID, upload)

	if !h.config.Quiet {
		log.Printf("spectrum request accepted - id: %s, channels: %d, detector: %s",
			requestID, len(upload.Counts), upload.Detector)
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":    true,
		"request_id": requestID,
		"message":    "analysis started",
	})
}

func (h *SpectrumHandler) processAsync(requestID string, upload models.SpectrumUpload) {
	record, err := h.processor(requestID, upload, h.config)
	if err != nil {
		err := xerrors.New(err)
		log.Printf("analysis %s failed: %v", requestID, err)
		return
	}

	if h.history != nil {
		if err := h.history.Save(record); err != nil {
			log.Printf("history save failed for %s: %v", requestID, xerrors.New(err))
		}
	}

	h.workerPool.QueueWebhook(models.WebhookItem{
		RequestID: requestID,
		Record:    record,
		Curves:    webhook.BuildPeakCurves(record.Peaks),
	})
}

func setupCORS(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
