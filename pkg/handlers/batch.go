package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/radwatch/gammacore/internal/utils"
	"github.com/radwatch/gammacore/pkg/config"
	"github.com/radwatch/gammacore/pkg/models"
	"github.com/radwatch/gammacore/pkg/webhook"
	"github.com/radwatch/gammacore/pkg/worker"
)

// BatchHandler fans a multi-spectrum upload out over the worker pool.
type BatchHandler struct {
	config     *config.Config
	workerPool *worker.Pool
	history    Saver
}

// NewBatchHandler creates a batch handler; history may be nil.
func NewBatchHandler(cfg *config.Config, pool *worker.Pool, history Saver) *BatchHandler {
	return &BatchHandler{
		config:     cfg,
		workerPool: pool,
		history:    history,
	}
}

// ServeHTTP accepts a SpectrumBatch and returns 202; the spectra are
// analyzed concurrently by the pool and each result is pushed and persisted
// as it completes.
func (h *BatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setupCORS(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var batch models.SpectrumBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if len(batch.Items) == 0 {
		writeError(w, "no spectra provided in batch", http.StatusBadRequest)
		return
	}
	if batch.BatchID == "" {
		batch.BatchID = utils.GenerateID()
	}

	log.Printf("batch accepted - id: %s, spectra: %d", batch.BatchID, len(batch.Items))
	go h.processBatchAsync(batch)

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"batch_id": batch.BatchID,
		"spectra":  len(batch.Items),
		"message":  "batch analysis started",
	})
}

func (h *BatchHandler) processBatchAsync(batch models.SpectrumBatch) {
	start := time.Now()
	timings := make([]models.BatchTiming, len(batch.Items))

	for i, item := range batch.Items {
		h.workerPool.SubmitJob(models.WorkItem{
			ID:        i,
			RequestID: utils.GenerateID(),
			BatchID:   batch.BatchID,
			Sequence:  item.Sequence,
			Upload:    item.Spectrum,
			StartTime: time.Now(),
		})
	}

	received := 0
	for received < len(batch.Items) {
		result, ok := h.workerPool.GetResult()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		h.handleResult(result, timings)
		received++
	}

	elapsed := time.Since(start)
	log.Printf("batch completed - id: %s, spectra: %d, total: %v", batch.BatchID, len(batch.Items), elapsed)
}

func (h *BatchHandler) handleResult(result models.WorkResult, timings []models.BatchTiming) {
	t := models.BatchTiming{
		Sequence:       result.Sequence,
		ProcessingTime: result.ProcessingTime,
		Success:        result.Success,
	}
	if top, ok := result.Record.TopIsotope(); ok {
		t.TopIsotope = top.Isotope
		t.TopConfidence = top.Confidence
	}
	if result.ID >= 0 && result.ID < len(timings) {
		timings[result.ID] = t
	}

	if !result.Success {
		log.Printf("batch item %d (%s) failed: %s", result.Sequence, result.RequestID, result.Err)
		return
	}

	if h.history != nil {
		if err := h.history.Save(result.Record); err != nil {
			log.Printf("history save failed for %s: %v", result.RequestID, xerrors.New(err))
		}
	}
	h.workerPool.QueueWebhook(models.WebhookItem{
		RequestID: result.RequestID,
		Record:    result.Record,
		Curves:    webhook.BuildPeakCurves(result.Record.Peaks),
	})
}
