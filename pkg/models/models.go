package models

import (
	"time"

	"github.com/radwatch/gammacore"
)

// SpectrumUpload is an incoming acquisition from the device transport or a
// file upload: raw channel counts plus calibration and timing metadata.
type SpectrumUpload struct {
	DeviceID    string    `json:"device_id"`
	Timestamp   string    `json:"timestamp"`
	Counts      []float64 `json:"counts"`
	Calibration []float64 `json:"calibration"` // a0, a1, a2 (a2 optional)
	LiveTimeS   float64   `json:"live_time_s"`
	RealTimeS   float64   `json:"real_time_s"`
	Detector    string    `json:"detector"`
}

// BatchItem is one spectrum of a batch with its sequence number.
type BatchItem struct {
	Spectrum SpectrumUpload `json:"spectrum"`
	Sequence int            `json:"sequence"`
}

// SpectrumBatch groups spectra uploaded in one request.
type SpectrumBatch struct {
	BatchID   string      `json:"batch_id"`
	Timestamp time.Time   `json:"timestamp"`
	Items     []BatchItem `json:"items"`
}

// PeakCurve carries sampled model points of one fitted peak so the
// receiving dashboard can overlay the fit on the raw histogram.
type PeakCurve struct {
	EnergyKeV float64   `json:"energy_kev"`
	Energies  []float64 `json:"energies"`
	Values    []float64 `json:"values"`
}

// AnalysisRecord is the stable export contract: everything the reporting
// and UI layers need from one analysis run, JSON-serializable.
type AnalysisRecord struct {
	RequestID         string                           `json:"request_id"`
	Timestamp         time.Time                        `json:"timestamp"`
	Detector          string                           `json:"detector"`
	Channels          int                              `json:"channels"`
	MaxCount          float64                          `json:"max_count"`
	BackgroundApplied bool                             `json:"background_applied"`
	Peaks             []gammacore.Peak                 `json:"peaks"`
	Isotopes          []gammacore.IsotopeMatch         `json:"isotopes"`
	Chains            []gammacore.DecayChainHypothesis `json:"chains"`
	ROI               []gammacore.ROIResult            `json:"roi,omitempty"`
	Enrichment        *gammacore.EnrichmentResult      `json:"enrichment,omitempty"`
	ProcessingTimeMs  float64                          `json:"processing_time_ms"`
}

// TopIsotope returns the strongest match, if any.
func (r AnalysisRecord) TopIsotope() (gammacore.IsotopeMatch, bool) {
	if len(r.Isotopes) == 0 {
		return gammacore.IsotopeMatch{}, false
	}
	return r.Isotopes[0], true
}

// WorkItem is a single spectrum-analysis task for the worker pool.
type WorkItem struct {
	ID        int
	RequestID string
	BatchID   string
	Sequence  int
	Upload    SpectrumUpload
	StartTime time.Time
}

// WorkResult is the outcome of one pooled analysis.
type WorkResult struct {
	ID             int
	RequestID      string
	BatchID        string
	Sequence       int
	Record         AnalysisRecord
	Err            string
	ProcessingTime time.Duration
	Success        bool
}

// WebhookItem is a queued result push to the configured results endpoint.
type WebhookItem struct {
	RequestID string         `json:"request_id"`
	Record    AnalysisRecord `json:"record"`
	Curves    []PeakCurve    `json:"curves,omitempty"`
}

// BatchTiming tracks per-spectrum performance inside a batch run.
type BatchTiming struct {
	Sequence       int           `json:"sequence"`
	ProcessingTime time.Duration `json:"processing_time_ms"`
	TopIsotope     string        `json:"top_isotope"`
	TopConfidence  float64       `json:"top_confidence"`
	Success        bool          `json:"success"`
}
