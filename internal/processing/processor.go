package processing

import (
	"fmt"
	"log"
	"time"

	"github.com/radwatch/gammacore"
	"github.com/radwatch/gammacore/pkg/config"
	"github.com/radwatch/gammacore/pkg/models"
)

// Processor turns wire-format spectrum uploads into analysis records. It is
// stateless apart from the injected reference data, so one instance serves
// all workers concurrently.
type Processor struct {
	library  gammacore.Library
	chains   []gammacore.ChainDefinition
	profiles map[string]gammacore.DetectorProfile
}

// New creates a processor with the built-in reference library, chain
// definitions, and detector profiles.
func New() *Processor {
	return &Processor{
		library:  gammacore.DefaultLibrary(),
		chains:   gammacore.DefaultChains(),
		profiles: gammacore.DefaultProfiles(),
	}
}

// NewWithLibrary creates a processor with a custom reference library, e.g.
// one extended by user-added isotopes.
func NewWithLibrary(lib gammacore.Library, chains []gammacore.ChainDefinition) *Processor {
	p := New()
	p.library = lib
	if len(chains) > 0 {
		p.chains = chains
	}
	return p
}

// Process validates an upload, runs the full pipeline, and maps the outcome
// onto the export record. ROI estimation runs for each matched isotope when
// enabled; its failures are logged and skipped, never fatal.
func (p *Processor) Process(requestID string, upload models.SpectrumUpload, cfg *config.Config) (models.AnalysisRecord, error) {
	if err := cfg.Validate(); err != nil {
		return models.AnalysisRecord{}, fmt.Errorf("invalid configuration: %w", err)
	}
	spec, err := p.buildSpectrum(upload)
	if err != nil {
		return models.AnalysisRecord{}, err
	}

	analyzer := gammacore.NewAnalyzer(p.library, p.chains, cfg.AnalysisOptions())
	start := time.Now()
	result, err := analyzer.Analyze(spec)
	if err != nil {
		return models.AnalysisRecord{}, err
	}
	elapsed := time.Since(start)

	record := models.AnalysisRecord{
		RequestID:         requestID,
		Timestamp:         time.Now().UTC(),
		Detector:          upload.Detector,
		Channels:          spec.Channels(),
		MaxCount:          result.MaxCount,
		BackgroundApplied: result.BackgroundApplied,
		Peaks:             result.Peaks,
		Isotopes:          result.Isotopes,
		Chains:            result.Chains,
		ProcessingTimeMs:  float64(elapsed.Microseconds()) / 1000,
	}

	if cfg.EstimateROI && !spec.Cal.IsZero() {
		det := p.detector(upload.Detector, cfg)
		for _, m := range result.Isotopes {
			roi, err := gammacore.EstimateActivity(spec, m.Isotope, p.library, det, spec.LiveTime, gammacore.SourceUnknown)
			if err != nil {
				log.Printf("ROI estimation skipped for %s: %v", m.Isotope, err)
				continue
			}
			record.ROI = append(record.ROI, roi)
		}
		if hasUraniumSignal(result.Isotopes) {
			if enr, err := gammacore.ClassifyEnrichment(spec, det); err == nil {
				record.Enrichment = &enr
			}
		}
	}

	if !cfg.Quiet {
		if top, ok := record.TopIsotope(); ok {
			log.Printf("analysis %s: %d peaks, top isotope %s (%.1f%%), %d chains, %.1fms",
				requestID, len(record.Peaks), top.Isotope, top.Confidence, len(record.Chains), record.ProcessingTimeMs)
		} else {
			log.Printf("analysis %s: %d peaks, no isotope above threshold, %.1fms",
				requestID, len(record.Peaks), record.ProcessingTimeMs)
		}
	}
	return record, nil
}

// buildSpectrum validates the wire payload into a core Spectrum.
func (p *Processor) buildSpectrum(upload models.SpectrumUpload) (*gammacore.Spectrum, error) {
	var cal gammacore.Calibration
	switch len(upload.Calibration) {
	case 0:
		// Uncalibrated upload; channel indices serve as energies.
	case 2:
		cal = gammacore.Calibration{A0: upload.Calibration[0], A1: upload.Calibration[1]}
	case 3:
		cal = gammacore.Calibration{A0: upload.Calibration[0], A1: upload.Calibration[1], A2: upload.Calibration[2]}
	default:
		return nil, fmt.Errorf("calibration must have 2 or 3 coefficients, got %d", len(upload.Calibration))
	}
	live := upload.LiveTimeS
	if live <= 0 {
		live = upload.RealTimeS
	}
	return gammacore.NewSpectrum(upload.Counts, cal, live, upload.RealTimeS)
}

func (p *Processor) detector(name string, cfg *config.Config) gammacore.DetectorProfile {
	if prof, ok := p.profiles[name]; ok {
		return prof
	}
	return cfg.DetectorProfile()
}

// hasUraniumSignal reports whether the match set suggests uranium, which
// gates the 186/93 keV enrichment ratio test.
func hasUraniumSignal(matches []gammacore.IsotopeMatch) bool {
	for _, m := range matches {
		switch m.Isotope {
		case "U-235", "Th-234", "Ra-226", "Pa-234m":
			return true
		}
	}
	return false
}

// ProcessorFunc adapts Process for the worker pool.
func (p *Processor) ProcessorFunc(cfg *config.Config) func(item models.WorkItem) models.WorkResult {
	return func(item models.WorkItem) models.WorkResult {
		start := time.Now()
		record, err := p.Process(item.RequestID, item.Upload, cfg)
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
	}
}
