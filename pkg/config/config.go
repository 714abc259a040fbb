package config

import (
	"fmt"

	"github.com/radwatch/gammacore"
)

// Config holds the user-tunable analysis settings. It maps one-to-one onto
// the core AnalysisOptions; Validate rejects out-of-range values at the
// boundary before any spectrum is touched.
type Config struct {
	Detector           string  `mapstructure:"detector"`
	ToleranceKeV       float64 `mapstructure:"tolerance_kev"`
	MinConfidence      float64 `mapstructure:"min_confidence"`
	MaxIsotopes        int     `mapstructure:"max_isotopes"`
	SNIPIterations     int     `mapstructure:"snip_iterations"`
	SNRThreshold       float64 `mapstructure:"snr_threshold"`
	MinChainConfidence float64 `mapstructure:"min_chain_confidence"`
	HighCountThreshold float64 `mapstructure:"high_count_threshold"`
	EstimateROI        bool    `mapstructure:"estimate_roi"`
	Quiet              bool    `mapstructure:"quiet"`
	EnableProfiling    bool    `mapstructure:"enable_profiling"`
}

// ServerConfig holds daemon-specific settings.
type ServerConfig struct {
	Port            string `mapstructure:"port"`
	WorkerCount     int    `mapstructure:"worker_count"`
	WebhookURL      string `mapstructure:"webhook_url"`
	HistoryPath     string `mapstructure:"history_path"`
	EnableProfiling bool   `mapstructure:"enable_profiling"`
	ProfilingPort   string `mapstructure:"profiling_port"`
}

// DefaultConfig returns analysis settings validated against reference
// scintillator spectra.
func DefaultConfig() *Config {
	return &Config{
		Detector:           "nai-2x2",
		ToleranceKeV:       20,
		MinConfidence:      40,
		MaxIsotopes:        5,
		SNIPIterations:     gammacore.DefaultSNIPIterations,
		SNRThreshold:       3.0,
		MinChainConfidence: 30,
		HighCountThreshold: gammacore.HighCountThreshold,
		EstimateROI:        true,
	}
}

// DefaultServerConfig returns daemon settings with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:          "8080",
		WorkerCount:   5,
		HistoryPath:   "gammaspec-history.db",
		ProfilingPort: "6060",
	}
}

// Validate checks the configuration-error taxonomy: thresholds out of their
// valid ranges are rejected before processing.
func (c *Config) Validate() error {
	if c.ToleranceKeV <= 0 {
		return fmt.Errorf("tolerance_kev must be positive, got %.2f", c.ToleranceKeV)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return fmt.Errorf("min_confidence must be in [0,100], got %.2f", c.MinConfidence)
	}
	if c.MinChainConfidence < 0 || c.MinChainConfidence > 100 {
		return fmt.Errorf("min_chain_confidence must be in [0,100], got %.2f", c.MinChainConfidence)
	}
	if c.MaxIsotopes <= 0 {
		return fmt.Errorf("max_isotopes must be positive, got %d", c.MaxIsotopes)
	}
	if c.SNIPIterations <= 0 {
		return fmt.Errorf("snip_iterations must be positive, got %d", c.SNIPIterations)
	}
	if c.SNRThreshold <= 0 {
		return fmt.Errorf("snr_threshold must be positive, got %.2f", c.SNRThreshold)
	}
	if c.HighCountThreshold <= 0 {
		return fmt.Errorf("high_count_threshold must be positive, got %.2f", c.HighCountThreshold)
	}
	return nil
}

// AnalysisOptions maps the validated configuration onto core pipeline
// options.
func (c *Config) AnalysisOptions() gammacore.AnalysisOptions {
	opts := gammacore.DefaultAnalysisOptions()
	opts.SNIPIterations = c.SNIPIterations
	opts.HighCountThreshold = c.HighCountThreshold
	opts.PeakSearch.SNRThreshold = c.SNRThreshold
	opts.PeakSearch.SNIPIterations = c.SNIPIterations
	opts.Match.ToleranceKeV = c.ToleranceKeV
	opts.Match.MinConfidence = c.MinConfidence
	opts.Match.MaxResults = c.MaxIsotopes
	opts.MinChainConfidence = c.MinChainConfidence
	return opts
}

// DetectorProfile resolves the configured detector, falling back to the
// default NaI profile for unknown names.
func (c *Config) DetectorProfile() gammacore.DetectorProfile {
	profiles := gammacore.DefaultProfiles()
	if p, ok := profiles[c.Detector]; ok {
		return p
	}
	return profiles["nai-2x2"]
}
