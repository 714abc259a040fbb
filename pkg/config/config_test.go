package config

import (
	"testing"

	"github.com/radwatch/gammacore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero tolerance", mutate: func(c *Config) { c.ToleranceKeV = 0 }},
		{name: "negative tolerance", mutate: func(c *Config) { c.ToleranceKeV = -10 }},
		{name: "confidence above 100", mutate: func(c *Config) { c.MinConfidence = 101 }},
		{name: "negative confidence", mutate: func(c *Config) { c.MinConfidence = -1 }},
		{name: "chain confidence above 100", mutate: func(c *Config) { c.MinChainConfidence = 150 }},
		{name: "zero max isotopes", mutate: func(c *Config) { c.MaxIsotopes = 0 }},
		{name: "zero snip iterations", mutate: func(c *Config) { c.SNIPIterations = 0 }},
		{name: "zero snr threshold", mutate: func(c *Config) { c.SNRThreshold = 0 }},
		{name: "zero high count threshold", mutate: func(c *Config) { c.HighCountThreshold = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAnalysisOptionsMapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ToleranceKeV = 25
	cfg.MinConfidence = 55
	cfg.MaxIsotopes = 3
	cfg.SNIPIterations = 30
	cfg.SNRThreshold = 4.5
	cfg.MinChainConfidence = 20
	cfg.HighCountThreshold = 5000
	require.NoError(t, cfg.Validate())

	opts := cfg.AnalysisOptions()
	assert.Equal(t, 25.0, opts.Match.ToleranceKeV)
	assert.Equal(t, 55.0, opts.Match.MinConfidence)
	assert.Equal(t, 3, opts.Match.MaxResults)
	assert.Equal(t, 30, opts.SNIPIterations)
	assert.Equal(t, 30, opts.PeakSearch.SNIPIterations)
	assert.Equal(t, 4.5, opts.PeakSearch.SNRThreshold)
	assert.Equal(t, 20.0, opts.MinChainConfidence)
	assert.Equal(t, 5000.0, opts.HighCountThreshold)
	assert.NoError(t, opts.Validate())
}

func TestDetectorProfileResolution(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detector = "csi-cube"
	assert.Equal(t, "csi-cube", cfg.DetectorProfile().Name)

	cfg.Detector = "no-such-detector"
	assert.Equal(t, "nai-2x2", cfg.DetectorProfile().Name)
}

func TestDefaultServerConfig(t *testing.T) {
	sc := DefaultServerConfig()
	assert.Equal(t, "8080", sc.Port)
	assert.Greater(t, sc.WorkerCount, 0)
	assert.NotEmpty(t, sc.HistoryPath)
}

func TestAnalysisOptionsDefaultsTrackCore(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, gammacore.DefaultSNIPIterations, cfg.SNIPIterations)
	assert.Equal(t, gammacore.HighCountThreshold, cfg.HighCountThreshold)
}
