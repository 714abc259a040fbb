package gammacore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultAnalyzer() *Analyzer {
	return NewAnalyzer(Library{}, nil, AnalysisOptions{})
}

func TestAnalyzeCalibrationSources(t *testing.T) {
	spec := labSpectrum([]float64{661.66, 1173.23, 1332.49}, 1500)

	result, err := defaultAnalyzer().Analyze(spec)
	require.NoError(t, err)
	require.NotEmpty(t, result.Peaks)

	byIsotope := make(map[string]IsotopeMatch, len(result.Isotopes))
	for _, m := range result.Isotopes {
		byIsotope[m.Isotope] = m
	}

	cs, ok := byIsotope["Cs-137"]
	require.True(t, ok, "Cs-137 expected among %v", result.Isotopes)
	assert.Greater(t, cs.Confidence, 70.0)
	assert.Equal(t, 1, cs.MatchedLines)

	co, ok := byIsotope["Co-60"]
	require.True(t, ok, "Co-60 expected among %v", result.Isotopes)
	assert.Greater(t, co.Confidence, 70.0)
	assert.Equal(t, 2, co.MatchedLines)

	assert.Empty(t, result.Chains, "single-isotope sources form no decay chain")
	assert.False(t, result.BackgroundApplied, "low-count acquisition skips background subtraction")
	assert.Nil(t, result.Background)
}

func TestAnalyzeZeroSpectrum(t *testing.T) {
	spec := &Spectrum{Counts: make([]float64, 1024), Cal: Calibration{A1: 3}, LiveTime: 600}

	result, err := defaultAnalyzer().Analyze(spec)
	require.NoError(t, err)
	assert.Empty(t, result.Peaks)
	assert.Empty(t, result.Isotopes)
	assert.Empty(t, result.Chains)
	assert.Zero(t, result.MaxCount)
	assert.False(t, result.BackgroundApplied)
}

func TestAnalyzeHighCountBackgroundPolicy(t *testing.T) {
	spec := labSpectrum([]float64{661.66}, 25000)
	require.Greater(t, spec.MaxCount(), HighCountThreshold)

	result, err := defaultAnalyzer().Analyze(spec)
	require.NoError(t, err)

	assert.True(t, result.BackgroundApplied)
	assert.Len(t, result.Background, spec.Channels())

	require.NotEmpty(t, result.Isotopes)
	assert.Equal(t, "Cs-137", result.Isotopes[0].Isotope, "got %v", result.Isotopes)
}

func TestAnalyzeVisualModeKeepsWorkingCounts(t *testing.T) {
	spec := labSpectrum([]float64{661.66}, 25000)

	opts := DefaultAnalysisOptions()
	opts.BackgroundMode = VisualMode
	analyzer := NewAnalyzer(Library{}, nil, opts)

	result, err := analyzer.Analyze(spec)
	require.NoError(t, err)
	assert.True(t, result.BackgroundApplied)
	assert.NotEmpty(t, result.Background, "visual mode still reports the estimate")
	require.NotEmpty(t, result.Isotopes)
	assert.Equal(t, "Cs-137", result.Isotopes[0].Isotope)
}

func TestAnalyzeRerunIsIdentical(t *testing.T) {
	spec := labSpectrum([]float64{661.66, 1173.23, 1332.49}, 1500)
	analyzer := defaultAnalyzer()

	first, err := analyzer.Analyze(spec)
	require.NoError(t, err)
	second, err := analyzer.Analyze(spec)
	require.NoError(t, err)

	assert.Equal(t, first, second, "re-running on the same snapshot must not diverge")
}

func TestAnalyzeRejectsInvalidInput(t *testing.T) {
	analyzer := defaultAnalyzer()

	_, err := analyzer.Analyze(&Spectrum{LiveTime: 600})
	assert.ErrorIs(t, err, ErrEmptySpectrum)

	_, err = analyzer.Analyze(&Spectrum{Counts: []float64{1, -1}, LiveTime: 600})
	assert.ErrorIs(t, err, ErrNegativeCounts)
}

func TestAnalyzeRejectsInvalidOptions(t *testing.T) {
	opts := DefaultAnalysisOptions()
	opts.Match.MinConfidence = 150
	analyzer := NewAnalyzer(Library{}, nil, opts)

	_, err := analyzer.Analyze(labSpectrum([]float64{661.66}, 1000))
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestAnalysisOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AnalysisOptions)
		ok     bool
	}{
		{name: "defaults", mutate: func(o *AnalysisOptions) {}, ok: true},
		{name: "negative tolerance", mutate: func(o *AnalysisOptions) { o.Match.ToleranceKeV = -5 }, ok: false},
		{name: "confidence above 100", mutate: func(o *AnalysisOptions) { o.Match.MinConfidence = 101 }, ok: false},
		{name: "negative chain confidence", mutate: func(o *AnalysisOptions) { o.MinChainConfidence = -1 }, ok: false},
		{name: "negative iterations", mutate: func(o *AnalysisOptions) { o.SNIPIterations = -1 }, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultAnalysisOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidOptions)
			}
		})
	}
}

func TestNewAnalyzerFillsDefaults(t *testing.T) {
	analyzer := NewAnalyzer(Library{}, nil, AnalysisOptions{})
	assert.NotEmpty(t, analyzer.Library.Isotopes())
	assert.Len(t, analyzer.Chains, 3)
	assert.NotEmpty(t, analyzer.Options.PeakSearch.Scales)
}
