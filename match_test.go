package gammacore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchIsotopesDeterministic(t *testing.T) {
	peaks := []Peak{
		fittedPeak(661.66),
		fittedPeak(1173.23),
		fittedPeak(1332.49),
	}
	lib := DefaultLibrary()
	opts := DefaultMatchOptions()

	first := MatchIsotopes(peaks, lib, opts)
	second := MatchIsotopes(peaks, lib, opts)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second, "fixed peaks and library must give the same ordered result")
}

func TestMatchIsotopesMinConfidenceMonotonic(t *testing.T) {
	peaks := []Peak{
		fittedPeak(661.66),
		fittedPeak(1173.23),
		fittedPeak(1332.49),
		fittedPeak(609.31),
	}
	lib := DefaultLibrary()

	prev := -1
	for _, min := range []float64{0, 30, 60, 90} {
		opts := DefaultMatchOptions()
		opts.MinConfidence = min
		opts.MaxResults = 0
		n := len(MatchIsotopes(peaks, lib, opts))
		if prev >= 0 {
			assert.LessOrEqual(t, n, prev, "raising min confidence must never add matches")
		}
		prev = n
	}
}

func TestMatchIsotopesToleranceWidensOnHighCounts(t *testing.T) {
	// 25 keV off the Cs-137 line: outside the 20 keV base tolerance,
	// inside the widened 60 keV one.
	peaks := []Peak{fittedPeak(686.66)}
	lib := DefaultLibrary()

	opts := DefaultMatchOptions()
	opts.MinConfidence = 0
	opts.SpectrumMaxCount = 500
	for _, m := range MatchIsotopes(peaks, lib, opts) {
		assert.NotEqual(t, "Cs-137", m.Isotope)
	}

	opts.SpectrumMaxCount = 20000
	matches := MatchIsotopes(peaks, lib, opts)
	found := false
	for _, m := range matches {
		if m.Isotope == "Cs-137" {
			found = true
		}
	}
	assert.True(t, found, "widened tolerance must pick up the shifted centroid")
}

func TestEffectiveTolerance(t *testing.T) {
	opts := MatchOptions{ToleranceKeV: 20, HighCountToleranceKeV: 60}

	opts.SpectrumMaxCount = HighCountThreshold
	assert.Equal(t, 20.0, opts.EffectiveTolerance(), "threshold itself is not high-count")

	opts.SpectrumMaxCount = HighCountThreshold + 1
	assert.Equal(t, 60.0, opts.EffectiveTolerance())
}

func TestMatchIsotopesMaxResultsCap(t *testing.T) {
	peaks := []Peak{
		fittedPeak(661.66),
		fittedPeak(1173.23),
		fittedPeak(1332.49),
	}
	opts := DefaultMatchOptions()
	opts.MaxResults = 1

	matches := MatchIsotopes(peaks, DefaultLibrary(), opts)
	require.Len(t, matches, 1)
	assert.Equal(t, "Co-60", matches[0].Isotope, "two-line Co-60 outranks single-line Cs-137")
}

func TestMatchLinesCloserEnergyWinsClaim(t *testing.T) {
	lib := NewLibrary([]IsotopeLine{
		{Isotope: "X-1", EnergyKeV: 100, Intensity: 0.5},
		{Isotope: "X-1", EnergyKeV: 105, Intensity: 0.4},
	})
	peaks := []Peak{fittedPeak(101)}

	opts := DefaultMatchOptions()
	opts.MinConfidence = 0
	matches := MatchIsotopes(peaks, lib, opts)
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].MatchedLines, "one peak can satisfy only one line of an isotope")
	assert.Equal(t, 2, matches[0].TotalLines)
}

func TestMatchIsotopesEmptyPeaks(t *testing.T) {
	assert.Nil(t, MatchIsotopes(nil, DefaultLibrary(), DefaultMatchOptions()))
}

func TestEnergyFactor(t *testing.T) {
	exact := []lineMatch{{dE: 0}}
	assert.InDelta(t, 25.0, energyFactor(exact, 20), 1e-9)

	atTolerance := []lineMatch{{dE: 20}}
	assert.InDelta(t, 0.0, energyFactor(atTolerance, 20), 1e-9)

	mixed := []lineMatch{{dE: 0}, {dE: 10}}
	assert.InDelta(t, 25.0*0.75, energyFactor(mixed, 20), 1e-9)

	assert.Zero(t, energyFactor(nil, 20))
}

func TestIntensityFactor(t *testing.T) {
	lines := []IsotopeLine{
		{EnergyKeV: 1173.23, Intensity: 0.6},
		{EnergyKeV: 1332.49, Intensity: 0.4},
	}
	full := []lineMatch{{line: lines[0]}, {line: lines[1]}}
	assert.InDelta(t, 25.0, intensityFactor(full, lines), 1e-9)

	partial := []lineMatch{{line: lines[1]}}
	assert.InDelta(t, 10.0, intensityFactor(partial, lines), 1e-9)

	assert.Zero(t, intensityFactor(nil, nil))
}

func TestFitQualityFactor(t *testing.T) {
	inBand := []lineMatch{{peak: Peak{ResolutionPct: 8, FitSuccess: true}}}
	assert.InDelta(t, 20.0, fitQualityFactor(inBand), 1e-9)

	degraded := []lineMatch{{peak: Peak{ResolutionPct: 30, FitSuccess: true}}}
	assert.InDelta(t, 10.0, fitQualityFactor(degraded), 1e-9)

	hopeless := []lineMatch{{peak: Peak{ResolutionPct: 45, FitSuccess: true}}}
	assert.InDelta(t, 0.0, fitQualityFactor(hopeless), 1e-9)

	unfitted := []lineMatch{{peak: Peak{ResolutionPct: 8, FitSuccess: false}}}
	assert.Zero(t, fitQualityFactor(unfitted), "failed fits are excluded from the factor")
}

func TestSNRFactor(t *testing.T) {
	strong := []lineMatch{{peak: Peak{NetArea: 2000, AreaUncertainty: 10, FitSuccess: true}}}
	assert.InDelta(t, 15.0, snrFactor(strong), 1e-9, "factor saturates at SNR 10")

	weak := []lineMatch{{peak: Peak{NetArea: 500, AreaUncertainty: 100, FitSuccess: true}}}
	assert.InDelta(t, 7.5, snrFactor(weak), 1e-9)

	assert.Zero(t, snrFactor(nil))
}

func TestMultiLineFactor(t *testing.T) {
	assert.Zero(t, multiLineFactor(0))
	assert.Zero(t, multiLineFactor(1))
	assert.Equal(t, 15.0, multiLineFactor(2))
	assert.Equal(t, 15.0, multiLineFactor(6))
}
