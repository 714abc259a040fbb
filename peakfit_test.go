package gammacore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitPeakRecoversGaussian(t *testing.T) {
	const (
		center = 200.0
		sigma  = 6.0
		amp    = 800.0
	)
	counts := make([]float64, 512)
	for i := range counts {
		counts[i] = 40 + 0.05*float64(i)
	}
	addGaussian(counts, center, sigma, amp)

	opts := DefaultFitOptions()
	opts.WindowHalfWidth = 30
	peak, err := FitPeak(nil, counts, 200, opts)
	require.NoError(t, err)
	require.True(t, peak.FitSuccess)

	assert.InDelta(t, center, peak.EnergyKeV, 0.2, "centroid in channel units")
	assert.InDelta(t, FWHMFactor*sigma, peak.FWHMKeV, 0.3)
	assert.InDelta(t, amp*sigma*math.Sqrt(2*math.Pi), peak.NetArea, 150)
	assert.Greater(t, peak.AreaUncertainty, 0.0)
}

func TestFitPeakCalibratedCentroid(t *testing.T) {
	spec := labSpectrum([]float64{661.66}, 1500)
	candidate := spec.ChannelOf(661.66)

	peak, err := FitPeak(spec.Energies(), spec.Counts, candidate, DefaultFitOptions())
	require.NoError(t, err)
	require.True(t, peak.FitSuccess)

	assert.InDelta(t, 661.66, peak.EnergyKeV, 3.0)
	assert.InDelta(t, 8.0, peak.ResolutionPct, 1.5)
}

func TestFitPeakWindowTooSmallFallsBackToRaw(t *testing.T) {
	counts := noisyBaseline(128, 30, 2)
	addGaussian(counts, 64, 5, 400)

	opts := DefaultFitOptions()
	opts.WindowHalfWidth = 2
	peak, err := FitPeak(nil, counts, 64, opts)
	require.NoError(t, err, "a failed fit is a degraded result, not an error")

	assert.False(t, peak.FitSuccess)
	assert.Equal(t, 64, peak.Channel)
	assert.Equal(t, counts[64], peak.Counts)
	assert.Zero(t, peak.FWHMKeV)
}

func TestFitPeakInputErrors(t *testing.T) {
	counts := noisyBaseline(64, 30, 2)

	_, err := FitPeak(nil, nil, 0, DefaultFitOptions())
	assert.ErrorIs(t, err, ErrEmptySpectrum)

	_, err = FitPeak(nil, counts, -1, DefaultFitOptions())
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = FitPeak(nil, counts, 64, DefaultFitOptions())
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = FitPeak(make([]float64, 10), counts, 5, DefaultFitOptions())
	assert.ErrorIs(t, err, ErrInvalidOptions, "energies length must match counts")
}

func TestFitPeaksSkipsOutOfRangeCandidates(t *testing.T) {
	counts := make([]float64, 512)
	for i := range counts {
		counts[i] = 40
	}
	addGaussian(counts, 200, 6, 800)

	peaks := FitPeaks(nil, counts, []int{200, 5000}, DefaultFitOptions())
	require.Len(t, peaks, 1)
	assert.Equal(t, 200, peaks[0].Channel)
}

func TestPeakSNR(t *testing.T) {
	fitted := Peak{NetArea: 1000, AreaUncertainty: 50, FitSuccess: true}
	assert.InDelta(t, 20.0, fitted.SNR(), 1e-12)

	raw := Peak{Counts: 144}
	assert.InDelta(t, 12.0, raw.SNR(), 1e-12)
}
