package gammacore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// containsNear reports whether any channel in peaks lies within tol of want.
func containsNear(peaks []int, want, tol int) bool {
	for _, c := range peaks {
		if abs(c-want) <= tol {
			return true
		}
	}
	return false
}

func TestFindPeaksLocatesGaussians(t *testing.T) {
	counts := noisyBaseline(1024, 50, 3)
	addGaussian(counts, 220, 7.5, 1200)
	addGaussian(counts, 600, 10, 900)

	peaks := FindPeaks(counts, DefaultPeakSearchOptions())
	require.NotEmpty(t, peaks)
	assert.True(t, containsNear(peaks, 220, 4), "expected a candidate near channel 220, got %v", peaks)
	assert.True(t, containsNear(peaks, 600, 4), "expected a candidate near channel 600, got %v", peaks)
	assert.IsIncreasing(t, peaks)
}

func TestFindPeaksFlatAndZeroSpectra(t *testing.T) {
	flat := make([]float64, 512)
	for i := range flat {
		flat[i] = 100
	}
	assert.Empty(t, FindPeaks(flat, DefaultPeakSearchOptions()), "flat spectrum has no peaks")

	zeros := make([]float64, 512)
	assert.Empty(t, FindPeaks(zeros, DefaultPeakSearchOptions()), "zero spectrum has no peaks")

	assert.Empty(t, FindPeaks(nil, DefaultPeakSearchOptions()))
}

func TestFindPeaksMinSeparationCollapsesNeighbors(t *testing.T) {
	counts := noisyBaseline(1024, 50, 3)
	addGaussian(counts, 300, 4, 1000)
	addGaussian(counts, 310, 4, 800)

	opts := DefaultPeakSearchOptions()
	opts.MinSeparation = 16
	peaks := FindPeaks(counts, opts)

	inRegion := 0
	for _, c := range peaks {
		if c >= 290 && c <= 320 {
			inRegion++
		}
	}
	assert.Equal(t, 1, inRegion, "candidates 10 channels apart must collapse, got %v", peaks)
}

func TestFindPeaksKeepsSeparatedNeighbors(t *testing.T) {
	counts := noisyBaseline(1024, 50, 3)
	addGaussian(counts, 300, 4, 1000)
	addGaussian(counts, 360, 4, 800)

	peaks := FindPeaks(counts, DefaultPeakSearchOptions())
	assert.True(t, containsNear(peaks, 300, 4), "got %v", peaks)
	assert.True(t, containsNear(peaks, 360, 4), "got %v", peaks)
}

func TestRickerKernelZeroMeanUnitNorm(t *testing.T) {
	for _, scale := range []int{2, 4, 8, 16} {
		k := rickerKernel(scale)
		sum, norm := 0.0, 0.0
		for _, v := range k {
			sum += v
			norm += v * v
		}
		assert.InDelta(t, 0.0, sum, 1e-9, "scale %d kernel must be zero-mean", scale)
		assert.InDelta(t, 1.0, norm, 1e-9, "scale %d kernel must have unit L2 norm", scale)
	}
}

func TestMadNoise(t *testing.T) {
	assert.Equal(t, 0.0, madNoise(nil))

	constant := []float64{5, 5, 5, 5, 5}
	assert.Equal(t, 0.0, madNoise(constant))

	varied := []float64{1, 2, 3, 4, 100}
	assert.Greater(t, madNoise(varied), 0.0)
}
