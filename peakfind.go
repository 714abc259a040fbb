package gammacore

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// PeakSearchOptions tunes the multiscale peak detector. The defaults were
// validated against reference NaI spectra (Cs-137, Co-60, natural uranium)
// rather than derived analytically; treat them as starting points.
type PeakSearchOptions struct {
	// Scales are Ricker kernel widths in channels. A peak must produce a
	// significant ridge response at two adjacent scales to be accepted.
	Scales []int
	// SNRThreshold is the minimum response-to-noise ratio per scale,
	// measured against a MAD noise floor of that scale's response row.
	SNRThreshold float64
	// MinSeparation collapses candidates closer than this many channels
	// into the one with the stronger response.
	MinSeparation int
	// ApplySNIP subtracts a SNIP continuum estimate before filtering.
	ApplySNIP bool
	// SNIPIterations is the clipping depth when ApplySNIP is set.
	SNIPIterations int
}

// DefaultPeakSearchOptions returns the tuned defaults.
func DefaultPeakSearchOptions() PeakSearchOptions {
	return PeakSearchOptions{
		Scales:         []int{2, 4, 6, 8, 12, 16},
		SNRThreshold:   3.0,
		MinSeparation:  16,
		ApplySNIP:      true,
		SNIPIterations: DefaultSNIPIterations,
	}
}

// FindPeaks locates candidate peak channels with a continuous-wavelet-style
// multiscale matched filter: the counts are correlated with zero-mean Ricker
// kernels at each scale, and channels whose response is a local maximum with
// significant SNR at two adjacent scales survive. Flat and all-zero spectra
// yield no candidates. The returned channels are sorted ascending.
func FindPeaks(counts []float64, opts PeakSearchOptions) []int {
	n := len(counts)
	if n == 0 {
		return nil
	}
	if len(opts.Scales) == 0 {
		opts = DefaultPeakSearchOptions()
	}

	working := counts
	if opts.ApplySNIP {
		working = SubtractBackground(counts, EstimateBackground(counts, opts.SNIPIterations))
	}

	// hits[c] counts the scales at which channel c carries a significant
	// local maximum; response[c] keeps the strongest SNR seen there.
	hits := make([]int, n)
	response := make([]float64, n)

	for _, s := range opts.Scales {
		row := cwtRow(working, s)
		noise := madNoise(row)
		if noise <= 0 {
			continue
		}
		for c := 1; c < n-1; c++ {
			if row[c] <= 0 || row[c] < row[c-1] || row[c] <= row[c+1] {
				continue
			}
			snr := row[c] / noise
			if snr < opts.SNRThreshold {
				continue
			}
			// Maxima drift by a few channels between scales; credit a
			// small neighborhood so ridges line up.
			for d := -2; d <= 2; d++ {
				if c+d < 0 || c+d >= n {
					continue
				}
				hits[c+d]++
				if snr > response[c+d] {
					response[c+d] = snr
				}
			}
		}
	}

	var candidates []int
	for c := range hits {
		if hits[c] >= 2 && localMax(working, c) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	// Collapse candidates inside the minimum separation, strongest first.
	sep := opts.MinSeparation
	if sep <= 0 {
		sep = opts.Scales[len(opts.Scales)-1]
	}
	sort.Slice(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if working[ci] != working[cj] {
			return working[ci] > working[cj]
		}
		return response[ci] > response[cj]
	})
	var kept []int
	for _, c := range candidates {
		ok := true
		for _, k := range kept {
			if abs(c-k) < sep {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, c)
		}
	}
	sort.Ints(kept)
	return kept
}

// cwtRow correlates counts with a zero-mean, L2-normalized Ricker kernel of
// the given scale. Edges are zero-padded.
func cwtRow(counts []float64, scale int) []float64 {
	n := len(counts)
	half := 3 * scale
	kernel := rickerKernel(scale)
	row := make([]float64, n)
	for c := 0; c < n; c++ {
		acc := 0.0
		for k := -half; k <= half; k++ {
			i := c + k
			if i < 0 || i >= n {
				continue
			}
			acc += counts[i] * kernel[k+half]
		}
		row[c] = acc
	}
	return row
}

// rickerKernel samples the Mexican-hat wavelet at integer offsets within
// +/-3 scale, then removes the residual mean of the truncated kernel so a
// flat spectrum produces an exactly zero response, and normalizes to unit
// L2 norm so SNR is comparable across scales.
func rickerKernel(scale int) []float64 {
	half := 3 * scale
	k := make([]float64, 2*half+1)
	s := float64(scale)
	sum := 0.0
	for i := -half; i <= half; i++ {
		x := float64(i)
		v := (1 - x*x/(s*s)) * math.Exp(-x*x/(2*s*s))
		k[i+half] = v
		sum += v
	}
	mean := sum / float64(len(k))
	norm := 0.0
	for i := range k {
		k[i] -= mean
		norm += k[i] * k[i]
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range k {
			k[i] /= norm
		}
	}
	return k
}

// madNoise estimates the noise floor of a response row as the scaled median
// absolute deviation, which is robust against the peaks themselves.
func madNoise(row []float64) float64 {
	n := len(row)
	if n == 0 {
		return 0
	}
	tmp := make([]float64, n)
	copy(tmp, row)
	sort.Float64s(tmp)
	med := stat.Quantile(0.5, stat.Empirical, tmp, nil)
	for i, v := range row {
		tmp[i] = math.Abs(v - med)
	}
	sort.Float64s(tmp)
	mad := stat.Quantile(0.5, stat.Empirical, tmp, nil)
	return 1.4826 * mad
}

// localMax reports whether channel c is a maximum of its +/-2 neighborhood.
func localMax(counts []float64, c int) bool {
	lo, hi := c-2, c+2
	if lo < 0 {
		lo = 0
	}
	if hi >= len(counts) {
		hi = len(counts) - 1
	}
	for i := lo; i <= hi; i++ {
		if counts[i] > counts[c] {
			return false
		}
	}
	return counts[c] > 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
