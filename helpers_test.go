package gammacore

import "math"

// addGaussian superimposes a Gaussian peak on the counts array.
func addGaussian(counts []float64, center, sigma, amp float64) {
	for i := range counts {
		d := (float64(i) - center) / sigma
		counts[i] += amp * math.Exp(-d*d/2)
	}
}

// noisyBaseline fills a flat continuum with bounded deterministic noise so
// the matched filter's noise-floor estimate behaves like it does on real
// acquisitions. The generator is a fixed-seed LCG, so every run sees the
// same spectrum.
func noisyBaseline(n int, level, noiseAmp float64) []float64 {
	counts := make([]float64, n)
	seed := uint32(2463534242)
	for i := range counts {
		seed = seed*1664525 + 1013904223
		u := float64(seed>>8) / float64(1<<24)
		counts[i] = level + noiseAmp*(2*u-1)
	}
	return counts
}

// labSpectrum builds a 1024-channel calibrated spectrum (3 keV per channel)
// with Gaussian peaks at the given energies, sized for the usual NaI
// resolution. liveTime is 600 s.
func labSpectrum(energiesKeV []float64, amp float64) *Spectrum {
	const keVPerChannel = 3.0
	counts := noisyBaseline(1024, 50, 3)
	for _, e := range energiesKeV {
		fwhmKeV := 0.08 * math.Sqrt(662*e)
		sigma := fwhmKeV / FWHMFactor / keVPerChannel
		addGaussian(counts, e/keVPerChannel, sigma, amp)
	}
	return &Spectrum{
		Counts:   counts,
		Cal:      Calibration{A1: keVPerChannel},
		LiveTime: 600,
		RealTime: 620,
	}
}

// fittedPeak fabricates a well-fitted peak at the given energy for matcher
// and chain tests that do not need the upstream pipeline.
func fittedPeak(energyKeV float64) Peak {
	return Peak{
		Channel:         int(energyKeV / 3),
		EnergyKeV:       energyKeV,
		Counts:          8000,
		NetArea:         5000,
		AreaUncertainty: 80,
		FWHMKeV:         0.08 * math.Sqrt(662*energyKeV),
		ResolutionPct:   8,
		FitSuccess:      true,
	}
}
