package gammacore

import (
	"fmt"
	"log"
	"math"

	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/optimize"
)

// FWHMFactor converts a Gaussian sigma to full width at half maximum.
const FWHMFactor = 2.3548200450309493 // 2*sqrt(2*ln 2)

// Weighting selects the residual weighting for peak fits.
type Weighting int

const (
	// POISSON weights each residual by 1/sqrt(count+1), the counting
	// uncertainty of the channel.
	POISSON Weighting = iota
	// UNITY applies no weighting.
	UNITY
)

// Peak is one detected peak, fitted when possible. When FitSuccess is false
// the fitted fields fall back to the raw channel values and downstream
// consumers must not use the fit-dependent ones (FWHMKeV, ResolutionPct,
// NetArea beyond raw counts).
type Peak struct {
	Channel         int     `json:"channel"`
	EnergyKeV       float64 `json:"energy_kev"`
	Counts          float64 `json:"counts"`
	NetArea         float64 `json:"net_area"`
	AreaUncertainty float64 `json:"area_uncertainty"`
	FWHMKeV         float64 `json:"fwhm_kev"`
	ResolutionPct   float64 `json:"resolution_pct"`
	FitSuccess      bool    `json:"fit_success"`
}

// SNR returns a signal-to-noise figure for the peak: net area over its 1σ
// uncertainty for fitted peaks, sqrt(counts) for unfitted ones.
func (p Peak) SNR() float64 {
	if p.FitSuccess && p.AreaUncertainty > 0 {
		return p.NetArea / p.AreaUncertainty
	}
	return math.Sqrt(p.Counts)
}

// FitOptions tunes the local Gaussian-plus-linear fit.
type FitOptions struct {
	// WindowHalfWidth is the fit window half-width in channels. Zero means
	// automatic: three expected sigmas at the candidate energy, at least 8.
	WindowHalfWidth int
	// ExpectedResolutionPct seeds the initial sigma guess; scintillators
	// sit around 8-15% FWHM at 662 keV.
	ExpectedResolutionPct float64
	// MaxIterations bounds the LM solver.
	MaxIterations int
	// Weighting selects POISSON (default) or UNITY residual weighting.
	Weighting Weighting
}

// DefaultFitOptions returns the tuned defaults.
func DefaultFitOptions() FitOptions {
	return FitOptions{
		WindowHalfWidth:       0,
		ExpectedResolutionPct: 8.0,
		MaxIterations:         500,
		Weighting:             POISSON,
	}
}

// gaussLinear evaluates the five-parameter model at channel x:
// x0 amplitude, x1 centroid (channels), x2 sigma (channels), x3 slope,
// x4 intercept.
func gaussLinear(p []float64, x float64) float64 {
	d := (x - p[1]) / p[2]
	return p[0]*math.Exp(-d*d/2) + p[3]*x + p[4]
}

// FitPeak fits a Gaussian atop a locally-linear background around the
// candidate channel using Levenberg-Marquardt with a numeric Jacobian,
// falling back to Nelder-Mead on the chi-square when LM does not converge.
//
// A failed fit is not an error: the returned Peak carries FitSuccess=false
// and the raw channel values, and the error is nil. A non-nil error is only
// returned for malformed input (empty counts, candidate out of range).
// energies may be nil, in which case channel indices are used as energies.
func FitPeak(energies, counts []float64, candidate int, opts FitOptions) (Peak, error) {
	n := len(counts)
	if n == 0 {
		return Peak{}, ErrEmptySpectrum
	}
	if candidate < 0 || candidate >= n {
		return Peak{}, fmt.Errorf("%w: fit candidate channel %d out of range [0,%d)", ErrInvalidOptions, candidate, n)
	}
	if energies != nil && len(energies) != n {
		return Peak{}, fmt.Errorf("%w: energies/counts length mismatch: %d vs %d", ErrInvalidOptions, len(energies), n)
	}
	if opts.MaxIterations <= 0 {
		opts = DefaultFitOptions()
	}

	energyAt := func(ch float64) float64 {
		if energies == nil {
			return ch
		}
		// Linear interpolation between calibrated channel energies.
		i := int(ch)
		if i < 0 {
			i = 0
		}
		if i >= n-1 {
			return energies[n-1]
		}
		frac := ch - float64(i)
		return energies[i] + frac*(energies[i+1]-energies[i])
	}
	keVPerChannel := 1.0
	if energies != nil && n > 1 {
		keVPerChannel = (energies[n-1] - energies[0]) / float64(n-1)
	}

	raw := Peak{
		Channel:   candidate,
		EnergyKeV: energyAt(float64(candidate)),
		Counts:    counts[candidate],
	}

	// Fit window sized from the expected detector resolution.
	half := opts.WindowHalfWidth
	if half <= 0 {
		expFWHM := opts.ExpectedResolutionPct / 100 * raw.EnergyKeV / keVPerChannel
		half = int(1.5 * expFWHM)
		if half < 8 {
			half = 8
		}
	}
	lo, hi := candidate-half, candidate+half
	if lo < 0 {
		lo = 0
	}
	if hi >= n {
		hi = n - 1
	}
	size := hi - lo + 1
	if size < 7 {
		// Too few samples for five parameters.
		return raw, nil
	}

	// Initial parameters from the window endpoints.
	slope := (counts[hi] - counts[lo]) / float64(hi-lo)
	intercept := counts[lo] - slope*float64(lo)
	baseline := slope*float64(candidate) + intercept
	amp := counts[candidate] - baseline
	if amp <= 0 {
		amp = math.Max(counts[candidate], 1)
	}
	sigma := opts.ExpectedResolutionPct / 100 * raw.EnergyKeV / keVPerChannel / FWHMFactor
	if sigma < 1 {
		sigma = 1
	}
	init := []float64{amp, float64(candidate), sigma, slope, intercept}

	residuals := func(dst, x []float64) {
		for i := 0; i < size; i++ {
			ch := float64(lo + i)
			r := gaussLinear(x, ch) - counts[lo+i]
			if opts.Weighting == POISSON {
				r /= math.Sqrt(counts[lo+i] + 1)
			}
			dst[i] = r
		}
	}

	params, err := runLM(residuals, init, size, opts.MaxIterations)
	if err != nil {
		params, err = runNelderMead(residuals, init, size)
	}
	if err != nil {
		log.Printf("peak fit failed at channel %d: %v", candidate, err)
		return raw, nil
	}

	amp, mu, sg := params[0], params[1], math.Abs(params[2])
	if amp <= 0 || sg <= 0 || math.IsNaN(amp) || math.IsNaN(mu) || math.IsNaN(sg) ||
		mu < float64(lo) || mu > float64(hi) {
		return raw, nil
	}

	centroidKeV := energyAt(mu)
	fwhmKeV := FWHMFactor * sg * keVPerChannel
	netArea := amp * sg * math.Sqrt(2*math.Pi)

	// Poisson-style 1σ on the net area from gross and background counts
	// inside +/-2 sigma of the centroid.
	gross, bkg := 0.0, 0.0
	wlo, whi := int(mu-2*sg), int(mu+2*sg)
	if wlo < lo {
		wlo = lo
	}
	if whi > hi {
		whi = hi
	}
	for ch := wlo; ch <= whi; ch++ {
		gross += counts[ch]
		bkg += params[3]*float64(ch) + params[4]
	}
	if bkg < 0 {
		bkg = 0
	}
	unc := math.Sqrt(gross + bkg)

	resolution := 0.0
	if centroidKeV > 0 {
		resolution = fwhmKeV / centroidKeV * 100
	}

	return Peak{
		Channel:         candidate,
		EnergyKeV:       centroidKeV,
		Counts:          counts[candidate],
		NetArea:         netArea,
		AreaUncertainty: unc,
		FWHMKeV:         fwhmKeV,
		ResolutionPct:   resolution,
		FitSuccess:      true,
	}, nil
}

// runLM drives the Levenberg-Marquardt solver with a numeric Jacobian.
// The lm package panics on singular matrices, so recover and report.
func runLM(residuals func(dst, x []float64), init []float64, size, maxIter int) (params []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			params, err = nil, fmt.Errorf("lm panic: %v", r)
		}
	}()

	jac := lm.NumJac{Func: residuals}
	problem := lm.LMProblem{
		Dim:        len(init),
		Size:       size,
		Func:       residuals,
		Jac:        jac.Jac,
		InitParams: init,
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}
	res, err := lm.LM(problem, &lm.Settings{Iterations: maxIter, ObjectiveTol: 1e-16})
	if err != nil {
		return nil, err
	}
	return res.X, nil
}

// runNelderMead minimizes the summed squared residuals when LM fails,
// mirroring the multi-method fallback used for stiff fits.
func runNelderMead(residuals func(dst, x []float64), init []float64, size int) ([]float64, error) {
	dst := make([]float64, size)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			residuals(dst, x)
			sum := 0.0
			for _, r := range dst {
				sum += r * r
			}
			return sum
		},
	}
	res, err := optimize.Minimize(problem, init, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, err
	}
	return res.X, nil
}

// FitPeaks fits every candidate channel, keeping unfittable candidates as
// raw peaks. Per-peak non-convergence is local: it never aborts the batch.
func FitPeaks(energies, counts []float64, candidates []int, opts FitOptions) []Peak {
	peaks := make([]Peak, 0, len(candidates))
	for _, c := range candidates {
		p, err := FitPeak(energies, counts, c, opts)
		if err != nil {
			log.Printf("skipping unfittable candidate %d: %v", c, err)
			continue
		}
		peaks = append(peaks, p)
	}
	return peaks
}
