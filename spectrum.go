package gammacore

import (
	"fmt"
	"math"
)

// Calibration maps channel indices to gamma energies in keV:
//
//	E(ch) = A0 + A1*ch + A2*ch^2
//
// A2 is zero for linear calibrations. Coefficients are fixed for the
// lifetime of an analysis run.
type Calibration struct {
	A0 float64 `json:"a0"`
	A1 float64 `json:"a1"`
	A2 float64 `json:"a2"`
}

// EnergyAt returns the energy in keV at the given channel.
func (c Calibration) EnergyAt(ch int) float64 {
	x := float64(ch)
	return c.A0 + c.A1*x + c.A2*x*x
}

// IsZero reports whether no calibration has been applied.
func (c Calibration) IsZero() bool {
	return c.A0 == 0 && c.A1 == 0 && c.A2 == 0
}

// Spectrum is a channel-indexed count histogram with an energy calibration
// and acquisition timing metadata. The channel count is fixed at acquisition
// time (1024 and 4096 are typical for scintillator MCAs).
type Spectrum struct {
	Counts   []float64
	Cal      Calibration
	LiveTime float64 // seconds the detector was sensitive
	RealTime float64 // wall-clock acquisition seconds
}

// NewSpectrum builds a validated Spectrum. The counts slice is used as-is,
// not copied; callers that reuse buffers must copy first.
func NewSpectrum(counts []float64, cal Calibration, liveTime, realTime float64) (*Spectrum, error) {
	s := &Spectrum{Counts: counts, Cal: cal, LiveTime: liveTime, RealTime: realTime}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the input-error taxonomy: empty or negative counts,
// a calibration that does not increase over the channel range, and
// non-positive live time.
func (s *Spectrum) Validate() error {
	if len(s.Counts) == 0 {
		return ErrEmptySpectrum
	}
	for i, v := range s.Counts {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: channel %d = %v", ErrNegativeCounts, i, v)
		}
	}
	if s.LiveTime <= 0 {
		return ErrBadLiveTime
	}
	if !s.Cal.IsZero() {
		// Energy must strictly increase across the channel range. For the
		// quadratic term it is enough to check the derivative at both ends.
		n := float64(len(s.Counts) - 1)
		if s.Cal.A1+2*s.Cal.A2*0 <= 0 || s.Cal.A1+2*s.Cal.A2*n <= 0 {
			return ErrBadCalibration
		}
	}
	return nil
}

// Channels returns the number of channels.
func (s *Spectrum) Channels() int { return len(s.Counts) }

// EnergyAt returns the calibrated energy in keV at channel ch.
func (s *Spectrum) EnergyAt(ch int) float64 { return s.Cal.EnergyAt(ch) }

// Energies returns the calibrated energy of every channel.
func (s *Spectrum) Energies() []float64 {
	out := make([]float64, len(s.Counts))
	for i := range out {
		out[i] = s.Cal.EnergyAt(i)
	}
	return out
}

// MaxCount returns the largest single-channel count. It drives the
// high-count policies (background subtraction, tolerance widening).
func (s *Spectrum) MaxCount() float64 {
	max := 0.0
	for _, v := range s.Counts {
		if v > max {
			max = v
		}
	}
	return max
}

// TotalCounts returns the integral of the spectrum.
func (s *Spectrum) TotalCounts() float64 {
	sum := 0.0
	for _, v := range s.Counts {
		sum += v
	}
	return sum
}

// ChannelOf returns the channel whose calibrated energy is nearest to
// energyKeV, clamped to the valid channel range.
func (s *Spectrum) ChannelOf(energyKeV float64) int {
	// The calibration is monotonic, so a binary search would do, but
	// spectra are at most a few thousand channels.
	best, bestDist := 0, math.Inf(1)
	for ch := range s.Counts {
		d := math.Abs(s.Cal.EnergyAt(ch) - energyKeV)
		if d < bestDist {
			best, bestDist = ch, d
		}
	}
	return best
}

// Clone returns a deep copy. Analyses that rewrite counts (analysis-mode
// background subtraction) operate on a clone so the acquisition snapshot
// stays intact.
func (s *Spectrum) Clone() *Spectrum {
	counts := make([]float64, len(s.Counts))
	copy(counts, s.Counts)
	return &Spectrum{Counts: counts, Cal: s.Cal, LiveTime: s.LiveTime, RealTime: s.RealTime}
}
