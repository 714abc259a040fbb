package gammacore

import (
	"math"
	"sort"
)

// Five-factor confidence weights. The split (25/25/20/15/15) is an
// interoperability contract with the reporting layer; the aggregate of all
// capped factors is 100.
const (
	weightEnergy    = 25.0
	weightIntensity = 25.0
	weightFit       = 20.0
	weightSNR       = 15.0
	weightMultiLine = 15.0
)

// HighCountThreshold is the max-channel-count level above which a spectrum
// is treated as high-statistics: background subtraction activates and the
// matching tolerance widens (apparent centroids broaden and shift in
// scintillators at 8-15% intrinsic resolution).
const HighCountThreshold = 10000.0

// MatchOptions tunes isotope matching.
type MatchOptions struct {
	// ToleranceKeV is the base line-to-peak matching tolerance, typically
	// 15-30 keV for scintillator detectors.
	ToleranceKeV float64
	// HighCountToleranceKeV replaces ToleranceKeV when SpectrumMaxCount
	// exceeds HighCountThreshold.
	HighCountToleranceKeV float64
	// SpectrumMaxCount is the maximum single-channel count of the analyzed
	// spectrum; the caller supplies it for the dynamic-tolerance rule.
	SpectrumMaxCount float64
	// MinConfidence drops isotopes scoring below it (0-100).
	MinConfidence float64
	// MaxResults caps the returned list.
	MaxResults int
}

// DefaultMatchOptions returns the tuned defaults.
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{
		ToleranceKeV:          20,
		HighCountToleranceKeV: 60,
		MinConfidence:         40,
		MaxResults:            5,
	}
}

// EffectiveTolerance applies the dynamic-tolerance rule.
func (o MatchOptions) EffectiveTolerance() float64 {
	if o.SpectrumMaxCount > HighCountThreshold {
		return o.HighCountToleranceKeV
	}
	return o.ToleranceKeV
}

// ConfidenceBreakdown carries the per-factor contributions, each capped at
// its weight.
type ConfidenceBreakdown struct {
	Energy    float64 `json:"energy"`     // 0..25
	Intensity float64 `json:"intensity"`  // 0..25
	Fit       float64 `json:"fit"`        // 0..20
	SNR       float64 `json:"snr"`        // 0..15
	MultiLine float64 `json:"multi_line"` // 0..15
}

// Total sums the factor contributions.
func (b ConfidenceBreakdown) Total() float64 {
	return b.Energy + b.Intensity + b.Fit + b.SNR + b.MultiLine
}

// IsotopeMatch is the matcher's per-isotope verdict for one analysis run.
type IsotopeMatch struct {
	Isotope      string              `json:"isotope"`
	Confidence   float64             `json:"confidence"`
	MatchedLines int                 `json:"matched_lines"`
	TotalLines   int                 `json:"total_lines"`
	Breakdown    ConfidenceBreakdown `json:"breakdown"`
	Peaks        []Peak              `json:"peaks"`
}

// lineMatch pairs a reference line with the detected peak it claimed.
type lineMatch struct {
	line IsotopeLine
	peak Peak
	dE   float64
}

// MatchIsotopes scores every library isotope against the detected peaks.
// Each reference line claims the nearest peak within the effective
// tolerance; when two lines of the same isotope claim one peak, the closer
// energy wins. A peak may serve several isotopes. Results are sorted by
// descending confidence (name ascending on ties), filtered by
// MinConfidence, and capped at MaxResults. The function is pure: a fixed
// peak list and library always produce the same ordered result.
func MatchIsotopes(peaks []Peak, lib Library, opts MatchOptions) []IsotopeMatch {
	if len(peaks) == 0 {
		return nil
	}
	if opts.ToleranceKeV <= 0 {
		opts = DefaultMatchOptions()
	}
	tol := opts.EffectiveTolerance()

	var out []IsotopeMatch
	for _, iso := range lib.Isotopes() {
		lines := lib.Lines(iso)
		matches := matchLines(peaks, lines, tol)
		if len(matches) == 0 {
			continue
		}

		bd := ConfidenceBreakdown{
			Energy:    energyFactor(matches, tol),
			Intensity: intensityFactor(matches, lines),
			Fit:       fitQualityFactor(matches),
			SNR:       snrFactor(matches),
			MultiLine: multiLineFactor(len(matches)),
		}

		m := IsotopeMatch{
			Isotope:      iso,
			Confidence:   bd.Total(),
			MatchedLines: len(matches),
			TotalLines:   len(lines),
			Breakdown:    bd,
		}
		for _, lm := range matches {
			m.Peaks = append(m.Peaks, lm.peak)
		}
		if m.Confidence >= opts.MinConfidence {
			out = append(out, m)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Isotope < out[j].Isotope
	})
	if opts.MaxResults > 0 && len(out) > opts.MaxResults {
		out = out[:opts.MaxResults]
	}
	return out
}

// matchLines assigns each reference line the nearest peak within tol.
// When two lines claim the same peak, the smaller energy distance keeps it.
func matchLines(peaks []Peak, lines []IsotopeLine, tol float64) []lineMatch {
	claimed := make(map[int]lineMatch) // peak index -> winning line
	for _, line := range lines {
		best, bestDE := -1, math.Inf(1)
		for i, p := range peaks {
			dE := math.Abs(p.EnergyKeV - line.EnergyKeV)
			if dE <= tol && dE < bestDE {
				best, bestDE = i, dE
			}
		}
		if best < 0 {
			continue
		}
		if prev, ok := claimed[best]; !ok || bestDE < prev.dE {
			claimed[best] = lineMatch{line: line, peak: peaks[best], dE: bestDE}
		}
	}
	out := make([]lineMatch, 0, len(claimed))
	for _, lm := range claimed {
		out = append(out, lm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].line.EnergyKeV < out[j].line.EnergyKeV })
	return out
}

// energyFactor rewards centroid agreement: the mean of (1 - dE/tol) over
// the matched lines, scaled to the 25-point weight.
func energyFactor(matches []lineMatch, tol float64) float64 {
	if len(matches) == 0 || tol <= 0 {
		return 0
	}
	sum := 0.0
	for _, m := range matches {
		sum += 1 - m.dE/tol
	}
	return weightEnergy * sum / float64(len(matches))
}

// intensityFactor rewards coverage of the isotope's emission intensity:
// the intensity-weighted fraction of reference lines actually seen.
func intensityFactor(matches []lineMatch, lines []IsotopeLine) float64 {
	total := 0.0
	for _, l := range lines {
		total += l.Intensity
	}
	if total <= 0 {
		return 0
	}
	matched := 0.0
	for _, m := range matches {
		matched += m.line.Intensity
	}
	return weightIntensity * matched / total
}

// fitQualityFactor scores width/shape consistency of the fitted peaks.
// Resolution inside the plausible scintillator band (2-20%) scores full;
// outside it degrades linearly. Peaks whose fit failed are excluded from
// this factor entirely; if no peak fitted, the factor is zero.
func fitQualityFactor(matches []lineMatch) float64 {
	score, n := 0.0, 0
	for _, m := range matches {
		if !m.peak.FitSuccess {
			continue
		}
		n++
		res := m.peak.ResolutionPct
		switch {
		case res >= 2 && res <= 20:
			score += 1
		case res > 0 && res < 2:
			score += res / 2
		case res > 20 && res < 40:
			score += (40 - res) / 20
		}
	}
	if n == 0 {
		return 0
	}
	return weightFit * score / float64(n)
}

// snrFactor maps the mean peak SNR through a saturating ramp: full weight
// at SNR >= 10, proportional below.
func snrFactor(matches []lineMatch) float64 {
	if len(matches) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range matches {
		snr := m.peak.SNR() / 10
		if snr > 1 {
			snr = 1
		}
		sum += snr
	}
	return weightSNR * sum / float64(len(matches))
}

// multiLineFactor is the internal-consistency bonus for isotopes confirmed
// by at least two independent lines.
func multiLineFactor(matched int) float64 {
	if matched >= 2 {
		return weightMultiLine
	}
	return 0
}
