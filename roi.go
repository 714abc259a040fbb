package gammacore

import (
	"fmt"
	"math"
	"sort"
)

// BqPerMicroCi converts activity units: 1 µCi = 3.7e4 Bq.
const BqPerMicroCi = 3.7e4

// Currie-style detection statistics at 95% confidence.
const (
	// criticalLevelFactor: net counts below 2.33*sqrt(B) cannot be
	// distinguished from background fluctuation.
	criticalLevelFactor = 2.33
	// mdaOffset and mdaFactor form the detection limit 2.71 + 4.65*sqrt(B).
	mdaOffset = 2.71
	mdaFactor = 4.65
)

// SourceType is a caller-supplied hint about the measurement context. It
// does not change the arithmetic, only the ROI window aggressiveness for
// low-energy isotopes in cluttered spectra.
type SourceType string

const (
	SourceUnknown    SourceType = "unknown"
	SourceNatural    SourceType = "naturally-occurring"
	SourceMedical    SourceType = "medical"
	SourceIndustrial SourceType = "industrial"
)

// EfficiencyPoint is one sample of a detector's energy-dependent
// full-energy-peak efficiency curve.
type EfficiencyPoint struct {
	EnergyKeV  float64 `json:"energy_kev"`
	Efficiency float64 `json:"efficiency"` // absolute fraction, 0..1
}

// DetectorProfile is injected per-detector calibration data.
type DetectorProfile struct {
	Name               string            `json:"name"`
	ResolutionPctAt662 float64           `json:"resolution_pct_at_662"`
	Efficiency         []EfficiencyPoint `json:"efficiency"`
}

// EfficiencyAt interpolates the efficiency curve log-log, clamping outside
// the calibrated range.
func (d DetectorProfile) EfficiencyAt(keV float64) (float64, error) {
	if len(d.Efficiency) == 0 {
		return 0, ErrNoEfficiencyCurve
	}
	pts := d.Efficiency
	if !sort.SliceIsSorted(pts, func(i, j int) bool { return pts[i].EnergyKeV < pts[j].EnergyKeV }) {
		pts = append([]EfficiencyPoint(nil), pts...)
		sort.Slice(pts, func(i, j int) bool { return pts[i].EnergyKeV < pts[j].EnergyKeV })
	}
	if keV <= pts[0].EnergyKeV {
		return pts[0].Efficiency, nil
	}
	last := pts[len(pts)-1]
	if keV >= last.EnergyKeV {
		return last.Efficiency, nil
	}
	for i := 1; i < len(pts); i++ {
		if keV > pts[i].EnergyKeV {
			continue
		}
		a, b := pts[i-1], pts[i]
		t := (math.Log(keV) - math.Log(a.EnergyKeV)) / (math.Log(b.EnergyKeV) - math.Log(a.EnergyKeV))
		return math.Exp(math.Log(a.Efficiency) + t*(math.Log(b.Efficiency)-math.Log(a.Efficiency))), nil
	}
	return last.Efficiency, nil
}

// FWHMAt models the resolution as FWHM(E) = R662/100 * sqrt(662*E), the
// usual sqrt-energy scaling for scintillators.
func (d DetectorProfile) FWHMAt(keV float64) float64 {
	r := d.ResolutionPctAt662
	if r <= 0 {
		r = 8
	}
	return r / 100 * math.Sqrt(662*keV)
}

// DefaultProfiles returns efficiency calibrations for common scintillator
// models keyed by profile name.
func DefaultProfiles() map[string]DetectorProfile {
	return map[string]DetectorProfile{
		"nai-2x2": {
			Name:               "nai-2x2",
			ResolutionPctAt662: 7.5,
			Efficiency: []EfficiencyPoint{
				{EnergyKeV: 60, Efficiency: 0.52},
				{EnergyKeV: 120, Efficiency: 0.40},
				{EnergyKeV: 250, Efficiency: 0.21},
				{EnergyKeV: 400, Efficiency: 0.125},
				{EnergyKeV: 662, Efficiency: 0.070},
				{EnergyKeV: 1000, Efficiency: 0.044},
				{EnergyKeV: 1500, Efficiency: 0.029},
				{EnergyKeV: 2700, Efficiency: 0.017},
			},
		},
		"csi-cube": {
			Name:               "csi-cube",
			ResolutionPctAt662: 9.0,
			Efficiency: []EfficiencyPoint{
				{EnergyKeV: 60, Efficiency: 0.38},
				{EnergyKeV: 120, Efficiency: 0.27},
				{EnergyKeV: 250, Efficiency: 0.13},
				{EnergyKeV: 400, Efficiency: 0.075},
				{EnergyKeV: 662, Efficiency: 0.041},
				{EnergyKeV: 1000, Efficiency: 0.026},
				{EnergyKeV: 1500, Efficiency: 0.017},
				{EnergyKeV: 2700, Efficiency: 0.010},
			},
		},
	}
}

// ROIResult is the activity report for one isotope's region of interest.
// When IsMDA is set, ActivityBq/ActivityMicroCi are zero and MDABq carries
// the upper bound instead; that is a reporting mode, not a failure.
type ROIResult struct {
	Isotope          string  `json:"isotope"`
	WindowLowKeV     float64 `json:"window_low_kev"`
	WindowHighKeV    float64 `json:"window_high_kev"`
	GrossCounts      float64 `json:"gross_counts"`
	BackgroundCounts float64 `json:"background_counts"`
	NetCounts        float64 `json:"net_counts"`
	Uncertainty      float64 `json:"uncertainty"` // 1σ on net counts
	EfficiencyPct    float64 `json:"efficiency_pct"`
	BranchingRatio   float64 `json:"branching_ratio"`
	ActivityBq       float64 `json:"activity_bq"`
	ActivityMicroCi  float64 `json:"activity_micro_ci"`
	IsMDA            bool    `json:"is_mda"`
	MDABq            float64 `json:"mda_bq"`
}

// EstimateActivity integrates net counts in the isotope's principal-line
// window and converts them to activity through the detector efficiency and
// branching ratio. Background under the window is interpolated linearly
// from flanking bands. When the net signal falls below the Currie critical
// level the result downgrades to an MDA upper bound.
//
// The estimator consumes the calibrated spectrum and library directly; it
// does not depend on the peak pipeline.
func EstimateActivity(spec *Spectrum, isotope string, lib Library, det DetectorProfile, acqTimeS float64, hint SourceType) (ROIResult, error) {
	if err := spec.Validate(); err != nil {
		return ROIResult{}, err
	}
	if acqTimeS <= 0 {
		return ROIResult{}, fmt.Errorf("%w: acquisition time %.3f s", ErrInvalidOptions, acqTimeS)
	}
	line, ok := lib.PrincipalLine(isotope)
	if !ok {
		return ROIResult{}, fmt.Errorf("%w: %q", ErrUnknownIsotope, isotope)
	}

	halfWidth := 1.5 * det.FWHMAt(line.EnergyKeV)
	if hint == SourceMedical || hint == SourceIndustrial {
		// Point sources in clean spectra tolerate a tighter window.
		halfWidth = 1.25 * det.FWHMAt(line.EnergyKeV)
	}
	winLo, winHi := line.EnergyKeV-halfWidth, line.EnergyKeV+halfWidth

	gross, bkg, err := windowNet(spec, winLo, winHi)
	if err != nil {
		return ROIResult{}, err
	}
	net := gross - bkg
	unc := math.Sqrt(gross + bkg)

	eff, err := det.EfficiencyAt(line.EnergyKeV)
	if err != nil {
		return ROIResult{}, err
	}
	denom := eff * line.Intensity * acqTimeS

	res := ROIResult{
		Isotope:          isotope,
		WindowLowKeV:     winLo,
		WindowHighKeV:    winHi,
		GrossCounts:      gross,
		BackgroundCounts: bkg,
		NetCounts:        net,
		Uncertainty:      unc,
		EfficiencyPct:    eff * 100,
		BranchingRatio:   line.Intensity,
	}
	if denom <= 0 {
		return ROIResult{}, fmt.Errorf("%w: zero efficiency or branching ratio at %.1f keV", ErrNoEfficiencyCurve, line.EnergyKeV)
	}

	if net < criticalLevelFactor*math.Sqrt(bkg) {
		res.IsMDA = true
		res.MDABq = (mdaOffset + mdaFactor*math.Sqrt(bkg)) / denom
		return res, nil
	}

	res.ActivityBq = net / denom
	res.ActivityMicroCi = res.ActivityBq / BqPerMicroCi
	return res, nil
}

// windowNet sums gross counts in the [loKeV,hiKeV] window and estimates the
// background underneath from the mean of two flanking bands, each half the
// window width.
func windowNet(spec *Spectrum, loKeV, hiKeV float64) (gross, bkg float64, err error) {
	lo, hi := spec.ChannelOf(loKeV), spec.ChannelOf(hiKeV)
	if lo > hi {
		lo, hi = hi, lo
	}
	width := hi - lo + 1
	for ch := lo; ch <= hi; ch++ {
		gross += spec.Counts[ch]
	}

	flank := width / 2
	if flank < 2 {
		flank = 2
	}
	leftMean, nLeft := bandMean(spec.Counts, lo-flank, lo-1)
	rightMean, nRight := bandMean(spec.Counts, hi+1, hi+flank)
	switch {
	case nLeft > 0 && nRight > 0:
		bkg = (leftMean + rightMean) / 2 * float64(width)
	case nLeft > 0:
		bkg = leftMean * float64(width)
	case nRight > 0:
		bkg = rightMean * float64(width)
	default:
		return 0, 0, fmt.Errorf("%w: ROI window covers the whole spectrum", ErrInvalidOptions)
	}
	return gross, bkg, nil
}

func bandMean(counts []float64, lo, hi int) (mean float64, n int) {
	if lo < 0 {
		lo = 0
	}
	if hi >= len(counts) {
		hi = len(counts) - 1
	}
	sum := 0.0
	for ch := lo; ch <= hi; ch++ {
		sum += counts[ch]
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// Uranium enrichment classification from the U-235 186 keV to Th-234 93 keV
// net-count ratio. Thresholds are boundary-inclusive on the lower bucket:
// a ratio exactly at NaturalRatioMax classifies as natural.
const (
	uraniumLineKeV   = 185.7
	thoriumLineKeV   = 92.6
	DepletedRatioMax = 0.3
	NaturalRatioMax  = 1.0
)

// EnrichmentCategory is the uranium classification bucket.
type EnrichmentCategory string

const (
	DepletedUranium EnrichmentCategory = "Depleted Uranium"
	NaturalUranium  EnrichmentCategory = "Natural Uranium"
	EnrichedUranium EnrichmentCategory = "Enriched Uranium"
)

// EnrichmentResult reports the characteristic-peak ratio test.
type EnrichmentResult struct {
	Ratio     float64            `json:"ratio"`
	Counts186 float64            `json:"counts_186"`
	Counts93  float64            `json:"counts_93"`
	Category  EnrichmentCategory `json:"category"`
}

// ClassifyEnrichment computes the 186/93 keV net-count ratio and buckets it
// against the fixed thresholds. The 186 keV line tracks U-235, the 93 keV
// Th-234 doublet tracks U-238; a high ratio means enrichment.
func ClassifyEnrichment(spec *Spectrum, det DetectorProfile) (EnrichmentResult, error) {
	if err := spec.Validate(); err != nil {
		return EnrichmentResult{}, err
	}
	half186 := 1.5 * det.FWHMAt(uraniumLineKeV)
	half93 := 1.5 * det.FWHMAt(thoriumLineKeV)

	gross186, bkg186, err := windowNet(spec, uraniumLineKeV-half186, uraniumLineKeV+half186)
	if err != nil {
		return EnrichmentResult{}, err
	}
	gross93, bkg93, err := windowNet(spec, thoriumLineKeV-half93, thoriumLineKeV+half93)
	if err != nil {
		return EnrichmentResult{}, err
	}
	net186 := math.Max(gross186-bkg186, 0)
	net93 := math.Max(gross93-bkg93, 0)
	if net93 <= 0 {
		return EnrichmentResult{}, fmt.Errorf("%w: no Th-234 daughter signal at 93 keV", ErrInvalidOptions)
	}

	res := EnrichmentResult{
		Ratio:     net186 / net93,
		Counts186: net186,
		Counts93:  net93,
	}
	switch {
	case res.Ratio <= DepletedRatioMax:
		res.Category = DepletedUranium
	case res.Ratio <= NaturalRatioMax:
		res.Category = NaturalUranium
	default:
		res.Category = EnrichedUranium
	}
	return res, nil
}
