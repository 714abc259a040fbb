package gammacore

import "fmt"

// BackgroundMode selects what the SNIP estimate is used for. AnalysisMode
// rewrites the working counts that feed peak finding; VisualMode only
// attaches the background to the result for display, leaving the pipeline
// input untouched.
type BackgroundMode int

const (
	AnalysisMode BackgroundMode = iota
	VisualMode
)

// AnalysisOptions bundles the tunables of one full pipeline run.
type AnalysisOptions struct {
	SNIPIterations     int
	HighCountThreshold float64
	BackgroundMode     BackgroundMode
	PeakSearch         PeakSearchOptions
	Fit                FitOptions
	Match              MatchOptions
	MinChainConfidence float64
}

// DefaultAnalysisOptions returns the tuned defaults.
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		SNIPIterations:     DefaultSNIPIterations,
		HighCountThreshold: HighCountThreshold,
		BackgroundMode:     AnalysisMode,
		PeakSearch:         DefaultPeakSearchOptions(),
		Fit:                DefaultFitOptions(),
		Match:              DefaultMatchOptions(),
		MinChainConfidence: 30,
	}
}

// Validate rejects out-of-range tunables before any processing happens.
func (o AnalysisOptions) Validate() error {
	if o.Match.ToleranceKeV < 0 || o.Match.HighCountToleranceKeV < 0 {
		return fmt.Errorf("%w: negative matching tolerance", ErrInvalidOptions)
	}
	if o.Match.MinConfidence < 0 || o.Match.MinConfidence > 100 {
		return fmt.Errorf("%w: min confidence %.1f outside [0,100]", ErrInvalidOptions, o.Match.MinConfidence)
	}
	if o.MinChainConfidence < 0 || o.MinChainConfidence > 100 {
		return fmt.Errorf("%w: min chain confidence %.1f outside [0,100]", ErrInvalidOptions, o.MinChainConfidence)
	}
	if o.SNIPIterations < 0 {
		return fmt.Errorf("%w: negative SNIP iterations", ErrInvalidOptions)
	}
	return nil
}

// AnalysisResult is the full pipeline output for one spectrum snapshot.
type AnalysisResult struct {
	Peaks             []Peak                 `json:"peaks"`
	Isotopes          []IsotopeMatch         `json:"isotopes"`
	Chains            []DecayChainHypothesis `json:"chains"`
	Background        []float64              `json:"background,omitempty"`
	BackgroundApplied bool                   `json:"background_applied"`
	MaxCount          float64                `json:"max_count"`
}

// Analyzer runs the full pipeline with injected reference data. It holds no
// mutable state: Analyze is safe to call concurrently and re-running it on
// the same spectrum yields identical results.
type Analyzer struct {
	Library Library
	Chains  []ChainDefinition
	Options AnalysisOptions
}

// NewAnalyzer builds an analyzer with the built-in library and chain
// definitions where the arguments are zero-valued.
func NewAnalyzer(lib Library, chains []ChainDefinition, opts AnalysisOptions) *Analyzer {
	if len(lib.Isotopes()) == 0 {
		lib = DefaultLibrary()
	}
	if len(chains) == 0 {
		chains = DefaultChains()
	}
	if len(opts.PeakSearch.Scales) == 0 {
		opts = DefaultAnalysisOptions()
	}
	return &Analyzer{Library: lib, Chains: chains, Options: opts}
}

// Analyze runs validation, conditional background removal, peak finding,
// fitting, isotope matching, and chain inference on one spectrum snapshot.
// Per-peak fit failures degrade that peak to raw counts; only input errors
// abort the run.
func (a *Analyzer) Analyze(spec *Spectrum) (*AnalysisResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := a.Options.Validate(); err != nil {
		return nil, err
	}

	result := &AnalysisResult{MaxCount: spec.MaxCount()}

	// High-count policy: low-statistics acquisitions skip background
	// subtraction so weak real peaks are not clipped away with the noise.
	working := spec.Counts
	search := a.Options.PeakSearch
	search.ApplySNIP = false
	if result.MaxCount > a.Options.HighCountThreshold {
		background := EstimateBackground(spec.Counts, a.Options.SNIPIterations)
		result.Background = background
		result.BackgroundApplied = true
		if a.Options.BackgroundMode == AnalysisMode {
			working = SubtractBackground(spec.Counts, background)
		}
	}

	candidates := FindPeaks(working, search)

	var energies []float64
	if !spec.Cal.IsZero() {
		energies = spec.Energies()
	}
	result.Peaks = FitPeaks(energies, working, candidates, a.Options.Fit)

	match := a.Options.Match
	match.SpectrumMaxCount = result.MaxCount
	result.Isotopes = MatchIsotopes(result.Peaks, a.Library, match)

	result.Chains = InferChains(result.Isotopes, a.Chains, a.Options.MinChainConfidence)
	return result, nil
}
