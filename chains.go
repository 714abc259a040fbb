package gammacore

import "sort"

// ConfidenceLevel buckets a chain hypothesis for reporting.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "LOW"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceHigh   ConfidenceLevel = "HIGH"
)

// ChainMember is one step of a decay series.
type ChainMember struct {
	Isotope         string  `json:"isotope"`
	HalfLife        string  `json:"half_life"`
	BranchingToNext float64 `json:"branching_to_next"`
}

// ChainLevels holds the member-count thresholds for the discrete confidence
// levels. The level is a deterministic function of how many key indicators
// were detected at adequate individual confidence.
type ChainLevels struct {
	HighMin                int     `json:"high_min"`
	MediumMin              int     `json:"medium_min"`
	MinIndicatorConfidence float64 `json:"min_indicator_confidence"`
}

// ChainDefinition is a data-driven decay series: an ordered member list
// with half-lives and branching ratios, the secular-equilibrium indicator
// subset that carries the inference weight, threshold table, and
// human-readable source notes. Definitions are injected configuration, not
// engine logic.
type ChainDefinition struct {
	Name          string        `json:"name"`
	Members       []ChainMember `json:"members"`
	KeyIndicators []string      `json:"key_indicators"`
	Levels        ChainLevels   `json:"levels"`
	Applications  []string      `json:"applications"`
	SourceNote    string        `json:"source_note"`
}

// DecayChainHypothesis is one inferred chain for the current match set. It
// has no temporal state: it is recomputed from scratch on every analysis.
type DecayChainHypothesis struct {
	Chain            string            `json:"chain"`
	Members          []ChainMember     `json:"members"`
	Detected         map[string][]Peak `json:"detected"`
	DetectedKeyCount int               `json:"detected_key_count"`
	Confidence       float64           `json:"confidence"`
	Level            ConfidenceLevel   `json:"level"`
	Applications     []string          `json:"applications"`
	SourceNote       string            `json:"source_note"`
}

// InferChains groups isotope matches into decay-series hypotheses. Chain
// confidence derives from the number and strength of detected key
// indicators (secular-equilibrium members weigh fully, other detected
// members half); hypotheses below minConfidence are dropped. Raising
// minConfidence never adds results.
func InferChains(matches []IsotopeMatch, defs []ChainDefinition, minConfidence float64) []DecayChainHypothesis {
	if len(matches) == 0 {
		return nil
	}
	byIso := make(map[string]IsotopeMatch, len(matches))
	for _, m := range matches {
		byIso[m.Isotope] = m
	}

	var out []DecayChainHypothesis
	for _, def := range defs {
		key := make(map[string]bool, len(def.KeyIndicators))
		for _, k := range def.KeyIndicators {
			key[k] = true
		}

		detected := make(map[string][]Peak)
		keyCount := 0
		keySum, otherSum := 0.0, 0.0
		for _, member := range def.Members {
			m, ok := byIso[member.Isotope]
			if !ok {
				continue
			}
			detected[member.Isotope] = m.Peaks
			if key[member.Isotope] {
				if m.Confidence >= def.Levels.MinIndicatorConfidence {
					keyCount++
				}
				keySum += m.Confidence
			} else {
				otherSum += m.Confidence
			}
		}
		if len(detected) == 0 {
			continue
		}

		// Normalize against a full-strength detection of every key
		// indicator; non-key members can only push the score, not carry it.
		denom := 100 * float64(len(def.KeyIndicators))
		conf := 0.0
		if denom > 0 {
			conf = (keySum + 0.5*otherSum) / denom * 100
		}
		if conf > 100 {
			conf = 100
		}
		if conf < minConfidence {
			continue
		}

		level := ConfidenceLow
		switch {
		case keyCount >= def.Levels.HighMin:
			level = ConfidenceHigh
		case keyCount >= def.Levels.MediumMin:
			level = ConfidenceMedium
		}

		out = append(out, DecayChainHypothesis{
			Chain:            def.Name,
			Members:          def.Members,
			Detected:         detected,
			DetectedKeyCount: keyCount,
			Confidence:       conf,
			Level:            level,
			Applications:     def.Applications,
			SourceNote:       def.SourceNote,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Chain < out[j].Chain
	})
	return out
}

// DefaultChains returns the built-in natural decay series definitions.
func DefaultChains() []ChainDefinition {
	return []ChainDefinition{
		{
			Name: "U-238",
			Members: []ChainMember{
				{Isotope: "U-238", HalfLife: "4.468e9 y", BranchingToNext: 1},
				{Isotope: "Th-234", HalfLife: "24.10 d", BranchingToNext: 1},
				{Isotope: "Pa-234m", HalfLife: "1.16 min", BranchingToNext: 0.9984},
				{Isotope: "U-234", HalfLife: "2.455e5 y", BranchingToNext: 1},
				{Isotope: "Th-230", HalfLife: "7.54e4 y", BranchingToNext: 1},
				{Isotope: "Ra-226", HalfLife: "1600 y", BranchingToNext: 1},
				{Isotope: "Rn-222", HalfLife: "3.82 d", BranchingToNext: 1},
				{Isotope: "Pb-214", HalfLife: "26.8 min", BranchingToNext: 1},
				{Isotope: "Bi-214", HalfLife: "19.9 min", BranchingToNext: 0.9998},
				{Isotope: "Pb-210", HalfLife: "22.2 y", BranchingToNext: 1},
				{Isotope: "Bi-210", HalfLife: "5.01 d", BranchingToNext: 1},
				{Isotope: "Po-210", HalfLife: "138.4 d", BranchingToNext: 1},
				{Isotope: "Pb-206", HalfLife: "stable", BranchingToNext: 0},
			},
			KeyIndicators: []string{"Th-234", "Pa-234m", "Ra-226", "Pb-214", "Bi-214", "Pb-210"},
			Levels:        ChainLevels{HighMin: 4, MediumMin: 3, MinIndicatorConfidence: 40},
			Applications:  []string{"uranium ore and mill tailings", "natural background", "ceramic glazes"},
			SourceNote:    "natural uranium series; equilibrium daughters indicate aged material",
		},
		{
			Name: "Th-232",
			Members: []ChainMember{
				{Isotope: "Th-232", HalfLife: "1.405e10 y", BranchingToNext: 1},
				{Isotope: "Ra-228", HalfLife: "5.75 y", BranchingToNext: 1},
				{Isotope: "Ac-228", HalfLife: "6.15 h", BranchingToNext: 1},
				{Isotope: "Th-228", HalfLife: "1.912 y", BranchingToNext: 1},
				{Isotope: "Ra-224", HalfLife: "3.66 d", BranchingToNext: 1},
				{Isotope: "Rn-220", HalfLife: "55.6 s", BranchingToNext: 1},
				{Isotope: "Po-216", HalfLife: "0.145 s", BranchingToNext: 1},
				{Isotope: "Pb-212", HalfLife: "10.64 h", BranchingToNext: 1},
				{Isotope: "Bi-212", HalfLife: "60.55 min", BranchingToNext: 0.3594},
				{Isotope: "Tl-208", HalfLife: "3.05 min", BranchingToNext: 1},
				{Isotope: "Pb-208", HalfLife: "stable", BranchingToNext: 0},
			},
			KeyIndicators: []string{"Ac-228", "Pb-212", "Bi-212", "Tl-208"},
			Levels:        ChainLevels{HighMin: 4, MediumMin: 3, MinIndicatorConfidence: 40},
			Applications:  []string{"thoriated welding rods", "gas lantern mantles", "monazite sand"},
			SourceNote:    "thorium series; Tl-208 2614 keV line is the telltale",
		},
		{
			Name: "U-235",
			Members: []ChainMember{
				{Isotope: "U-235", HalfLife: "7.04e8 y", BranchingToNext: 1},
				{Isotope: "Th-231", HalfLife: "25.52 h", BranchingToNext: 1},
				{Isotope: "Pa-231", HalfLife: "3.276e4 y", BranchingToNext: 1},
				{Isotope: "Ac-227", HalfLife: "21.77 y", BranchingToNext: 0.9862},
				{Isotope: "Th-227", HalfLife: "18.68 d", BranchingToNext: 1},
				{Isotope: "Ra-223", HalfLife: "11.43 d", BranchingToNext: 1},
				{Isotope: "Rn-219", HalfLife: "3.96 s", BranchingToNext: 1},
				{Isotope: "Pb-211", HalfLife: "36.1 min", BranchingToNext: 1},
				{Isotope: "Bi-211", HalfLife: "2.14 min", BranchingToNext: 1},
				{Isotope: "Tl-207", HalfLife: "4.77 min", BranchingToNext: 1},
				{Isotope: "Pb-207", HalfLife: "stable", BranchingToNext: 0},
			},
			KeyIndicators: []string{"U-235", "Th-227", "Ra-223"},
			Levels:        ChainLevels{HighMin: 3, MediumMin: 2, MinIndicatorConfidence: 40},
			Applications:  []string{"enriched uranium fuel", "research sources"},
			SourceNote:    "actinium series; 186 keV line overlaps Ra-226, check the 143 keV companion",
		},
	}
}
