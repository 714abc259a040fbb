package gammacore

import "sort"

// IsotopeLine is one reference gamma emission: isotope name, line energy in
// keV, and the emission probability per decay (branching ratio, 0..1).
// Library data is immutable for the duration of an analysis run.
type IsotopeLine struct {
	Isotope   string  `json:"isotope"`
	EnergyKeV float64 `json:"energy_kev"`
	Intensity float64 `json:"intensity"`
}

// Library is an injected, read-only set of reference lines grouped by
// isotope. Concurrent analyses may use different libraries (e.g. with
// user-added custom isotopes) without interfering.
type Library struct {
	lines map[string][]IsotopeLine
}

// NewLibrary groups the given lines by isotope. Each isotope's lines are
// sorted by descending intensity, so index 0 is the principal line.
func NewLibrary(lines []IsotopeLine) Library {
	m := make(map[string][]IsotopeLine)
	for _, l := range lines {
		m[l.Isotope] = append(m[l.Isotope], l)
	}
	for iso := range m {
		ls := m[iso]
		sort.Slice(ls, func(i, j int) bool {
			if ls[i].Intensity != ls[j].Intensity {
				return ls[i].Intensity > ls[j].Intensity
			}
			return ls[i].EnergyKeV < ls[j].EnergyKeV
		})
	}
	return Library{lines: m}
}

// Merge returns a new Library with extra lines added; the receiver is not
// modified.
func (l Library) Merge(extra []IsotopeLine) Library {
	var all []IsotopeLine
	for _, iso := range l.Isotopes() {
		all = append(all, l.lines[iso]...)
	}
	all = append(all, extra...)
	return NewLibrary(all)
}

// Isotopes returns the isotope names in deterministic (sorted) order.
func (l Library) Isotopes() []string {
	out := make([]string, 0, len(l.lines))
	for iso := range l.lines {
		out = append(out, iso)
	}
	sort.Strings(out)
	return out
}

// Lines returns the reference lines of one isotope, principal line first.
func (l Library) Lines(isotope string) []IsotopeLine {
	return l.lines[isotope]
}

// PrincipalLine returns the strongest line of an isotope.
func (l Library) PrincipalLine(isotope string) (IsotopeLine, bool) {
	ls := l.lines[isotope]
	if len(ls) == 0 {
		return IsotopeLine{}, false
	}
	return ls[0], true
}

// DefaultLibrary returns the built-in reference table: common calibration
// and medical/industrial sources plus the observable members of the natural
// decay series. Energies in keV, intensities as emission probability per
// decay.
func DefaultLibrary() Library {
	return NewLibrary([]IsotopeLine{
		// Common single- and two-line sources.
		{Isotope: "Cs-137", EnergyKeV: 661.66, Intensity: 0.851},
		{Isotope: "Co-60", EnergyKeV: 1173.23, Intensity: 0.999},
		{Isotope: "Co-60", EnergyKeV: 1332.49, Intensity: 0.9998},
		{Isotope: "K-40", EnergyKeV: 1460.82, Intensity: 0.1066},
		{Isotope: "Na-22", EnergyKeV: 1274.54, Intensity: 0.9994},
		{Isotope: "Na-22", EnergyKeV: 511.0, Intensity: 1.798},
		{Isotope: "Am-241", EnergyKeV: 59.54, Intensity: 0.359},
		{Isotope: "I-131", EnergyKeV: 364.49, Intensity: 0.815},
		{Isotope: "I-131", EnergyKeV: 636.99, Intensity: 0.0717},
		{Isotope: "Ba-133", EnergyKeV: 356.01, Intensity: 0.621},
		{Isotope: "Ba-133", EnergyKeV: 81.0, Intensity: 0.329},
		{Isotope: "Eu-152", EnergyKeV: 121.78, Intensity: 0.284},
		{Isotope: "Eu-152", EnergyKeV: 344.28, Intensity: 0.266},
		{Isotope: "Eu-152", EnergyKeV: 1408.01, Intensity: 0.21},
		{Isotope: "Tc-99m", EnergyKeV: 140.51, Intensity: 0.885},

		// U-238 series.
		{Isotope: "Th-234", EnergyKeV: 92.58, Intensity: 0.0481}, // 92.4/92.8 doublet
		{Isotope: "Th-234", EnergyKeV: 63.29, Intensity: 0.037},
		{Isotope: "Pa-234m", EnergyKeV: 1001.03, Intensity: 0.00842},
		{Isotope: "Pa-234m", EnergyKeV: 766.37, Intensity: 0.00294},
		{Isotope: "Ra-226", EnergyKeV: 186.21, Intensity: 0.0359},
		{Isotope: "Pb-214", EnergyKeV: 351.93, Intensity: 0.356},
		{Isotope: "Pb-214", EnergyKeV: 295.22, Intensity: 0.184},
		{Isotope: "Bi-214", EnergyKeV: 609.31, Intensity: 0.455},
		{Isotope: "Bi-214", EnergyKeV: 1120.29, Intensity: 0.149},
		{Isotope: "Bi-214", EnergyKeV: 1764.49, Intensity: 0.153},
		{Isotope: "Pb-210", EnergyKeV: 46.54, Intensity: 0.0425},

		// Th-232 series.
		{Isotope: "Ac-228", EnergyKeV: 911.20, Intensity: 0.258},
		{Isotope: "Ac-228", EnergyKeV: 968.97, Intensity: 0.158},
		{Isotope: "Pb-212", EnergyKeV: 238.63, Intensity: 0.436},
		{Isotope: "Bi-212", EnergyKeV: 727.33, Intensity: 0.0667},
		{Isotope: "Tl-208", EnergyKeV: 583.19, Intensity: 0.305},
		{Isotope: "Tl-208", EnergyKeV: 2614.51, Intensity: 0.9975},

		// U-235 series.
		{Isotope: "U-235", EnergyKeV: 185.72, Intensity: 0.572},
		{Isotope: "U-235", EnergyKeV: 143.76, Intensity: 0.1096},
		{Isotope: "Th-227", EnergyKeV: 235.96, Intensity: 0.1227},
		{Isotope: "Ra-223", EnergyKeV: 269.46, Intensity: 0.137},
	})
}
