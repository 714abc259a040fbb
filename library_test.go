package gammacore

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryPrincipalLine(t *testing.T) {
	lib := DefaultLibrary()

	cs, ok := lib.PrincipalLine("Cs-137")
	require.True(t, ok)
	assert.InDelta(t, 661.66, cs.EnergyKeV, 1e-9)

	// Co-60's 1332 keV line is marginally more intense than the 1173 keV one.
	co, ok := lib.PrincipalLine("Co-60")
	require.True(t, ok)
	assert.InDelta(t, 1332.49, co.EnergyKeV, 1e-9)

	_, ok = lib.PrincipalLine("Pu-239")
	assert.False(t, ok)
}

func TestLibraryIsotopesSorted(t *testing.T) {
	lib := DefaultLibrary()
	isotopes := lib.Isotopes()
	assert.True(t, sort.StringsAreSorted(isotopes))
	assert.Contains(t, isotopes, "Cs-137")
	assert.Contains(t, isotopes, "Tl-208")
}

func TestLibraryLinesIntensityOrdered(t *testing.T) {
	lib := DefaultLibrary()
	lines := lib.Lines("Bi-214")
	require.NotEmpty(t, lines)
	for i := 1; i < len(lines); i++ {
		assert.GreaterOrEqual(t, lines[i-1].Intensity, lines[i].Intensity)
	}
	assert.Empty(t, lib.Lines("Unknown-1"))
}

func TestLibraryMergeDoesNotMutateReceiver(t *testing.T) {
	base := NewLibrary([]IsotopeLine{
		{Isotope: "Cs-137", EnergyKeV: 661.66, Intensity: 0.851},
	})
	merged := base.Merge([]IsotopeLine{
		{Isotope: "Mn-54", EnergyKeV: 834.85, Intensity: 0.9998},
		{Isotope: "Cs-137", EnergyKeV: 32.0, Intensity: 0.058}, // Ba K x-ray
	})

	assert.Len(t, base.Isotopes(), 1)
	assert.Len(t, base.Lines("Cs-137"), 1)

	assert.ElementsMatch(t, []string{"Cs-137", "Mn-54"}, merged.Isotopes())
	assert.Len(t, merged.Lines("Cs-137"), 2)

	principal, ok := merged.PrincipalLine("Cs-137")
	require.True(t, ok)
	assert.InDelta(t, 661.66, principal.EnergyKeV, 1e-9)
}
