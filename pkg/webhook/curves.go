package webhook

import (
	"math"

	"github.com/radwatch/gammacore"
	"github.com/radwatch/gammacore/pkg/models"
)

// curveSamples is the number of model points per peak overlay.
const curveSamples = 41

// BuildPeakCurves samples the fitted Gaussian of each successful peak over
// +/-3 FWHM so the receiving dashboard can overlay the fits on the raw
// histogram. Unfitted peaks produce no curve.
func BuildPeakCurves(peaks []gammacore.Peak) []models.PeakCurve {
	var out []models.PeakCurve
	for _, p := range peaks {
		if !p.FitSuccess || p.FWHMKeV <= 0 {
			continue
		}
		sigma := p.FWHMKeV / gammacore.FWHMFactor
		amp := p.NetArea / (sigma * math.Sqrt(2*math.Pi))
		lo := p.EnergyKeV - 3*p.FWHMKeV
		step := 6 * p.FWHMKeV / float64(curveSamples-1)

		curve := models.PeakCurve{
			EnergyKeV: p.EnergyKeV,
			Energies:  make([]float64, curveSamples),
			Values:    make([]float64, curveSamples),
		}
		for i := 0; i < curveSamples; i++ {
			e := lo + float64(i)*step
			d := (e - p.EnergyKeV) / sigma
			curve.Energies[i] = e
			curve.Values[i] = amp * math.Exp(-d*d/2)
		}
		out = append(out, curve)
	}
	return out
}
