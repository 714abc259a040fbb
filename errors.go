package gammacore

import "errors"

// Input errors. The pipeline performs no partial analysis once one of these
// is reported; callers surface them to the user as-is.
var (
	ErrEmptySpectrum     = errors.New("gammacore: spectrum has no channels")
	ErrNegativeCounts    = errors.New("gammacore: spectrum contains negative counts")
	ErrBadCalibration    = errors.New("gammacore: calibration is not monotonically increasing over the channel range")
	ErrBadLiveTime       = errors.New("gammacore: live time must be positive")
	ErrUnknownIsotope    = errors.New("gammacore: isotope not present in reference library")
	ErrNoEfficiencyCurve = errors.New("gammacore: detector profile has no efficiency calibration")
	ErrInvalidOptions    = errors.New("gammacore: invalid analysis options")
)
