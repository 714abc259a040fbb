package gammacore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpectrumValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spectrum
		wantErr error
	}{
		{
			name:    "valid linear calibration",
			spec:    Spectrum{Counts: []float64{1, 2, 3}, Cal: Calibration{A1: 3}, LiveTime: 60},
			wantErr: nil,
		},
		{
			name:    "valid uncalibrated",
			spec:    Spectrum{Counts: []float64{0, 0, 0}, LiveTime: 60},
			wantErr: nil,
		},
		{
			name:    "empty counts",
			spec:    Spectrum{LiveTime: 60},
			wantErr: ErrEmptySpectrum,
		},
		{
			name:    "negative count",
			spec:    Spectrum{Counts: []float64{1, -2, 3}, LiveTime: 60},
			wantErr: ErrNegativeCounts,
		},
		{
			name:    "NaN count",
			spec:    Spectrum{Counts: []float64{1, math.NaN(), 3}, LiveTime: 60},
			wantErr: ErrNegativeCounts,
		},
		{
			name:    "zero live time",
			spec:    Spectrum{Counts: []float64{1, 2, 3}},
			wantErr: ErrBadLiveTime,
		},
		{
			name:    "decreasing calibration",
			spec:    Spectrum{Counts: []float64{1, 2, 3}, Cal: Calibration{A0: 100, A1: -1}, LiveTime: 60},
			wantErr: ErrBadCalibration,
		},
		{
			name: "quadratic term turns energy over",
			spec: Spectrum{
				Counts:   make([]float64, 1024),
				Cal:      Calibration{A1: 3, A2: -0.01},
				LiveTime: 60,
			},
			wantErr: ErrBadCalibration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewSpectrumRejectsInvalid(t *testing.T) {
	_, err := NewSpectrum(nil, Calibration{}, 60, 60)
	assert.ErrorIs(t, err, ErrEmptySpectrum)

	spec, err := NewSpectrum([]float64{1, 2, 3}, Calibration{A1: 1}, 60, 62)
	require.NoError(t, err)
	assert.Equal(t, 3, spec.Channels())
}

func TestCalibrationEnergyAt(t *testing.T) {
	cal := Calibration{A0: 5, A1: 2, A2: 0.001}
	assert.InDelta(t, 5.0, cal.EnergyAt(0), 1e-12)
	assert.InDelta(t, 5+2*100+0.001*100*100, cal.EnergyAt(100), 1e-9)
	assert.True(t, Calibration{}.IsZero())
	assert.False(t, cal.IsZero())
}

func TestChannelOf(t *testing.T) {
	spec := &Spectrum{
		Counts:   make([]float64, 1024),
		Cal:      Calibration{A1: 3},
		LiveTime: 60,
	}
	assert.Equal(t, 221, spec.ChannelOf(661.66)) // 220.55 rounds to the nearest channel
	assert.Equal(t, 0, spec.ChannelOf(-50))
	assert.Equal(t, 1023, spec.ChannelOf(1e6))
}

func TestSpectrumAggregates(t *testing.T) {
	spec := &Spectrum{Counts: []float64{1, 7, 2, 7, 3}, LiveTime: 60}
	assert.Equal(t, 7.0, spec.MaxCount())
	assert.Equal(t, 20.0, spec.TotalCounts())

	energies := (&Spectrum{Counts: make([]float64, 4), Cal: Calibration{A1: 2}, LiveTime: 1}).Energies()
	assert.Equal(t, []float64{0, 2, 4, 6}, energies)
}

func TestSpectrumCloneIsIndependent(t *testing.T) {
	orig := &Spectrum{Counts: []float64{1, 2, 3}, Cal: Calibration{A1: 1}, LiveTime: 60, RealTime: 61}
	clone := orig.Clone()
	clone.Counts[0] = 99

	assert.Equal(t, 1.0, orig.Counts[0])
	assert.Equal(t, orig.Cal, clone.Cal)
	assert.Equal(t, orig.LiveTime, clone.LiveTime)
}
