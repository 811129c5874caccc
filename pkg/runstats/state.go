package runstats

import (
	"encoding/binary"
	"fmt"
	"math"
)

// State tuple lengths.
const (
	StatisticsStateLen  = 7
	RegressionStateLen  = 2 + 2*StatisticsStateLen
	ExponentialStateLen = 8
	CovarianceStateLen  = 6 + 2*ExponentialStateLen
)

// StatisticsState is the flat state of a Statistics. Min and Max are NaN
// when Count is zero.
type StatisticsState struct {
	Count, Mean, M2, M3, M4, Min, Max float64
}

// Values returns the state as an ordered tuple.
func (s StatisticsState) Values() []float64 {
	return []float64{s.Count, s.Mean, s.M2, s.M3, s.M4, s.Min, s.Max}
}

// ParseStatisticsState builds a StatisticsState from a tuple produced by
// Values.
func ParseStatisticsState(v []float64) (StatisticsState, error) {
	if err := checkLen(v, StatisticsStateLen); err != nil {
		return StatisticsState{}, err
	}
	return StatisticsState{
		Count: v[0], Mean: v[1], M2: v[2], M3: v[3], M4: v[4], Min: v[5], Max: v[6],
	}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s StatisticsState) MarshalBinary() ([]byte, error) {
	return encodeValues(s.Values()), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *StatisticsState) UnmarshalBinary(data []byte) error {
	v, err := decodeValues(data)
	if err != nil {
		return err
	}
	st, err := ParseStatisticsState(v)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// RegressionState is the flat state of a Regression.
type RegressionState struct {
	Count, SXY float64
	X, Y       StatisticsState
}

// Values returns the state as an ordered tuple: count, sxy, then the x and
// y statistics tuples.
func (s RegressionState) Values() []float64 {
	v := make([]float64, 0, RegressionStateLen)
	v = append(v, s.Count, s.SXY)
	v = append(v, s.X.Values()...)
	return append(v, s.Y.Values()...)
}

// ParseRegressionState builds a RegressionState from a tuple produced by
// Values.
func ParseRegressionState(v []float64) (RegressionState, error) {
	if err := checkLen(v, RegressionStateLen); err != nil {
		return RegressionState{}, err
	}
	x, _ := ParseStatisticsState(v[2 : 2+StatisticsStateLen])
	y, _ := ParseStatisticsState(v[2+StatisticsStateLen:])
	return RegressionState{Count: v[0], SXY: v[1], X: x, Y: y}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s RegressionState) MarshalBinary() ([]byte, error) {
	return encodeValues(s.Values()), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *RegressionState) UnmarshalBinary(data []byte) error {
	v, err := decodeValues(data)
	if err != nil {
		return err
	}
	st, err := ParseRegressionState(v)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ExponentialState is the flat state of an ExponentialStatistics. Delay is
// in seconds and zero for position-based accumulators; Stamp is the time
// of the last push in Unix seconds; Frozen is the captured elapsed time,
// NaN when not frozen.
type ExponentialState struct {
	Decay, Mean, Variance        float64
	InitialMean, InitialVariance float64
	Delay, Stamp, Frozen         float64
}

// Values returns the state as an ordered tuple.
func (s ExponentialState) Values() []float64 {
	return []float64{
		s.Decay, s.Mean, s.Variance, s.InitialMean, s.InitialVariance,
		s.Delay, s.Stamp, s.Frozen,
	}
}

// ParseExponentialState builds an ExponentialState from a tuple produced
// by Values.
func ParseExponentialState(v []float64) (ExponentialState, error) {
	if err := checkLen(v, ExponentialStateLen); err != nil {
		return ExponentialState{}, err
	}
	return ExponentialState{
		Decay: v[0], Mean: v[1], Variance: v[2],
		InitialMean: v[3], InitialVariance: v[4],
		Delay: v[5], Stamp: v[6], Frozen: v[7],
	}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s ExponentialState) MarshalBinary() ([]byte, error) {
	return encodeValues(s.Values()), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *ExponentialState) UnmarshalBinary(data []byte) error {
	v, err := decodeValues(data)
	if err != nil {
		return err
	}
	st, err := ParseExponentialState(v)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// CovarianceState is the flat state of an ExponentialCovariance.
type CovarianceState struct {
	Decay, Covariance, InitialCovariance float64
	Delay, Stamp, Frozen                 float64
	X, Y                                 ExponentialState
}

// Values returns the state as an ordered tuple: the six scalar fields,
// then the x and y exponential tuples.
func (s CovarianceState) Values() []float64 {
	v := make([]float64, 0, CovarianceStateLen)
	v = append(v, s.Decay, s.Covariance, s.InitialCovariance, s.Delay, s.Stamp, s.Frozen)
	v = append(v, s.X.Values()...)
	return append(v, s.Y.Values()...)
}

// ParseCovarianceState builds a CovarianceState from a tuple produced by
// Values.
func ParseCovarianceState(v []float64) (CovarianceState, error) {
	if err := checkLen(v, CovarianceStateLen); err != nil {
		return CovarianceState{}, err
	}
	x, _ := ParseExponentialState(v[6 : 6+ExponentialStateLen])
	y, _ := ParseExponentialState(v[6+ExponentialStateLen:])
	return CovarianceState{
		Decay: v[0], Covariance: v[1], InitialCovariance: v[2],
		Delay: v[3], Stamp: v[4], Frozen: v[5],
		X: x, Y: y,
	}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s CovarianceState) MarshalBinary() ([]byte, error) {
	return encodeValues(s.Values()), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *CovarianceState) UnmarshalBinary(data []byte) error {
	v, err := decodeValues(data)
	if err != nil {
		return err
	}
	st, err := ParseCovarianceState(v)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

func checkLen(v []float64, n int) error {
	if len(v) != n {
		return fmt.Errorf("%w: got %d values, want %d", ErrStateLength, len(v), n)
	}
	return nil
}

// encodeValues writes each value as its big-endian IEEE-754 bits.
func encodeValues(v []float64) []byte {
	buf := make([]byte, 0, 8*len(v))
	for _, f := range v {
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(f))
	}
	return buf
}

func decodeValues(data []byte) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of 8", ErrStateLength, len(data))
	}
	v := make([]float64, len(data)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.BigEndian.Uint64(data[8*i:]))
	}
	return v, nil
}

func equalValues(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}
