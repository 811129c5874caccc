package runstats

import (
	"encoding"
	"errors"
	"math"
	"testing"
	"time"
)

type binaryState interface {
	encoding.BinaryMarshaler
	Values() []float64
}

func TestState_BinaryRoundTrip(t *testing.T) {
	clk := newFakeClock()
	exp, _ := NewExponentialStatistics(0.9, WithDelay(time.Second), WithClock(clk))
	cov, _ := NewExponentialCovariance(0.8, WithMeans(1, -1))
	for i := 0; i < 25; i++ {
		clk.Advance(time.Second)
		exp.Push(float64(i))
		cov.Push(float64(i), float64(i*i))
	}

	tests := []struct {
		name   string
		state  binaryState
		decode func([]byte) ([]float64, error)
	}{
		{"empty statistics", NewStatistics().State(), func(b []byte) ([]float64, error) {
			var s StatisticsState
			err := s.UnmarshalBinary(b)
			return s.Values(), err
		}},
		{"statistics", NewStatistics(randomValues(0, 100)...).State(), func(b []byte) ([]float64, error) {
			var s StatisticsState
			err := s.UnmarshalBinary(b)
			return s.Values(), err
		}},
		{"empty regression", NewRegression().State(), func(b []byte) ([]float64, error) {
			var s RegressionState
			err := s.UnmarshalBinary(b)
			return s.Values(), err
		}},
		{"regression", NewRegression(linePoints(0, 0, 100, 2, 1, 1)...).State(), func(b []byte) ([]float64, error) {
			var s RegressionState
			err := s.UnmarshalBinary(b)
			return s.Values(), err
		}},
		{"exponential", exp.State(), func(b []byte) ([]float64, error) {
			var s ExponentialState
			err := s.UnmarshalBinary(b)
			return s.Values(), err
		}},
		{"covariance", cov.State(), func(b []byte) ([]float64, error) {
			var s CovarianceState
			err := s.UnmarshalBinary(b)
			return s.Values(), err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.state.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary() error = %v", err)
			}
			if len(data) != 8*len(tt.state.Values()) {
				t.Errorf("len(data) = %d, want %d", len(data), 8*len(tt.state.Values()))
			}
			got, err := tt.decode(data)
			if err != nil {
				t.Fatalf("UnmarshalBinary() error = %v", err)
			}
			if !equalValues(got, tt.state.Values()) {
				t.Errorf("round trip = %v, want %v", got, tt.state.Values())
			}
		})
	}
}

func TestState_ParseLength(t *testing.T) {
	tests := []struct {
		name  string
		parse func([]float64) error
		want  int
	}{
		{"statistics", func(v []float64) error { _, err := ParseStatisticsState(v); return err }, StatisticsStateLen},
		{"regression", func(v []float64) error { _, err := ParseRegressionState(v); return err }, RegressionStateLen},
		{"exponential", func(v []float64) error { _, err := ParseExponentialState(v); return err }, ExponentialStateLen},
		{"covariance", func(v []float64) error { _, err := ParseCovarianceState(v); return err }, CovarianceStateLen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.parse(make([]float64, tt.want)); err != nil {
				t.Errorf("Parse(%d values) error = %v", tt.want, err)
			}
			for _, n := range []int{0, tt.want - 1, tt.want + 1} {
				if err := tt.parse(make([]float64, n)); !errors.Is(err, ErrStateLength) {
					t.Errorf("Parse(%d values) error = %v, want ErrStateLength", n, err)
				}
			}
		})
	}
}

func TestState_ValuesLayout(t *testing.T) {
	s := NewStatistics(1, 2, 3)
	v := s.State().Values()
	if len(v) != StatisticsStateLen {
		t.Fatalf("len(Values()) = %d, want %d", len(v), StatisticsStateLen)
	}
	if v[0] != 3 || v[1] != 2 || v[5] != 1 || v[6] != 3 {
		t.Errorf("Values() = %v, want count=3 mean=2 min=1 max=3", v)
	}

	empty := NewStatistics().State().Values()
	if !math.IsNaN(empty[5]) || !math.IsNaN(empty[6]) {
		t.Errorf("empty Values() min/max = %v/%v, want NaN", empty[5], empty[6])
	}

	e, _ := NewExponentialStatistics(0.9)
	ev := e.State().Values()
	if ev[0] != 0.9 || ev[5] != 0 || !math.IsNaN(ev[7]) {
		t.Errorf("exponential Values() = %v, want decay=0.9 delay=0 frozen=NaN", ev)
	}
}

func TestState_UnmarshalRejectsBadInput(t *testing.T) {
	var s StatisticsState
	if err := s.UnmarshalBinary(make([]byte, 13)); !errors.Is(err, ErrStateLength) {
		t.Errorf("UnmarshalBinary(13 bytes) error = %v, want ErrStateLength", err)
	}
	if err := s.UnmarshalBinary(make([]byte, 8*ExponentialStateLen)); !errors.Is(err, ErrStateLength) {
		t.Errorf("UnmarshalBinary(exponential-sized) error = %v, want ErrStateLength", err)
	}
}

func TestState_FromParsedValues(t *testing.T) {
	r := NewRegression(linePoints(3, 0, 50, -1, 4, 2)...)
	st, err := ParseRegressionState(r.State().Values())
	if err != nil {
		t.Fatalf("ParseRegressionState() error = %v", err)
	}
	if !RegressionFromState(st).Equal(r) {
		t.Error("RegressionFromState(Parse(Values())) != original")
	}
}
