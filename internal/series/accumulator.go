package series

import (
	"fmt"

	"github.com/HerbHall/runstats/pkg/runstats"
)

// accumulator adapts one runstats type to the uniform operations the
// manager exposes. Callers hold the owning entry's lock and have already
// checked sample arity and kind compatibility.
type accumulator interface {
	kind() Kind
	push(sample []float64)
	fill(s *Summary)
	merge(other accumulator)
	scale(factor float64)
	reset()
	freeze() error
	unfreeze() error
	clone() accumulator
	marshalState() ([]byte, error)
}

// newAccumulator builds an empty accumulator for spec. Spec.Decay must
// already be defaulted.
func newAccumulator(spec Spec, clock runstats.Clock) (accumulator, error) {
	switch spec.Kind {
	case KindStatistics:
		return &statisticsAcc{s: runstats.NewStatistics()}, nil
	case KindRegression:
		return &regressionAcc{r: runstats.NewRegression()}, nil
	case KindExponential:
		e, err := runstats.NewExponentialStatistics(spec.Decay,
			runstats.WithMean(spec.Mean),
			runstats.WithVariance(spec.Variance),
			runstats.WithDelay(spec.Delay()),
			runstats.WithClock(clock),
		)
		if err != nil {
			return nil, err
		}
		return &exponentialAcc{e: e}, nil
	case KindExponentialCovariance:
		c, err := runstats.NewExponentialCovariance(spec.Decay,
			runstats.WithMeans(spec.Mean, spec.MeanY),
			runstats.WithVariances(spec.Variance, spec.VarianceY),
			runstats.WithCovariance(spec.Covariance),
			runstats.WithDelay(spec.Delay()),
			runstats.WithClock(clock),
		)
		if err != nil {
			return nil, err
		}
		return &covarianceAcc{c: c}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, spec.Kind)
	}
}

// restoreAccumulator decodes a binary state blob produced by
// marshalState.
func restoreAccumulator(kind Kind, data []byte, clock runstats.Clock) (accumulator, error) {
	switch kind {
	case KindStatistics:
		var st runstats.StatisticsState
		if err := st.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return &statisticsAcc{s: runstats.StatisticsFromState(st)}, nil
	case KindRegression:
		var st runstats.RegressionState
		if err := st.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return &regressionAcc{r: runstats.RegressionFromState(st)}, nil
	case KindExponential:
		var st runstats.ExponentialState
		if err := st.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		e, err := runstats.ExponentialStatisticsFromState(st, runstats.WithClock(clock))
		if err != nil {
			return nil, err
		}
		return &exponentialAcc{e: e}, nil
	case KindExponentialCovariance:
		var st runstats.CovarianceState
		if err := st.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		c, err := runstats.ExponentialCovarianceFromState(st, runstats.WithClock(clock))
		if err != nil {
			return nil, err
		}
		return &covarianceAcc{c: c}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
}

func statisticsSummary(s *runstats.Statistics) StatisticsSummary {
	return StatisticsSummary{
		Count:    Value(s.Count()),
		Mean:     Value(s.Mean()),
		Variance: Value(s.Variance(1)),
		StdDev:   Value(s.StdDev(1)),
		Skewness: Value(s.Skewness()),
		Kurtosis: Value(s.Kurtosis()),
		Min:      Value(s.Minimum()),
		Max:      Value(s.Maximum()),
	}
}

func exponentialSummary(e *runstats.ExponentialStatistics) ExponentialSummary {
	return ExponentialSummary{
		Decay:        Value(e.Decay()),
		Mean:         Value(e.Mean()),
		Variance:     Value(e.Variance()),
		StdDev:       Value(e.StdDev()),
		DelaySeconds: e.Delay().Seconds(),
		Frozen:       e.IsFrozen(),
	}
}

// -- statistics --

type statisticsAcc struct{ s *runstats.Statistics }

func (a *statisticsAcc) kind() Kind                    { return KindStatistics }
func (a *statisticsAcc) push(sample []float64)         { a.s.Push(sample[0]) }
func (a *statisticsAcc) merge(other accumulator)       { a.s.Merge(other.(*statisticsAcc).s) }
func (a *statisticsAcc) scale(factor float64)          { a.s.Scale(factor) }
func (a *statisticsAcc) reset()                        { a.s.Clear() }
func (a *statisticsAcc) freeze() error                 { return runstats.ErrNotTimeBased }
func (a *statisticsAcc) unfreeze() error               { return runstats.ErrNotTimeBased }
func (a *statisticsAcc) clone() accumulator            { return &statisticsAcc{s: a.s.Copy()} }
func (a *statisticsAcc) marshalState() ([]byte, error) { return a.s.State().MarshalBinary() }

func (a *statisticsAcc) fill(s *Summary) {
	st := statisticsSummary(a.s)
	s.Statistics = &st
}

// -- regression --

type regressionAcc struct{ r *runstats.Regression }

func (a *regressionAcc) kind() Kind                    { return KindRegression }
func (a *regressionAcc) push(sample []float64)         { a.r.Push(sample[0], sample[1]) }
func (a *regressionAcc) merge(other accumulator)       { a.r.Merge(other.(*regressionAcc).r) }
func (a *regressionAcc) scale(factor float64)          { a.r.Scale(factor) }
func (a *regressionAcc) reset()                        { a.r.Clear() }
func (a *regressionAcc) freeze() error                 { return runstats.ErrNotTimeBased }
func (a *regressionAcc) unfreeze() error               { return runstats.ErrNotTimeBased }
func (a *regressionAcc) clone() accumulator            { return &regressionAcc{r: a.r.Copy()} }
func (a *regressionAcc) marshalState() ([]byte, error) { return a.r.State().MarshalBinary() }

func (a *regressionAcc) fill(s *Summary) {
	s.Regression = &RegressionSummary{
		Count:       Value(a.r.Count()),
		Slope:       Value(a.r.Slope(1)),
		Intercept:   Value(a.r.Intercept(1)),
		Correlation: Value(a.r.Correlation(1)),
		X:           statisticsSummary(a.r.XStats()),
		Y:           statisticsSummary(a.r.YStats()),
	}
}

// -- exponential --

type exponentialAcc struct {
	e *runstats.ExponentialStatistics
}

func (a *exponentialAcc) kind() Kind                    { return KindExponential }
func (a *exponentialAcc) push(sample []float64)         { a.e.Push(sample[0]) }
func (a *exponentialAcc) merge(other accumulator)       { a.e.Merge(other.(*exponentialAcc).e) }
func (a *exponentialAcc) scale(factor float64)          { a.e.Scale(factor) }
func (a *exponentialAcc) reset()                        { a.e.Clear() }
func (a *exponentialAcc) freeze() error                 { return a.e.Freeze() }
func (a *exponentialAcc) unfreeze() error               { return a.e.Unfreeze() }
func (a *exponentialAcc) clone() accumulator            { return &exponentialAcc{e: a.e.Copy()} }
func (a *exponentialAcc) marshalState() ([]byte, error) { return a.e.State().MarshalBinary() }

func (a *exponentialAcc) fill(s *Summary) {
	st := exponentialSummary(a.e)
	s.Exponential = &st
}

// -- exponential covariance --

type covarianceAcc struct {
	c *runstats.ExponentialCovariance
}

func (a *covarianceAcc) kind() Kind                    { return KindExponentialCovariance }
func (a *covarianceAcc) push(sample []float64)         { a.c.Push(sample[0], sample[1]) }
func (a *covarianceAcc) merge(other accumulator)       { a.c.Merge(other.(*covarianceAcc).c) }
func (a *covarianceAcc) scale(factor float64)          { a.c.Scale(factor) }
func (a *covarianceAcc) reset()                        { a.c.Clear() }
func (a *covarianceAcc) freeze() error                 { return a.c.Freeze() }
func (a *covarianceAcc) unfreeze() error               { return a.c.Unfreeze() }
func (a *covarianceAcc) clone() accumulator            { return &covarianceAcc{c: a.c.Copy()} }
func (a *covarianceAcc) marshalState() ([]byte, error) { return a.c.State().MarshalBinary() }

func (a *covarianceAcc) fill(s *Summary) {
	s.Covariance = &CovarianceSummary{
		Decay:        Value(a.c.Decay()),
		Covariance:   Value(a.c.Covariance()),
		Correlation:  Value(a.c.Correlation()),
		DelaySeconds: a.c.Delay().Seconds(),
		Frozen:       a.c.IsFrozen(),
		X:            exponentialSummary(a.c.XStats()),
		Y:            exponentialSummary(a.c.YStats()),
	}
}
