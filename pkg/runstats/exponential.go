package runstats

import (
	"fmt"
	"math"
	"time"
)

// ExponentialStatistics computes an exponentially weighted mean and
// variance. Each push retains decay of the old state; in time-based mode
// the retention is decay^(elapsed/delay) instead.
type ExponentialStatistics struct {
	decay           float64
	mean            float64
	variance        float64
	initialMean     float64
	initialVariance float64
	timer
}

// NewExponentialStatistics returns an ExponentialStatistics with the given
// decay, which must lie strictly between 0 and 1.
func NewExponentialStatistics(decay float64, opts ...Option) (*ExponentialStatistics, error) {
	o := applyOptions(opts)
	return newExponential(decay, o.mean[0], o.variance[0], o.delay, o.clock)
}

func newExponential(decay, mean, variance float64, delay time.Duration, clock Clock) (*ExponentialStatistics, error) {
	if err := validateDecay(decay); err != nil {
		return nil, err
	}
	t, err := newTimer(delay, clock)
	if err != nil {
		return nil, err
	}
	return &ExponentialStatistics{
		decay:           decay,
		mean:            mean,
		variance:        variance,
		initialMean:     mean,
		initialVariance: variance,
		timer:           t,
	}, nil
}

func validateDecay(decay float64) error {
	if !(decay > 0 && decay < 1) {
		return fmt.Errorf("%w: %v", ErrInvalidDecay, decay)
	}
	return nil
}

// Clear restores the seeded mean and variance and restarts the timer.
func (e *ExponentialStatistics) Clear() {
	e.mean = e.initialMean
	e.variance = e.initialVariance
	e.timer.reset()
}

// Decay returns the decay rate.
func (e *ExponentialStatistics) Decay() float64 {
	return e.decay
}

// SetDecay changes the decay rate used by subsequent pushes.
func (e *ExponentialStatistics) SetDecay(decay float64) error {
	if err := validateDecay(decay); err != nil {
		return err
	}
	e.decay = decay
	return nil
}

// Delay returns the time constant, or zero when position based.
func (e *ExponentialStatistics) Delay() time.Duration {
	return time.Duration(e.delay * float64(time.Second))
}

// SetDelay switches between time-based (delay > 0) and position-based
// (delay == 0) mode. The timer restarts at the current time.
func (e *ExponentialStatistics) SetDelay(delay time.Duration) error {
	return e.timer.setDelay(delay.Seconds())
}

// IsTimeBased reports whether decay depends on elapsed time.
func (e *ExponentialStatistics) IsTimeBased() bool {
	return e.timer.timeBased()
}

// IsFrozen reports whether elapsed time accrual is suspended.
func (e *ExponentialStatistics) IsFrozen() bool {
	return e.timer.isFrozen()
}

// Freeze suspends elapsed time accrual. Pushes while frozen decay by the
// time elapsed between the last push and the call to Freeze.
func (e *ExponentialStatistics) Freeze() error {
	return e.timer.freeze()
}

// Unfreeze resumes elapsed time accrual as if the frozen interval had not
// passed.
func (e *ExponentialStatistics) Unfreeze() error {
	return e.timer.unfreeze()
}

// ClearTimer restarts the timer at the current time and discards any
// frozen interval.
func (e *ExponentialStatistics) ClearTimer() error {
	return e.timer.clear()
}

// Push adds x to the summary.
func (e *ExponentialStatistics) Push(x float64) {
	e.pushDecay(x, e.timer.effectiveDecay(e.decay))
}

func (e *ExponentialStatistics) pushDecay(x, decay float64) {
	alpha := 1 - decay
	diff := x - e.mean
	e.variance += alpha * (decay*diff*diff - e.variance)
	e.mean += alpha * diff
}

// Mean returns the exponentially weighted mean.
func (e *ExponentialStatistics) Mean() float64 {
	return e.mean
}

// Variance returns the exponentially weighted variance.
func (e *ExponentialStatistics) Variance() float64 {
	return e.variance
}

// StdDev returns the square root of Variance.
func (e *ExponentialStatistics) StdDev() float64 {
	return math.Sqrt(e.variance)
}

// Copy returns an independent copy of e sharing its clock.
func (e *ExponentialStatistics) Copy() *ExponentialStatistics {
	c := *e
	return &c
}

// Add returns a copy of e with that merged in.
func (e *ExponentialStatistics) Add(that *ExponentialStatistics) *ExponentialStatistics {
	sum := e.Copy()
	sum.Merge(that)
	return sum
}

// Merge adds the mean and variance of that to e. This is not a weighted
// combination: scale both operands first so their weights sum to one,
// e.g. a.Mul(0.5).Add(b.Mul(0.5)). A time-based result restarts its timer.
func (e *ExponentialStatistics) Merge(that *ExponentialStatistics) {
	e.mean += that.mean
	e.variance += that.variance
	e.timer.reset()
}

// Scale multiplies the mean and variance by factor.
func (e *ExponentialStatistics) Scale(factor float64) {
	e.mean *= factor
	e.variance *= factor
}

// Mul returns a copy of e scaled by factor.
func (e *ExponentialStatistics) Mul(factor float64) *ExponentialStatistics {
	c := e.Copy()
	c.Scale(factor)
	return c
}

// Equal reports whether e and that have bit-identical state, including
// decay and timer fields.
func (e *ExponentialStatistics) Equal(that *ExponentialStatistics) bool {
	return equalValues(e.State().Values(), that.State().Values())
}

// State returns the internal state of e.
func (e *ExponentialStatistics) State() ExponentialState {
	return ExponentialState{
		Decay:           e.decay,
		Mean:            e.mean,
		Variance:        e.variance,
		InitialMean:     e.initialMean,
		InitialVariance: e.initialVariance,
		Delay:           e.timer.delay,
		Stamp:           e.timer.stamp,
		Frozen:          e.timer.frozen,
	}
}

// SetState replaces the internal state of e. The decay and delay are
// validated; e is unchanged on error.
func (e *ExponentialStatistics) SetState(st ExponentialState) error {
	if err := validateDecay(st.Decay); err != nil {
		return err
	}
	if err := e.timer.setState(st.Delay, st.Stamp, st.Frozen); err != nil {
		return err
	}
	e.decay = st.Decay
	e.mean = st.Mean
	e.variance = st.Variance
	e.initialMean = st.InitialMean
	e.initialVariance = st.InitialVariance
	return nil
}

// ExponentialStatisticsFromState returns an ExponentialStatistics restored
// from st. Only WithClock is honoured among opts.
func ExponentialStatisticsFromState(st ExponentialState, opts ...Option) (*ExponentialStatistics, error) {
	o := applyOptions(opts)
	e := &ExponentialStatistics{timer: timer{clock: o.clock}}
	if err := e.SetState(st); err != nil {
		return nil, err
	}
	return e, nil
}
