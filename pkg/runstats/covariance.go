package runstats

import (
	"fmt"
	"time"
)

// ExponentialCovariance computes the exponentially weighted covariance and
// correlation of x and y, along with the weighted mean and variance of
// each.
//
// In time-based mode the covariance owns the timer: one effective decay is
// derived per push and applied to x, y and the cross term alike.
type ExponentialCovariance struct {
	decay             float64
	covariance        float64
	initialCovariance float64
	xstats            ExponentialStatistics
	ystats            ExponentialStatistics
	timer
}

// NewExponentialCovariance returns an ExponentialCovariance with the given
// decay, which must lie strictly between 0 and 1.
func NewExponentialCovariance(decay float64, opts ...Option) (*ExponentialCovariance, error) {
	o := applyOptions(opts)
	x, err := newExponential(decay, o.mean[0], o.variance[0], 0, nil)
	if err != nil {
		return nil, err
	}
	y, err := newExponential(decay, o.mean[1], o.variance[1], 0, nil)
	if err != nil {
		return nil, err
	}
	t, err := newTimer(o.delay, o.clock)
	if err != nil {
		return nil, err
	}
	return &ExponentialCovariance{
		decay:             decay,
		covariance:        o.covariance,
		initialCovariance: o.covariance,
		xstats:            *x,
		ystats:            *y,
		timer:             t,
	}, nil
}

// Clear restores the seeded values and restarts the timer.
func (c *ExponentialCovariance) Clear() {
	c.xstats.Clear()
	c.ystats.Clear()
	c.covariance = c.initialCovariance
	c.timer.reset()
}

// Decay returns the decay rate.
func (c *ExponentialCovariance) Decay() float64 {
	return c.decay
}

// SetDecay changes the decay rate of the covariance and both of its
// component accumulators.
func (c *ExponentialCovariance) SetDecay(decay float64) error {
	if err := validateDecay(decay); err != nil {
		return err
	}
	c.decay = decay
	c.xstats.decay = decay
	c.ystats.decay = decay
	return nil
}

// Delay returns the time constant, or zero when position based.
func (c *ExponentialCovariance) Delay() time.Duration {
	return time.Duration(c.delay * float64(time.Second))
}

// SetDelay switches between time-based and position-based mode.
func (c *ExponentialCovariance) SetDelay(delay time.Duration) error {
	return c.timer.setDelay(delay.Seconds())
}

// IsTimeBased reports whether decay depends on elapsed time.
func (c *ExponentialCovariance) IsTimeBased() bool {
	return c.timer.timeBased()
}

// IsFrozen reports whether elapsed time accrual is suspended.
func (c *ExponentialCovariance) IsFrozen() bool {
	return c.timer.isFrozen()
}

// Freeze suspends elapsed time accrual.
func (c *ExponentialCovariance) Freeze() error {
	return c.timer.freeze()
}

// Unfreeze resumes elapsed time accrual.
func (c *ExponentialCovariance) Unfreeze() error {
	return c.timer.unfreeze()
}

// ClearTimer restarts the timer at the current time.
func (c *ExponentialCovariance) ClearTimer() error {
	return c.timer.clear()
}

// Push adds the pair (x, y).
func (c *ExponentialCovariance) Push(x, y float64) {
	decay := c.timer.effectiveDecay(c.decay)
	c.xstats.pushDecay(x, decay)
	// New x mean, old y mean.
	c.covariance = decay*c.covariance + (1-decay)*(x-c.xstats.mean)*(y-c.ystats.mean)
	c.ystats.pushDecay(y, decay)
}

// Covariance returns the exponentially weighted covariance.
func (c *ExponentialCovariance) Covariance() float64 {
	return c.covariance
}

// Correlation returns the covariance normalised by both standard
// deviations.
func (c *ExponentialCovariance) Correlation() float64 {
	return c.covariance / (c.xstats.StdDev() * c.ystats.StdDev())
}

// XStats returns a copy of the x accumulator.
func (c *ExponentialCovariance) XStats() *ExponentialStatistics {
	return c.xstats.Copy()
}

// YStats returns a copy of the y accumulator.
func (c *ExponentialCovariance) YStats() *ExponentialStatistics {
	return c.ystats.Copy()
}

// Copy returns an independent copy of c sharing its clock.
func (c *ExponentialCovariance) Copy() *ExponentialCovariance {
	cp := *c
	return &cp
}

// Add returns a copy of c with that merged in.
func (c *ExponentialCovariance) Add(that *ExponentialCovariance) *ExponentialCovariance {
	sum := c.Copy()
	sum.Merge(that)
	return sum
}

// Merge adds the components of that to c. As with ExponentialStatistics
// this is additive; scale the operands first.
func (c *ExponentialCovariance) Merge(that *ExponentialCovariance) {
	c.xstats.Merge(&that.xstats)
	c.ystats.Merge(&that.ystats)
	c.covariance += that.covariance
	c.timer.reset()
}

// Scale multiplies the covariance and both component accumulators by
// factor.
func (c *ExponentialCovariance) Scale(factor float64) {
	c.xstats.Scale(factor)
	c.ystats.Scale(factor)
	c.covariance *= factor
}

// Mul returns a copy of c scaled by factor.
func (c *ExponentialCovariance) Mul(factor float64) *ExponentialCovariance {
	cp := c.Copy()
	cp.Scale(factor)
	return cp
}

// Equal reports whether c and that have bit-identical state.
func (c *ExponentialCovariance) Equal(that *ExponentialCovariance) bool {
	return equalValues(c.State().Values(), that.State().Values())
}

// State returns the internal state of c.
func (c *ExponentialCovariance) State() CovarianceState {
	return CovarianceState{
		Decay:             c.decay,
		Covariance:        c.covariance,
		InitialCovariance: c.initialCovariance,
		Delay:             c.timer.delay,
		Stamp:             c.timer.stamp,
		Frozen:            c.timer.frozen,
		X:                 c.xstats.State(),
		Y:                 c.ystats.State(),
	}
}

// SetState replaces the internal state of c. All three decays must match
// and be valid; c is unchanged on error.
func (c *ExponentialCovariance) SetState(st CovarianceState) error {
	if err := validateDecay(st.Decay); err != nil {
		return err
	}
	if st.X.Decay != st.Decay || st.Y.Decay != st.Decay {
		return fmt.Errorf("%w: component decay %v/%v differs from %v",
			ErrInvalidDecay, st.X.Decay, st.Y.Decay, st.Decay)
	}
	x, y := c.xstats, c.ystats
	if err := x.SetState(st.X); err != nil {
		return err
	}
	if err := y.SetState(st.Y); err != nil {
		return err
	}
	if err := c.timer.setState(st.Delay, st.Stamp, st.Frozen); err != nil {
		return err
	}
	c.decay = st.Decay
	c.covariance = st.Covariance
	c.initialCovariance = st.InitialCovariance
	c.xstats, c.ystats = x, y
	return nil
}

// ExponentialCovarianceFromState returns an ExponentialCovariance restored
// from st. Only WithClock is honoured among opts.
func ExponentialCovarianceFromState(st CovarianceState, opts ...Option) (*ExponentialCovariance, error) {
	o := applyOptions(opts)
	c := &ExponentialCovariance{timer: timer{clock: o.clock}}
	if err := c.SetState(st); err != nil {
		return nil, err
	}
	return c, nil
}
