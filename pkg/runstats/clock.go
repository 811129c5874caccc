package runstats

import (
	"fmt"
	"math"
	"time"
)

// Clock supplies the current time to time-based exponential accumulators.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

// seconds converts t to fractional seconds since the Unix epoch.
func seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// timer tracks elapsed time between pushes for time-based decay. A zero
// delay means the owner is position based and the timer is inert.
type timer struct {
	delay  float64 // seconds
	stamp  float64 // seconds of the last push
	frozen float64 // elapsed seconds captured by freeze, NaN when running
	clock  Clock
}

func newTimer(delay time.Duration, clock Clock) (timer, error) {
	if clock == nil {
		clock = SystemClock
	}
	t := timer{frozen: math.NaN(), clock: clock}
	if err := t.setDelay(delay.Seconds()); err != nil {
		return timer{}, err
	}
	return t, nil
}

func (t *timer) now() float64 {
	if t.clock == nil {
		t.clock = SystemClock
	}
	return seconds(t.clock.Now())
}

func (t *timer) timeBased() bool {
	return t.delay > 0
}

func (t *timer) isFrozen() bool {
	return !math.IsNaN(t.frozen)
}

func (t *timer) setDelay(delay float64) error {
	if delay < 0 || math.IsNaN(delay) || math.IsInf(delay, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidDelay, delay)
	}
	t.delay = delay
	t.frozen = math.NaN()
	if t.timeBased() {
		t.stamp = t.now()
	} else {
		t.stamp = 0
	}
	return nil
}

// effectiveDecay returns the decay to apply to the next push and advances
// the timestamp unless frozen.
func (t *timer) effectiveDecay(decay float64) float64 {
	if !t.timeBased() {
		return decay
	}
	var elapsed float64
	if t.isFrozen() {
		elapsed = t.frozen
	} else {
		now := t.now()
		elapsed = now - t.stamp
		t.stamp = now
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return math.Pow(decay, elapsed/t.delay)
}

func (t *timer) freeze() error {
	if !t.timeBased() {
		return ErrNotTimeBased
	}
	if t.isFrozen() {
		return ErrAlreadyFrozen
	}
	t.frozen = t.now() - t.stamp
	return nil
}

func (t *timer) unfreeze() error {
	if !t.timeBased() {
		return ErrNotTimeBased
	}
	if !t.isFrozen() {
		return ErrNotFrozen
	}
	t.stamp = t.now() - t.frozen
	t.frozen = math.NaN()
	return nil
}

func (t *timer) clear() error {
	if !t.timeBased() {
		return ErrNotTimeBased
	}
	t.reset()
	return nil
}

// reset restarts a time-based timer at now; it is a no-op otherwise.
func (t *timer) reset() {
	if !t.timeBased() {
		return
	}
	t.stamp = t.now()
	t.frozen = math.NaN()
}

func (t *timer) setState(delay, stamp, frozen float64) error {
	if delay < 0 || math.IsNaN(delay) || math.IsInf(delay, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidDelay, delay)
	}
	t.delay = delay
	t.stamp = stamp
	t.frozen = frozen
	return nil
}
