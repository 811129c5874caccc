package runstats

import "time"

// Option configures an ExponentialStatistics or ExponentialCovariance.
type Option func(*options)

type options struct {
	mean       [2]float64
	variance   [2]float64
	covariance float64
	delay      time.Duration
	clock      Clock
}

// WithMean seeds the mean of an ExponentialStatistics.
func WithMean(mean float64) Option {
	return func(o *options) { o.mean[0] = mean }
}

// WithVariance seeds the variance of an ExponentialStatistics.
func WithVariance(variance float64) Option {
	return func(o *options) { o.variance[0] = variance }
}

// WithMeans seeds the x and y means of an ExponentialCovariance.
func WithMeans(x, y float64) Option {
	return func(o *options) { o.mean = [2]float64{x, y} }
}

// WithVariances seeds the x and y variances of an ExponentialCovariance.
func WithVariances(x, y float64) Option {
	return func(o *options) { o.variance = [2]float64{x, y} }
}

// WithCovariance seeds the covariance of an ExponentialCovariance.
func WithCovariance(covariance float64) Option {
	return func(o *options) { o.covariance = covariance }
}

// WithDelay makes the accumulator time based: a sample pushed delay after
// the previous one decays the old state by exactly decay. Zero keeps the
// accumulator position based.
func WithDelay(delay time.Duration) Option {
	return func(o *options) { o.delay = delay }
}

// WithClock sets the time source used in time-based mode.
func WithClock(clock Clock) Option {
	return func(o *options) { o.clock = clock }
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
