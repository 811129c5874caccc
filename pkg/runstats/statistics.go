package runstats

import "math"

// Statistics computes count, minimum, maximum, mean, variance, standard
// deviation, skewness and kurtosis in a single pass.
//
// The zero value is an empty accumulator ready to use.
type Statistics struct {
	count float64
	eta   float64 // mean
	rho   float64 // sum of squared deviations
	tau   float64 // third centered power sum
	phi   float64 // fourth centered power sum
	min   float64
	max   float64
}

// NewStatistics returns a Statistics with each of values pushed in order.
func NewStatistics(values ...float64) *Statistics {
	s := &Statistics{}
	for _, v := range values {
		s.Push(v)
	}
	return s
}

// Clear resets s to the empty state.
func (s *Statistics) Clear() {
	*s = Statistics{}
}

// Len returns the number of values pushed, truncated to an int.
func (s *Statistics) Len() int {
	return int(s.count)
}

// Count returns the (possibly scaled) weight of pushed values.
func (s *Statistics) Count() float64 {
	return s.count
}

// Push adds x to the summary.
func (s *Statistics) Push(x float64) {
	if s.count == 0 {
		s.min = x
		s.max = x
	} else {
		s.min = math.Min(s.min, x)
		s.max = math.Max(s.max, x)
	}

	delta := x - s.eta
	deltaN := delta / (s.count + 1)
	deltaN2 := deltaN * deltaN
	term := delta * deltaN * s.count

	s.count++
	s.eta += deltaN
	// Order matters: phi reads the old tau and rho, tau reads the old rho.
	s.phi += term*deltaN2*(s.count*s.count-3*s.count+3) +
		6*deltaN2*s.rho -
		4*deltaN*s.tau
	s.tau += term*deltaN*(s.count-2) - 3*deltaN*s.rho
	s.rho += term
}

// Minimum returns the smallest value pushed, or NaN when empty.
func (s *Statistics) Minimum() float64 {
	if s.count == 0 {
		return math.NaN()
	}
	return s.min
}

// Maximum returns the largest value pushed, or NaN when empty.
func (s *Statistics) Maximum() float64 {
	if s.count == 0 {
		return math.NaN()
	}
	return s.max
}

// Mean returns the mean of pushed values. It is 0 when empty.
func (s *Statistics) Mean() float64 {
	return s.eta
}

// Variance returns the variance with ddof delta degrees of freedom
// (0 for population, 1 for sample).
func (s *Statistics) Variance(ddof float64) float64 {
	return s.rho / (s.count - ddof)
}

// StdDev returns the square root of Variance(ddof).
func (s *Statistics) StdDev(ddof float64) float64 {
	return math.Sqrt(s.Variance(ddof))
}

// Skewness returns the sample skewness.
func (s *Statistics) Skewness() float64 {
	return math.Sqrt(s.count) * s.tau / math.Pow(s.rho, 1.5)
}

// Kurtosis returns the excess kurtosis.
func (s *Statistics) Kurtosis() float64 {
	return s.count*s.phi/(s.rho*s.rho) - 3
}

// Copy returns an independent copy of s.
func (s *Statistics) Copy() *Statistics {
	c := *s
	return &c
}

// Add returns a new Statistics equivalent to having pushed the values of
// both s and that. Neither operand is modified.
func (s *Statistics) Add(that *Statistics) *Statistics {
	sum := s.Copy()
	sum.Merge(that)
	return sum
}

// Merge folds that into s. The result is exact (up to rounding) and does
// not depend on the order in which summaries are merged. Merging an empty
// summary is a no-op.
func (s *Statistics) Merge(that *Statistics) {
	na, nb := s.count, that.count
	switch {
	case nb == 0:
		return
	case na == 0:
		*s = *that
		return
	}
	n := na + nb
	if n == 0 {
		// Weights cancel (e.g. merging a negatively scaled copy).
		return
	}

	delta := that.eta - s.eta
	delta2 := delta * delta
	delta3 := delta2 * delta
	delta4 := delta2 * delta2

	eta := (na*s.eta + nb*that.eta) / n
	rho := s.rho + that.rho + delta2*na*nb/n
	tau := s.tau + that.tau +
		delta3*na*nb*(na-nb)/(n*n) +
		3*delta*(na*that.rho-nb*s.rho)/n
	phi := s.phi + that.phi +
		delta4*na*nb*(na*na-na*nb+nb*nb)/(n*n*n) +
		6*delta2*(na*na*that.rho+nb*nb*s.rho)/(n*n) +
		4*delta*(na*that.tau-nb*s.tau)/n

	s.min = math.Min(s.min, that.min)
	s.max = math.Max(s.max, that.max)
	s.count = n
	s.eta = eta
	s.rho = rho
	s.tau = tau
	s.phi = phi
}

// Scale multiplies the weight of s by factor. Min and max are unchanged;
// s.Scale(2) is equivalent to merging s with a copy of itself.
func (s *Statistics) Scale(factor float64) {
	s.count *= factor
	s.rho *= factor
	s.tau *= factor
	s.phi *= factor
}

// Mul returns a copy of s scaled by factor.
func (s *Statistics) Mul(factor float64) *Statistics {
	c := s.Copy()
	c.Scale(factor)
	return c
}

// Equal reports whether s and that have bit-identical state.
func (s *Statistics) Equal(that *Statistics) bool {
	return equalValues(s.State().Values(), that.State().Values())
}

// State returns the internal state of s.
func (s *Statistics) State() StatisticsState {
	st := StatisticsState{
		Count: s.count,
		Mean:  s.eta,
		M2:    s.rho,
		M3:    s.tau,
		M4:    s.phi,
		Min:   s.min,
		Max:   s.max,
	}
	if s.count == 0 {
		st.Min, st.Max = math.NaN(), math.NaN()
	}
	return st
}

// SetState replaces the internal state of s.
func (s *Statistics) SetState(st StatisticsState) {
	s.count = st.Count
	s.eta = st.Mean
	s.rho = st.M2
	s.tau = st.M3
	s.phi = st.M4
	s.min = st.Min
	s.max = st.Max
}

// StatisticsFromState returns a Statistics restored from st.
func StatisticsFromState(st StatisticsState) *Statistics {
	s := &Statistics{}
	s.SetState(st)
	return s
}
