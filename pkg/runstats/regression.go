package runstats

// Regression computes simple linear regression of y on x in a single pass:
// slope, intercept and correlation.
//
// The zero value is an empty accumulator ready to use.
type Regression struct {
	count  float64
	sxy    float64
	xstats Statistics
	ystats Statistics
}

// Point is an (x, y) pair.
type Point struct {
	X, Y float64
}

// NewRegression returns a Regression with each of points pushed in order.
func NewRegression(points ...Point) *Regression {
	r := &Regression{}
	for _, p := range points {
		r.Push(p.X, p.Y)
	}
	return r
}

// Clear resets r to the empty state.
func (r *Regression) Clear() {
	*r = Regression{}
}

// Len returns the number of pairs pushed, truncated to an int.
func (r *Regression) Len() int {
	return int(r.count)
}

// Count returns the (possibly scaled) weight of pushed pairs.
func (r *Regression) Count() float64 {
	return r.count
}

// Push adds the pair (x, y).
func (r *Regression) Push(x, y float64) {
	// Uses the means from before this pair is pushed.
	r.sxy += (r.xstats.Mean() - x) * (r.ystats.Mean() - y) * r.count / (r.count + 1)
	r.xstats.Push(x)
	r.ystats.Push(y)
	r.count++
}

// XStats returns a copy of the statistics of the x coordinates.
func (r *Regression) XStats() *Statistics {
	return r.xstats.Copy()
}

// YStats returns a copy of the statistics of the y coordinates.
func (r *Regression) YStats() *Statistics {
	return r.ystats.Copy()
}

// Slope returns the least-squares slope.
func (r *Regression) Slope(ddof float64) float64 {
	sxx := r.xstats.Variance(ddof) * (r.count - ddof)
	return r.sxy / sxx
}

// Intercept returns the least-squares intercept.
func (r *Regression) Intercept(ddof float64) float64 {
	return r.ystats.Mean() - r.Slope(ddof)*r.xstats.Mean()
}

// Correlation returns the Pearson correlation of x and y.
func (r *Regression) Correlation(ddof float64) float64 {
	term := r.xstats.StdDev(ddof) * r.ystats.StdDev(ddof)
	return r.sxy / ((r.count - ddof) * term)
}

// Copy returns an independent copy of r.
func (r *Regression) Copy() *Regression {
	c := *r
	return &c
}

// Add returns a new Regression equivalent to having pushed the pairs of
// both r and that. Neither operand is modified.
func (r *Regression) Add(that *Regression) *Regression {
	sum := r.Copy()
	sum.Merge(that)
	return sum
}

// Merge folds that into r.
func (r *Regression) Merge(that *Regression) {
	na, nb := r.count, that.count
	switch {
	case nb == 0:
		return
	case na == 0:
		*r = *that
		return
	}
	n := na + nb
	if n == 0 {
		// Weights cancel (e.g. merging a negatively scaled copy).
		return
	}

	deltaX := that.xstats.Mean() - r.xstats.Mean()
	deltaY := that.ystats.Mean() - r.ystats.Mean()
	r.sxy += that.sxy + na*nb*deltaX*deltaY/n

	r.xstats.Merge(&that.xstats)
	r.ystats.Merge(&that.ystats)
	r.count = n
}

// Scale multiplies the weight of r by factor.
func (r *Regression) Scale(factor float64) {
	r.count *= factor
	r.sxy *= factor
	r.xstats.Scale(factor)
	r.ystats.Scale(factor)
}

// Mul returns a copy of r scaled by factor.
func (r *Regression) Mul(factor float64) *Regression {
	c := r.Copy()
	c.Scale(factor)
	return c
}

// Equal reports whether r and that have bit-identical state.
func (r *Regression) Equal(that *Regression) bool {
	return equalValues(r.State().Values(), that.State().Values())
}

// State returns the internal state of r.
func (r *Regression) State() RegressionState {
	return RegressionState{
		Count: r.count,
		SXY:   r.sxy,
		X:     r.xstats.State(),
		Y:     r.ystats.State(),
	}
}

// SetState replaces the internal state of r.
func (r *Regression) SetState(st RegressionState) {
	r.count = st.Count
	r.sxy = st.SXY
	r.xstats.SetState(st.X)
	r.ystats.SetState(st.Y)
}

// RegressionFromState returns a Regression restored from st.
func RegressionFromState(st RegressionState) *Regression {
	r := &Regression{}
	r.SetState(st)
	return r
}
