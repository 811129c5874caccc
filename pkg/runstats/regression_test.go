package runstats

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func linePoints(seed int64, from, to int, slope, intercept, noise float64) []Point {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]Point, 0, to-from)
	for i := from; i < to; i++ {
		x := float64(i)
		pts = append(pts, Point{X: x, Y: slope*x + intercept + noise*(0.5-rng.Float64())})
	}
	return pts
}

func split(pts []Point) (xs, ys []float64) {
	xs = make([]float64, len(pts))
	ys = make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}
	return xs, ys
}

func TestRegression_RecoversLine(t *testing.T) {
	tests := []struct {
		name      string
		noise     float64
		tolerance float64
	}{
		{name: "noisy", noise: 1.0, tolerance: 1e-2},
		{name: "quiet", noise: 1e-3, tolerance: 1e-5},
		{name: "exact", noise: 0, tolerance: 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const slope, intercept = 5.0, 10.0
			pts := linePoints(0, 0, 1000, slope, intercept, tt.noise)
			r := NewRegression(pts...)

			if e := relErr(slope, r.Slope(1)); e > tt.tolerance {
				t.Errorf("Slope(1) = %v, want %v", r.Slope(1), slope)
			}
			if e := relErr(intercept, r.Intercept(1)); e > tt.tolerance {
				t.Errorf("Intercept(1) = %v, want %v", r.Intercept(1), intercept)
			}
		})
	}
}

func TestRegression_MatchesReference(t *testing.T) {
	pts := linePoints(1, 0, 500, -2.5, 3, 50)
	xs, ys := split(pts)
	r := NewRegression(pts...)

	wantIntercept, wantSlope := stat.LinearRegression(xs, ys, nil, false)
	if e := relErr(wantSlope, r.Slope(0)); e > limit {
		t.Errorf("Slope(0) = %v, want %v", r.Slope(0), wantSlope)
	}
	if e := relErr(wantIntercept, r.Intercept(0)); e > 1e-8 {
		t.Errorf("Intercept(0) = %v, want %v", r.Intercept(0), wantIntercept)
	}

	wantCorr := stat.Correlation(xs, ys, nil)
	for _, ddof := range []float64{0, 1} {
		if e := relErr(wantCorr, r.Correlation(ddof)); e > 1e-8 {
			t.Errorf("Correlation(%v) = %v, want %v", ddof, r.Correlation(ddof), wantCorr)
		}
	}

	if r.Len() != len(pts) {
		t.Errorf("Len() = %d, want %d", r.Len(), len(pts))
	}
	if got := r.XStats().Mean(); relErr(stat.Mean(xs, nil), got) > limit {
		t.Errorf("XStats().Mean() = %v, want %v", got, stat.Mean(xs, nil))
	}
	if got := r.YStats().Variance(1); relErr(stat.Variance(ys, nil), got) > 1e-8 {
		t.Errorf("YStats().Variance(1) = %v, want %v", got, stat.Variance(ys, nil))
	}
}

func TestRegression_Merge(t *testing.T) {
	const count = 1000
	first := linePoints(0, 0, count, 5, 10, 1)
	more := linePoints(1, count, 2*count, 5, 10, 1)

	regr := NewRegression(first...)
	regrCopy := regr.Copy()
	for _, p := range more {
		regrCopy.Push(p.X, p.Y)
	}
	regrMore := NewRegression(more...)
	regrSum := regr.Add(regrMore)

	if regrCopy.Len() != 2*count || regrSum.Len() != 2*count {
		t.Fatalf("Len() = %d/%d, want %d", regrCopy.Len(), regrSum.Len(), 2*count)
	}
	if regr.Len() != count {
		t.Errorf("Add modified receiver: Len() = %d, want %d", regr.Len(), count)
	}

	check := func(label string, got *Regression) {
		t.Helper()
		if e := relErr(regrCopy.Slope(1), got.Slope(1)); e > limit {
			t.Errorf("%s Slope(1) = %v, want %v", label, got.Slope(1), regrCopy.Slope(1))
		}
		if e := relErr(regrCopy.Intercept(1), got.Intercept(1)); e > 1e-8 {
			t.Errorf("%s Intercept(1) = %v, want %v", label, got.Intercept(1), regrCopy.Intercept(1))
		}
		if e := relErr(regrCopy.Correlation(1), got.Correlation(1)); e > limit {
			t.Errorf("%s Correlation(1) = %v, want %v", label, got.Correlation(1), regrCopy.Correlation(1))
		}
	}
	check("sum", regrSum)

	regr.Merge(regrMore)
	check("in-place", regr)
	check("reversed", regrMore.Add(NewRegression(first...)))
}

func TestRegression_MergeEmpty(t *testing.T) {
	empty := NewRegression()
	r := NewRegression(linePoints(0, 0, 10, 1, 0, 1)...)

	if !empty.Add(r).Equal(r) {
		t.Error("empty + r != r")
	}
	if !r.Add(empty).Equal(r) {
		t.Error("r + empty != r")
	}
	if sum := empty.Add(NewRegression()); sum.Len() != 0 {
		t.Errorf("empty + empty Len() = %d, want 0", sum.Len())
	}
}

func TestRegression_MergeCancellingWeights(t *testing.T) {
	r := NewRegression(linePoints(0, 0, 10, 1, 0, 1)...)
	if sum := r.Add(r.Mul(-1)); !sum.Equal(r) {
		t.Error("merge with cancelling weights changed the state")
	}
}

func TestRegression_ScaleMatchesSelfMerge(t *testing.T) {
	r := NewRegression(linePoints(2, 0, 100, 3, -1, 5)...)
	scaled := r.Mul(2)
	merged := r.Add(r)

	if scaled.Len() != 200 {
		t.Errorf("Len() = %d, want 200", scaled.Len())
	}
	for _, pair := range [][2]float64{
		{merged.Slope(0), scaled.Slope(0)},
		{merged.Intercept(0), scaled.Intercept(0)},
		{merged.Correlation(0), scaled.Correlation(0)},
	} {
		if e := relErr(pair[0], pair[1]); e > limit {
			t.Errorf("merged = %v, scaled = %v", pair[0], pair[1])
		}
	}
}

func TestRegression_ConstantX(t *testing.T) {
	r := NewRegression(Point{1, 1}, Point{1, 2}, Point{1, 3})
	if got := r.Slope(0); !math.IsNaN(got) && !math.IsInf(got, 0) {
		t.Errorf("Slope(0) with constant x = %v, want NaN or Inf", got)
	}
}

func TestRegression_Equality(t *testing.T) {
	pts := make([]Point, 10)
	for i := range pts {
		pts[i] = Point{X: float64(i), Y: float64(i)}
	}
	regr1 := NewRegression(pts...)
	regr2 := NewRegression(pts...)
	if !regr1.Equal(regr2) {
		t.Fatal("identical streams should be equal")
	}
	regr2.Push(42, 42)
	if regr1.Equal(regr2) {
		t.Error("pushing (42, 42) should break equality")
	}
}

func TestRegression_StateResume(t *testing.T) {
	pts := linePoints(0, 0, 1000, 5, 10, 20)
	tail := len(pts) - 10

	r := NewRegression(pts[:tail]...)
	state := r.State()
	for _, p := range pts[tail:] {
		r.Push(p.X, p.Y)
	}

	restored := RegressionFromState(state)
	for _, p := range pts[tail:] {
		restored.Push(p.X, p.Y)
	}

	if r.Slope(1) != restored.Slope(1) {
		t.Errorf("Slope(1) = %v, want %v", restored.Slope(1), r.Slope(1))
	}
	if r.Intercept(1) != restored.Intercept(1) {
		t.Errorf("Intercept(1) = %v, want %v", restored.Intercept(1), r.Intercept(1))
	}
	if r.Correlation(1) != restored.Correlation(1) {
		t.Errorf("Correlation(1) = %v, want %v", restored.Correlation(1), r.Correlation(1))
	}
	if !r.Equal(RegressionFromState(r.State())) {
		t.Error("RegressionFromState(State()) != original")
	}
}
