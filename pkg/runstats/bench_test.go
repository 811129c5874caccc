package runstats

import "testing"

func BenchmarkStatistics_Push(b *testing.B) {
	s := NewStatistics()
	for i := 0; i < b.N; i++ {
		s.Push(float64(i))
	}
}

func BenchmarkStatistics_Merge(b *testing.B) {
	a := NewStatistics(randomValues(0, 1000)...)
	c := NewStatistics(randomValues(1, 1000)...)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.Add(c)
	}
}

func BenchmarkRegression_Push(b *testing.B) {
	r := NewRegression()
	for i := 0; i < b.N; i++ {
		x := float64(i)
		r.Push(x, 2*x+1)
	}
}

func BenchmarkExponentialStatistics_Push(b *testing.B) {
	e, _ := NewExponentialStatistics(0.9)
	for i := 0; i < b.N; i++ {
		e.Push(float64(i))
	}
}

func BenchmarkExponentialCovariance_Push(b *testing.B) {
	c, _ := NewExponentialCovariance(0.9)
	for i := 0; i < b.N; i++ {
		x := float64(i)
		c.Push(x, -x)
	}
}
