package series

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports per-series gauges computed from manager summaries at
// scrape time.
type Collector struct {
	manager *Manager

	count       *prometheus.Desc
	mean        *prometheus.Desc
	stddev      *prometheus.Desc
	min         *prometheus.Desc
	max         *prometheus.Desc
	slope       *prometheus.Desc
	intercept   *prometheus.Desc
	correlation *prometheus.Desc
	covariance  *prometheus.Desc
	total       *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a Collector reading from m.
func NewCollector(m *Manager) *Collector {
	labels := []string{"series", "kind"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("runstats_series_"+name, help, labels, nil)
	}
	return &Collector{
		manager:     m,
		count:       desc("count", "Weighted sample count of the series."),
		mean:        desc("mean", "Mean of the series (x for bivariate kinds)."),
		stddev:      desc("stddev", "Standard deviation of the series (x for bivariate kinds)."),
		min:         desc("min", "Smallest value pushed to the series."),
		max:         desc("max", "Largest value pushed to the series."),
		slope:       desc("slope", "Least-squares slope of a regression series."),
		intercept:   desc("intercept", "Least-squares intercept of a regression series."),
		correlation: desc("correlation", "Correlation of a bivariate series."),
		covariance:  desc("covariance", "Exponentially weighted covariance."),
		total:       prometheus.NewDesc("runstats_series_total", "Number of registered series.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.count, c.mean, c.stddev, c.min, c.max,
		c.slope, c.intercept, c.correlation, c.covariance, c.total,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector. Non-finite values are skipped.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	sums := c.manager.List()
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(len(sums)))

	for i := range sums {
		s := &sums[i]
		emit := func(d *prometheus.Desc, v Value) {
			if !v.Finite() {
				return
			}
			ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v), s.Name, string(s.Kind))
		}

		switch {
		case s.Statistics != nil:
			st := s.Statistics
			emit(c.count, st.Count)
			emit(c.mean, st.Mean)
			emit(c.stddev, st.StdDev)
			emit(c.min, st.Min)
			emit(c.max, st.Max)
		case s.Regression != nil:
			rg := s.Regression
			emit(c.count, rg.Count)
			emit(c.mean, rg.X.Mean)
			emit(c.stddev, rg.X.StdDev)
			emit(c.min, rg.X.Min)
			emit(c.max, rg.X.Max)
			emit(c.slope, rg.Slope)
			emit(c.intercept, rg.Intercept)
			emit(c.correlation, rg.Correlation)
		case s.Exponential != nil:
			emit(c.mean, s.Exponential.Mean)
			emit(c.stddev, s.Exponential.StdDev)
		case s.Covariance != nil:
			cv := s.Covariance
			emit(c.mean, cv.X.Mean)
			emit(c.stddev, cv.X.StdDev)
			emit(c.correlation, cv.Correlation)
			emit(c.covariance, cv.Covariance)
		}
	}
}
