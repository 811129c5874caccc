package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/HerbHall/runstats/pkg/runstats"
)

// runSummarize prints running statistics for the values given on the
// command line. The regression and exponential covariance pair each value
// with its 1-based position.
func runSummarize(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("summarize", flag.ContinueOnError)
	fs.SetOutput(w)
	decay := fs.Float64("decay", 0.9, "exponential decay rate in (0, 1)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	values := make([]float64, 0, fs.NArg())
	for _, a := range fs.Args() {
		x, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("parse %q: %w", a, err)
		}
		values = append(values, x)
	}
	if len(values) == 0 {
		return errors.New("at least one value is required")
	}
	return summarize(w, *decay, values)
}

func summarize(w io.Writer, decay float64, values []float64) error {
	exp, err := runstats.NewExponentialStatistics(decay)
	if err != nil {
		return err
	}
	cov, err := runstats.NewExponentialCovariance(decay)
	if err != nil {
		return err
	}
	stats := runstats.NewStatistics()
	regr := runstats.NewRegression()
	for i, x := range values {
		stats.Push(x)
		exp.Push(x)
		regr.Push(float64(i+1), x)
		cov.Push(float64(i+1), x)
	}

	lines := []line{
		{"Count", stats.Count()},
		{"Mean", stats.Mean()},
		{"Variance", stats.Variance(0)},
		{"StdDev", stats.StdDev(0)},
		{"Skewness", stats.Skewness()},
		{"Kurtosis", stats.Kurtosis()},
		{"Minimum", stats.Minimum()},
		{"Maximum", stats.Maximum()},
	}
	if err := printSection(w, "Statistics", lines); err != nil {
		return err
	}
	if err := printSection(w, "\nRegression", []line{
		{"Slope", regr.Slope(0)},
		{"Intercept", regr.Intercept(0)},
		{"Correlation", regr.Correlation(0)},
	}); err != nil {
		return err
	}

	d := strconv.FormatFloat(decay, 'g', -1, 64)
	_, err = fmt.Fprintf(w,
		"\nExponential Moving Mean (decay=%s): %v\n"+
			"Exponential Moving Variance (decay=%s): %v\n"+
			"Exponential Moving StdDev (decay=%s): %v\n"+
			"Exponential Moving Covariance (decay=%s): %v\n"+
			"Exponential Moving Correlation (decay=%s): %v\n",
		d, exp.Mean(),
		d, exp.Variance(),
		d, exp.StdDev(),
		d, cov.Covariance(),
		d, cov.Correlation(),
	)
	return err
}

type line struct {
	label string
	value float64
}

func printSection(w io.Writer, title string, lines []line) error {
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%-12s %v\n", l.label+":", l.value); err != nil {
			return err
		}
	}
	return nil
}
