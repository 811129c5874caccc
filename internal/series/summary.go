package series

import (
	"bytes"
	"math"
	"strconv"
	"time"
)

// Value is a float64 that encodes NaN and ±Inf as JSON null.
type Value float64

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler; null decodes to NaN.
func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*v = Value(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*v = Value(f)
	return nil
}

// Finite reports whether v is neither NaN nor infinite.
func (v Value) Finite() bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Summary is a point-in-time view of a series. Exactly one of the kind
// sections is set.
type Summary struct {
	Name        string              `json:"name" example:"api.latency"`
	Kind        Kind                `json:"kind" example:"statistics"`
	Samples     int64               `json:"samples" example:"1024"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Statistics  *StatisticsSummary  `json:"statistics,omitempty"`
	Regression  *RegressionSummary  `json:"regression,omitempty"`
	Exponential *ExponentialSummary `json:"exponential,omitempty"`
	Covariance  *CovarianceSummary  `json:"covariance,omitempty"`

	// Seq orders published summaries. Zero on summaries read directly
	// from the manager.
	Seq uint64 `json:"-"`
}

// StatisticsSummary reports a moment accumulator. Variance and StdDev
// use one delta degree of freedom.
type StatisticsSummary struct {
	Count    Value `json:"count" swaggertype:"number"`
	Mean     Value `json:"mean" swaggertype:"number"`
	Variance Value `json:"variance" swaggertype:"number"`
	StdDev   Value `json:"stddev" swaggertype:"number"`
	Skewness Value `json:"skewness" swaggertype:"number"`
	Kurtosis Value `json:"kurtosis" swaggertype:"number"`
	Min      Value `json:"min" swaggertype:"number"`
	Max      Value `json:"max" swaggertype:"number"`
}

// RegressionSummary reports a linear regression of y on x.
type RegressionSummary struct {
	Count       Value             `json:"count" swaggertype:"number"`
	Slope       Value             `json:"slope" swaggertype:"number"`
	Intercept   Value             `json:"intercept" swaggertype:"number"`
	Correlation Value             `json:"correlation" swaggertype:"number"`
	X           StatisticsSummary `json:"x"`
	Y           StatisticsSummary `json:"y"`
}

// ExponentialSummary reports an exponentially weighted accumulator.
type ExponentialSummary struct {
	Decay        Value   `json:"decay" swaggertype:"number"`
	Mean         Value   `json:"mean" swaggertype:"number"`
	Variance     Value   `json:"variance" swaggertype:"number"`
	StdDev       Value   `json:"stddev" swaggertype:"number"`
	DelaySeconds float64 `json:"delay_seconds,omitempty"`
	Frozen       bool    `json:"frozen,omitempty"`
}

// CovarianceSummary reports an exponentially weighted covariance.
type CovarianceSummary struct {
	Decay        Value              `json:"decay" swaggertype:"number"`
	Covariance   Value              `json:"covariance" swaggertype:"number"`
	Correlation  Value              `json:"correlation" swaggertype:"number"`
	DelaySeconds float64            `json:"delay_seconds,omitempty"`
	Frozen       bool               `json:"frozen,omitempty"`
	X            ExponentialSummary `json:"x"`
	Y            ExponentialSummary `json:"y"`
}
