package series

import (
	"fmt"
	"regexp"
	"time"
)

// Kind selects the accumulator backing a series.
type Kind string

const (
	KindStatistics            Kind = "statistics"
	KindRegression            Kind = "regression"
	KindExponential           Kind = "exponential"
	KindExponentialCovariance Kind = "exponential_covariance"
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindStatistics, KindRegression, KindExponential, KindExponentialCovariance}

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Arity is the number of values in one sample: 1 for univariate kinds,
// 2 for (x, y) kinds.
func (k Kind) Arity() int {
	switch k {
	case KindRegression, KindExponentialCovariance:
		return 2
	default:
		return 1
	}
}

// Exponential reports whether k decays old samples.
func (k Kind) Exponential() bool {
	return k == KindExponential || k == KindExponentialCovariance
}

var nameRE = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,128}$`)

// ValidateName checks a series name.
func ValidateName(name string) error {
	if !nameRE.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Spec describes a series to create. Decay and the seed values apply to
// exponential kinds only; a zero Decay selects series.default_decay.
type Spec struct {
	Name         string  `json:"name" example:"api.latency"`
	Kind         Kind    `json:"kind" example:"statistics"`
	Decay        float64 `json:"decay,omitempty" example:"0.9"`
	DelaySeconds float64 `json:"delay_seconds,omitempty" example:"60"`
	Mean         float64 `json:"mean,omitempty"`
	Variance     float64 `json:"variance,omitempty"`
	MeanY        float64 `json:"mean_y,omitempty"`
	VarianceY    float64 `json:"variance_y,omitempty"`
	Covariance   float64 `json:"covariance,omitempty"`
}

// Delay returns DelaySeconds as a duration.
func (s Spec) Delay() time.Duration {
	return time.Duration(s.DelaySeconds * float64(time.Second))
}
