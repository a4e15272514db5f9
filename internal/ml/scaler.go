package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ScalerParams is the exported form of a fitted standard scaler.
type ScalerParams struct {
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
	FeatureNames []string  `json:"feature_names,omitempty"`
}

// StandardScaler subtracts the training mean and divides by the training
// scale, feature by feature.
type StandardScaler struct {
	mean  []float64
	scale []float64
	names []string
}

// NewStandardScaler validates params. Zero scale entries belong to constant
// training columns and are treated as 1.
func NewStandardScaler(params ScalerParams) (*StandardScaler, error) {
	if len(params.Mean) == 0 {
		return nil, fmt.Errorf("scaler has no features")
	}
	if len(params.Mean) != len(params.Scale) {
		return nil, fmt.Errorf("scaler mean has %d entries but scale has %d", len(params.Mean), len(params.Scale))
	}
	if len(params.FeatureNames) != 0 && len(params.FeatureNames) != len(params.Mean) {
		return nil, fmt.Errorf("scaler names %d features but was fit on %d", len(params.FeatureNames), len(params.Mean))
	}

	scale := make([]float64, len(params.Scale))
	for i, s := range params.Scale {
		if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
			return nil, fmt.Errorf("scaler scale %d is invalid: %v", i, s)
		}
		if math.IsNaN(params.Mean[i]) || math.IsInf(params.Mean[i], 0) {
			return nil, fmt.Errorf("scaler mean %d is invalid: %v", i, params.Mean[i])
		}
		if s == 0 {
			s = 1
		}
		scale[i] = s
	}

	mean := make([]float64, len(params.Mean))
	copy(mean, params.Mean)

	return &StandardScaler{mean: mean, scale: scale, names: params.FeatureNames}, nil
}

func (s *StandardScaler) InputDim() int { return len(s.mean) }

// FeatureNames returns the column names recorded with the scaler, if any.
func (s *StandardScaler) FeatureNames() []string { return s.names }

func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.mean) {
		return nil, &DimensionMismatchError{Stage: "standardizer", Expected: len(s.mean), Got: len(x)}
	}
	out := make([]float64, len(x))
	floats.SubTo(out, x, s.mean)
	floats.Div(out, s.scale)
	return out, nil
}
