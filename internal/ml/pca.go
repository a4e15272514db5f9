package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// PCAParams is the exported form of a fitted PCA.
type PCAParams struct {
	Mean              []float64   `json:"mean"`
	Components        [][]float64 `json:"components"`
	ExplainedVariance []float64   `json:"explained_variance"`
	Whiten            bool        `json:"whiten"`
}

// PCA projects onto the principal axes found at training time:
// (x - mean) . components^T, optionally whitened.
type PCA struct {
	mean       *mat.VecDense
	components *mat.Dense // k x n
	explained  []float64
	whiten     bool
}

func NewPCA(params PCAParams) (*PCA, error) {
	n := len(params.Mean)
	k := len(params.Components)
	if n == 0 {
		return nil, fmt.Errorf("pca has no input features")
	}
	if k == 0 {
		return nil, fmt.Errorf("pca has no components")
	}
	if len(params.ExplainedVariance) != k {
		return nil, fmt.Errorf("pca has %d components but %d explained variances", k, len(params.ExplainedVariance))
	}

	data := make([]float64, 0, k*n)
	for i, row := range params.Components {
		if len(row) != n {
			return nil, fmt.Errorf("pca component %d has width %d, expected %d", i, len(row), n)
		}
		data = append(data, row...)
	}

	for i, v := range params.ExplainedVariance {
		if math.IsNaN(v) || v < 0 {
			return nil, fmt.Errorf("pca explained variance %d is invalid: %v", i, v)
		}
		if params.Whiten && v == 0 {
			return nil, fmt.Errorf("pca explained variance %d is zero, cannot whiten", i)
		}
		if i > 0 && v > params.ExplainedVariance[i-1] {
			return nil, fmt.Errorf("pca components are not ordered by explained variance at %d", i)
		}
	}

	mean := make([]float64, n)
	copy(mean, params.Mean)
	explained := make([]float64, k)
	copy(explained, params.ExplainedVariance)

	return &PCA{
		mean:       mat.NewVecDense(n, mean),
		components: mat.NewDense(k, n, data),
		explained:  explained,
		whiten:     params.Whiten,
	}, nil
}

func (p *PCA) InputDim() int  { return p.mean.Len() }
func (p *PCA) OutputDim() int { return len(p.explained) }

// ExplainedVarianceRatio returns each component's share of the variance the
// kept components explain.
func (p *PCA) ExplainedVarianceRatio() []float64 {
	var total float64
	for _, v := range p.explained {
		total += v
	}
	out := make([]float64, len(p.explained))
	if total == 0 {
		return out
	}
	for i, v := range p.explained {
		out[i] = v / total
	}
	return out
}

func (p *PCA) Transform(x []float64) ([]float64, error) {
	n := p.InputDim()
	if len(x) != n {
		return nil, &DimensionMismatchError{Stage: "reducer", Expected: n, Got: len(x)}
	}

	centered := mat.NewVecDense(n, nil)
	centered.SubVec(mat.NewVecDense(n, x), p.mean)

	var projected mat.VecDense
	projected.MulVec(p.components, centered)

	out := make([]float64, projected.Len())
	for i := range out {
		out[i] = projected.AtVec(i)
		if p.whiten {
			out[i] /= math.Sqrt(p.explained[i])
		}
	}
	return out, nil
}
