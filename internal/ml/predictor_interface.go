// Package ml provides the churn inference pipeline: a pre-fit standardizer,
// a pre-fit dimensionality reducer and a pre-fit stacking classifier applied
// in sequence to a feature vector.
//
// Nothing in this package fits a model. Every transform is loaded once from
// exported artifacts and is read-only afterwards, so a Pipeline is safe to
// share between goroutines.
package ml

// Standardizer rescales each feature with the per-feature parameters fixed at
// training time.
type Standardizer interface {
	// InputDim is the vector width the standardizer was fit on.
	InputDim() int

	// Transform returns a new scaled vector. x is not modified.
	Transform(x []float64) ([]float64, error)
}

// Reducer projects a scaled vector onto a smaller set of fixed directions.
type Reducer interface {
	InputDim() int
	OutputDim() int
	Transform(x []float64) ([]float64, error)
}

// Classifier produces the churn decision for a projected vector.
type Classifier interface {
	InputDim() int

	// PredictWithProbability returns the hard decision and the probability of
	// the positive (churn) class.
	PredictWithProbability(x []float64) (bool, float64, error)
}

// MetricsInterface defines metrics methods needed by the predictor
type MetricsInterface interface {
	MLPredictionsInc()
	MLChurnPredictionsInc()
	MLFailuresInc()
	MLRejectionsInc()
	MLLatencyObserve(float64)
	MLModelAgeSet(float64)
	MLPredictionScoresObserve(float64)
}
