package ml

import (
	"errors"
	"fmt"
	"math"
	"time"

	"churn-predictor/internal/common"
	"churn-predictor/internal/features"

	"github.com/rs/zerolog/log"
)

// PredictionResult is the outcome shown to the user for one customer.
type PredictionResult struct {
	Churn       bool    `json:"churn"`
	Probability float64 `json:"probability"`
}

// Percent formats the churn probability the way the form displays it.
func (r PredictionResult) Percent() string {
	return fmt.Sprintf("%.2f%%", r.Probability*100)
}

func (r PredictionResult) Verdict() string {
	if r.Churn {
		return "Yes"
	}
	return "No"
}

func (r PredictionResult) RiskMessage() string {
	if r.Churn {
		return common.MsgHighRisk
	}
	return common.MsgLowRisk
}

// Pipeline chains the three pre-fit stages. It holds no mutable state.
type Pipeline struct {
	standardizer Standardizer
	reducer      Reducer
	classifier   Classifier
}

func NewPipeline(a *Artifacts) *Pipeline {
	return &Pipeline{
		standardizer: a.Standardizer,
		reducer:      a.Reducer,
		classifier:   a.Classifier,
	}
}

// Predict runs one feature vector through the artifacts.
func Predict(vector []float64, a *Artifacts) (PredictionResult, error) {
	return NewPipeline(a).Predict(vector)
}

// Predict scales, projects and classifies one feature vector.
func (p *Pipeline) Predict(vector []float64) (PredictionResult, error) {
	scaled, err := p.standardizer.Transform(vector)
	if err != nil {
		return PredictionResult{}, fmt.Errorf("standardize: %w", err)
	}
	projected, err := p.reducer.Transform(scaled)
	if err != nil {
		return PredictionResult{}, fmt.Errorf("reduce: %w", err)
	}
	label, prob, err := p.classifier.PredictWithProbability(projected)
	if err != nil {
		return PredictionResult{}, fmt.Errorf("classify: %w", err)
	}
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return PredictionResult{}, fmt.Errorf("classifier returned probability %v outside [0, 1]", prob)
	}
	return PredictionResult{Churn: label, Probability: prob}, nil
}

// PredictBatch predicts each row independently. The first failing row aborts
// the batch; no partial results are returned.
func (p *Pipeline) PredictBatch(vectors [][]float64) ([]PredictionResult, error) {
	out := make([]PredictionResult, len(vectors))
	for i, v := range vectors {
		r, err := p.Predict(v)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

// ChurnPredictor joins the feature layout of the training schema with the
// pipeline, taking a raw profile all the way to a result.
type ChurnPredictor struct {
	layout    *features.Layout
	pipeline  *Pipeline
	artifacts *Artifacts
	metrics   MetricsInterface
}

// NewChurnPredictor resolves the artifact schema against the feature builder.
// A schema the builder cannot satisfy fails with features.SchemaMismatchError.
func NewChurnPredictor(a *Artifacts, metrics MetricsInterface) (*ChurnPredictor, error) {
	if err := a.Check(); err != nil {
		return nil, err
	}
	layout, err := features.Compile(a.Schema)
	if err != nil {
		return nil, fmt.Errorf("compile feature schema: %w", err)
	}

	cp := &ChurnPredictor{
		layout:    layout,
		pipeline:  NewPipeline(a),
		artifacts: a,
		metrics:   metrics,
	}

	if metrics != nil && !a.ModelCreated.IsZero() {
		metrics.MLModelAgeSet(time.Since(a.ModelCreated).Seconds())
	}
	return cp, nil
}

func (cp *ChurnPredictor) Artifacts() *Artifacts { return cp.artifacts }

// FeatureNames returns the schema order vectors are built in.
func (cp *ChurnPredictor) FeatureNames() []string { return cp.layout.Names() }

// Vector validates and builds the feature vector for p without predicting.
func (cp *ChurnPredictor) Vector(p features.RawCustomerProfile) ([]float64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return cp.layout.Build(p), nil
}

// PredictProfile validates p, builds its feature vector and predicts.
func (cp *ChurnPredictor) PredictProfile(p features.RawCustomerProfile) (PredictionResult, error) {
	start := time.Now()
	defer func() {
		if cp.metrics != nil {
			cp.metrics.MLLatencyObserve(time.Since(start).Seconds())
		}
	}()

	vec, err := cp.Vector(p)
	if err != nil {
		if cp.metrics != nil {
			cp.metrics.MLRejectionsInc()
		}
		return PredictionResult{}, err
	}

	result, err := cp.pipeline.Predict(vec)
	if err != nil {
		cp.recordFailure(err)
		return PredictionResult{}, err
	}

	log.Debug().
		Floats64("features", vec).
		Bool("churn", result.Churn).
		Float64("probability", result.Probability).
		Msg("prediction successful")

	if cp.metrics != nil {
		cp.metrics.MLPredictionsInc()
		cp.metrics.MLPredictionScoresObserve(result.Probability)
		if result.Churn {
			cp.metrics.MLChurnPredictionsInc()
		}
	}
	return result, nil
}

// PredictProfiles predicts a batch. Any invalid profile rejects the batch.
func (cp *ChurnPredictor) PredictProfiles(profiles []features.RawCustomerProfile) ([]PredictionResult, error) {
	out := make([]PredictionResult, len(profiles))
	for i, p := range profiles {
		r, err := cp.PredictProfile(p)
		if err != nil {
			return nil, fmt.Errorf("profile %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

func (cp *ChurnPredictor) recordFailure(err error) {
	if cp.metrics != nil {
		cp.metrics.MLFailuresInc()
	}

	var dim *DimensionMismatchError
	if errors.As(err, &dim) {
		log.Error().
			Err(err).
			Str("stage", dim.Stage).
			Int("expected", dim.Expected).
			Int("got", dim.Got).
			Msg("prediction failed: artifact and schema dimensions disagree")
		return
	}
	log.Error().Err(err).Msg("prediction failed")
}
