package ml

import (
	"path/filepath"
	"sync"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu               sync.Mutex
	predictions      int
	churn            int
	failures         int
	rejections       int
	latencySum       float64
	modelAge         float64
	predictionScores []float64
}

func (m *MockMetrics) MLPredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) MLChurnPredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.churn++
}

func (m *MockMetrics) MLFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) MLRejectionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections++
}

func (m *MockMetrics) MLLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) MLModelAgeSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelAge = v
}

func (m *MockMetrics) MLPredictionScoresObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictionScores = append(m.predictionScores, v)
}

// stubStandardizer returns a fixed output for inputs of the right width.
type stubStandardizer struct {
	dim int
	out []float64
}

func (s stubStandardizer) InputDim() int { return s.dim }

func (s stubStandardizer) Transform(x []float64) ([]float64, error) {
	if len(x) != s.dim {
		return nil, &DimensionMismatchError{Stage: "standardizer", Expected: s.dim, Got: len(x)}
	}
	return s.out, nil
}

type stubReducer struct {
	in, outDim int
	out        []float64
}

func (s stubReducer) InputDim() int  { return s.in }
func (s stubReducer) OutputDim() int { return s.outDim }

func (s stubReducer) Transform(x []float64) ([]float64, error) {
	if len(x) != s.in {
		return nil, &DimensionMismatchError{Stage: "reducer", Expected: s.in, Got: len(x)}
	}
	return s.out, nil
}

type stubClassifier struct {
	dim   int
	label bool
	prob  float64
}

func (s stubClassifier) InputDim() int { return s.dim }

func (s stubClassifier) PredictWithProbability(x []float64) (bool, float64, error) {
	if len(x) != s.dim {
		return false, 0, &DimensionMismatchError{Stage: "classifier", Expected: s.dim, Got: len(x)}
	}
	return s.label, s.prob, nil
}

func testdataPaths() ArtifactPaths {
	return ArtifactPaths{
		Scaler:     filepath.Join("testdata", "scaler.json"),
		Reducer:    filepath.Join("testdata", "pca.json"),
		Classifier: filepath.Join("testdata", "stacking.json"),
		Schema:     filepath.Join("testdata", "feature_names.json"),
		Metadata:   filepath.Join("testdata", "model_metadata.json"),
	}
}
