package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// Artifact names used in errors and logs
const (
	ArtifactScaler     = "scaler"
	ArtifactReducer    = "reducer"
	ArtifactClassifier = "classifier"
	ArtifactSchema     = "feature_names"
	ArtifactMetadata   = "metadata"
)

// ModelMetadata contains information about the loaded model
type ModelMetadata struct {
	Version       string    `json:"version"`
	TrainedAt     time.Time `json:"trained_at"`
	Accuracy      float64   `json:"accuracy"`
	TrainingRows  int       `json:"training_rows"`
	ValidationAcc float64   `json:"validation_accuracy"`
}

// ArtifactPaths locates the exported training artifacts. Metadata is optional.
type ArtifactPaths struct {
	Scaler     string
	Reducer    string
	Classifier string
	Schema     string
	Metadata   string
}

// Artifacts is the process-wide, read-only model state. Build it once with
// LoadArtifacts and pass it to every prediction.
type Artifacts struct {
	Standardizer Standardizer
	Reducer      Reducer
	Classifier   Classifier
	Schema       []string
	Metadata     ModelMetadata
	ModelCreated time.Time
}

// LoadArtifacts reads and cross-checks every artifact. Any failure is an
// ArtifactUnavailableError and the process must not serve predictions.
func LoadArtifacts(paths ArtifactPaths, threshold float64) (*Artifacts, error) {
	var scalerParams ScalerParams
	if err := decodeArtifact(ArtifactScaler, paths.Scaler, &scalerParams); err != nil {
		return nil, err
	}
	scaler, err := NewStandardScaler(scalerParams)
	if err != nil {
		return nil, &ArtifactUnavailableError{Artifact: ArtifactScaler, Path: paths.Scaler, Err: err}
	}

	var pcaParams PCAParams
	if err := decodeArtifact(ArtifactReducer, paths.Reducer, &pcaParams); err != nil {
		return nil, err
	}
	pca, err := NewPCA(pcaParams)
	if err != nil {
		return nil, &ArtifactUnavailableError{Artifact: ArtifactReducer, Path: paths.Reducer, Err: err}
	}

	var stackParams StackingParams
	if err := decodeArtifact(ArtifactClassifier, paths.Classifier, &stackParams); err != nil {
		return nil, err
	}
	clf, err := NewStackingClassifier(stackParams)
	if err != nil {
		return nil, &ArtifactUnavailableError{Artifact: ArtifactClassifier, Path: paths.Classifier, Err: err}
	}
	if threshold != 0 {
		if clf, err = clf.WithThreshold(threshold); err != nil {
			return nil, &ArtifactUnavailableError{Artifact: ArtifactClassifier, Path: paths.Classifier, Err: err}
		}
	}

	var schema []string
	if err := decodeArtifact(ArtifactSchema, paths.Schema, &schema); err != nil {
		return nil, err
	}

	a := &Artifacts{
		Standardizer: scaler,
		Reducer:      pca,
		Classifier:   clf,
		Schema:       schema,
		Metadata:     loadModelMetadata(paths.Metadata),
	}
	if info, err := os.Stat(paths.Classifier); err == nil {
		a.ModelCreated = info.ModTime()
	}

	if err := a.Check(); err != nil {
		return nil, err
	}

	if names := scaler.FeatureNames(); len(names) > 0 {
		for i, name := range names {
			if name != schema[i] {
				return nil, &ArtifactUnavailableError{
					Artifact: ArtifactSchema,
					Path:     paths.Schema,
					Err:      fmt.Errorf("position %d is %q but the scaler was fit on %q", i, schema[i], name),
				}
			}
		}
	}

	log.Info().
		Int("features", len(schema)).
		Int("components", pca.OutputDim()).
		Floats64("explained_variance_ratio", pca.ExplainedVarianceRatio()).
		Strs("estimators", clf.EstimatorNames()).
		Float64("threshold", clf.Threshold()).
		Str("version", a.Metadata.Version).
		Msg("model artifacts loaded")

	return a, nil
}

// Check verifies that the stages agree on vector widths. A disagreement is an
// ArtifactUnavailableError wrapping a DimensionMismatchError.
func (a *Artifacts) Check() error {
	if a.Standardizer == nil || a.Reducer == nil || a.Classifier == nil {
		return &ArtifactUnavailableError{Artifact: "pipeline", Err: errors.New("standardizer, reducer and classifier are all required")}
	}
	if len(a.Schema) == 0 {
		return &ArtifactUnavailableError{Artifact: ArtifactSchema, Err: errors.New("feature schema is empty")}
	}

	checks := []struct {
		artifact string
		mismatch *DimensionMismatchError
	}{
		{ArtifactScaler, &DimensionMismatchError{Stage: "standardizer", Expected: len(a.Schema), Got: a.Standardizer.InputDim()}},
		{ArtifactReducer, &DimensionMismatchError{Stage: "reducer", Expected: a.Standardizer.InputDim(), Got: a.Reducer.InputDim()}},
		{ArtifactClassifier, &DimensionMismatchError{Stage: "classifier", Expected: a.Reducer.OutputDim(), Got: a.Classifier.InputDim()}},
	}
	for _, c := range checks {
		if c.mismatch.Expected != c.mismatch.Got {
			return &ArtifactUnavailableError{Artifact: c.artifact, Err: c.mismatch}
		}
	}
	return nil
}

func decodeArtifact(name, path string, v any) error {
	if path == "" {
		return &ArtifactUnavailableError{Artifact: name, Err: errors.New("no path configured")}
	}
	file, err := os.Open(path)
	if err != nil {
		return &ArtifactUnavailableError{Artifact: name, Path: path, Err: err}
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &ArtifactUnavailableError{Artifact: name, Path: path, Err: fmt.Errorf("decode: %w", err)}
	}

	log.Debug().Str("artifact", name).Str("path", path).Msg("artifact decoded")
	return nil
}

// loadModelMetadata is best effort: metadata only feeds /model/info.
func loadModelMetadata(path string) ModelMetadata {
	fallback := ModelMetadata{Version: "unknown"}
	if path == "" {
		return fallback
	}

	file, err := os.Open(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to load model metadata, using defaults")
		return fallback
	}
	defer file.Close()

	var md ModelMetadata
	if err := json.NewDecoder(file).Decode(&md); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to decode model metadata, using defaults")
		return fallback
	}
	if md.Version == "" {
		md.Version = "unknown"
	}
	return md
}
