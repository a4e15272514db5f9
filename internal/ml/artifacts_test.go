package ml

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"churn-predictor/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyTestdata copies the testdata artifacts into a fresh directory so a
// test can corrupt one of them.
func copyTestdata(t *testing.T) (string, ArtifactPaths) {
	t.Helper()
	dir := t.TempDir()
	src := testdataPaths()
	for _, p := range []string{src.Scaler, src.Reducer, src.Classifier, src.Schema, src.Metadata} {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, filepath.Base(p)), data, 0o644))
	}
	return dir, ArtifactPaths{
		Scaler:     filepath.Join(dir, "scaler.json"),
		Reducer:    filepath.Join(dir, "pca.json"),
		Classifier: filepath.Join(dir, "stacking.json"),
		Schema:     filepath.Join(dir, "feature_names.json"),
		Metadata:   filepath.Join(dir, "model_metadata.json"),
	}
}

func TestLoadArtifacts_Testdata(t *testing.T) {
	a, err := LoadArtifacts(testdataPaths(), 0)
	require.NoError(t, err)

	assert.Equal(t, features.Names(), a.Schema)
	assert.Equal(t, 15, a.Standardizer.InputDim())
	assert.Equal(t, 15, a.Reducer.InputDim())
	assert.Equal(t, 3, a.Reducer.OutputDim())
	assert.Equal(t, 3, a.Classifier.InputDim())
	assert.Equal(t, "20240612-101500", a.Metadata.Version)
	assert.Equal(t, 8000, a.Metadata.TrainingRows)
	assert.False(t, a.ModelCreated.IsZero())
}

func TestLoadArtifacts_MissingMetadataIsTolerated(t *testing.T) {
	paths := testdataPaths()
	paths.Metadata = filepath.Join(t.TempDir(), "absent.json")

	a, err := LoadArtifacts(paths, 0)
	require.NoError(t, err)
	assert.Equal(t, "unknown", a.Metadata.Version)
}

func TestLoadArtifacts_Unavailable(t *testing.T) {
	testCases := []struct {
		name     string
		corrupt  func(t *testing.T, paths *ArtifactPaths)
		artifact string
	}{
		{
			name:     "missing scaler",
			corrupt:  func(t *testing.T, paths *ArtifactPaths) { require.NoError(t, os.Remove(paths.Scaler)) },
			artifact: ArtifactScaler,
		},
		{
			name:     "no reducer path",
			corrupt:  func(t *testing.T, paths *ArtifactPaths) { paths.Reducer = "" },
			artifact: ArtifactReducer,
		},
		{
			name: "corrupt classifier",
			corrupt: func(t *testing.T, paths *ArtifactPaths) {
				require.NoError(t, os.WriteFile(paths.Classifier, []byte(`{"estimators": [`), 0o644))
			},
			artifact: ArtifactClassifier,
		},
		{
			name: "unknown field in reducer",
			corrupt: func(t *testing.T, paths *ArtifactPaths) {
				require.NoError(t, os.WriteFile(paths.Reducer, []byte(`{"n_components_": 3}`), 0o644))
			},
			artifact: ArtifactReducer,
		},
		{
			name: "schema not a list",
			corrupt: func(t *testing.T, paths *ArtifactPaths) {
				require.NoError(t, os.WriteFile(paths.Schema, []byte(`{"names": []}`), 0o644))
			},
			artifact: ArtifactSchema,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, paths := copyTestdata(t)
			tc.corrupt(t, &paths)

			_, err := LoadArtifacts(paths, 0)
			require.Error(t, err)

			var unavailable *ArtifactUnavailableError
			require.True(t, errors.As(err, &unavailable))
			assert.Equal(t, tc.artifact, unavailable.Artifact)
		})
	}
}

func TestLoadArtifacts_SchemaWidthDrift(t *testing.T) {
	_, paths := copyTestdata(t)
	require.NoError(t, os.WriteFile(paths.Schema, []byte(`["CreditScore", "Age"]`), 0o644))

	_, err := LoadArtifacts(paths, 0)
	require.Error(t, err)

	var unavailable *ArtifactUnavailableError
	require.True(t, errors.As(err, &unavailable))
	var dim *DimensionMismatchError
	require.True(t, errors.As(err, &dim))
	assert.Equal(t, 2, dim.Expected)
	assert.Equal(t, 15, dim.Got)
}

func TestLoadArtifacts_SchemaOrderDisagreesWithScaler(t *testing.T) {
	_, paths := copyTestdata(t)
	names := features.Names()
	names[0], names[1] = names[1], names[0]
	data := `["` + names[0]
	for _, n := range names[1:] {
		data += `", "` + n
	}
	data += `"]`
	require.NoError(t, os.WriteFile(paths.Schema, []byte(data), 0o644))

	_, err := LoadArtifacts(paths, 0)
	var unavailable *ArtifactUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, ArtifactSchema, unavailable.Artifact)
}

func TestLoadArtifacts_InvalidThresholdOverride(t *testing.T) {
	_, err := LoadArtifacts(testdataPaths(), 1.2)
	var unavailable *ArtifactUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, ArtifactClassifier, unavailable.Artifact)
}

func TestArtifacts_Check(t *testing.T) {
	a := stubArtifacts(0.5, false)
	require.NoError(t, a.Check())

	a.Classifier = stubClassifier{dim: 5}
	err := a.Check()
	var dim *DimensionMismatchError
	require.True(t, errors.As(err, &dim))
	assert.Equal(t, "classifier", dim.Stage)

	assert.Error(t, (&Artifacts{Schema: features.Names()}).Check())
}
