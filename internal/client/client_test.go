package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"churn-predictor/internal/features"
	"churn-predictor/internal/ml"
	"churn-predictor/internal/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := filepath.Join("..", "ml", "testdata")
	a, err := ml.LoadArtifacts(ml.ArtifactPaths{
		Scaler:     filepath.Join(dir, "scaler.json"),
		Reducer:    filepath.Join(dir, "pca.json"),
		Classifier: filepath.Join(dir, "stacking.json"),
		Schema:     filepath.Join(dir, "feature_names.json"),
		Metadata:   filepath.Join(dir, "model_metadata.json"),
	}, 0)
	require.NoError(t, err)

	predictor, err := ml.NewChurnPredictor(a, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(server.New(predictor, server.Options{}).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_Predict(t *testing.T) {
	ts := newTestServer(t)
	c := New(ts.URL+"/", time.Second)

	resp, err := c.Predict(context.Background(), features.DefaultProfile())
	require.NoError(t, err)
	assert.False(t, resp.Churn)
	assert.InDelta(t, 0.2549634793084928, resp.Probability, 1e-9)
	assert.Equal(t, "No", resp.Verdict)
	assert.Equal(t, "20240612-101500", resp.ModelVersion)
}

func TestClient_PredictRejected(t *testing.T) {
	ts := newTestServer(t)
	c := New(ts.URL, time.Second)

	p := features.DefaultProfile()
	p.Age = 17
	p.NumOfProducts = 0

	_, err := c.Predict(context.Background(), p)
	require.Error(t, err)

	var validation *features.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Len(t, validation.Problems, 2)
}

func TestClient_PredictBatch(t *testing.T) {
	ts := newTestServer(t)
	c := New(ts.URL, time.Second)

	second := features.DefaultProfile()
	second.Geography = features.Germany
	second.Gender = features.Female

	resp, err := c.PredictBatch(context.Background(), []features.RawCustomerProfile{features.DefaultProfile(), second})
	require.NoError(t, err)
	require.Len(t, resp.Predictions, 2)
	assert.InDelta(t, 0.2549634793084928, resp.Predictions[0].Probability, 1e-9)
}

func TestClient_HealthAndModelInfo(t *testing.T) {
	ts := newTestServer(t)
	c := New(ts.URL, 0)

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 15, health.Features)

	info, err := c.ModelInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, features.Names(), info.Features)
	assert.Equal(t, 3, info.Components)
}

func TestClient_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "model artifacts are incompatible with this service"}`))
	}))
	defer ts.Close()

	_, err := New(ts.URL, time.Second).Predict(context.Background(), features.DefaultProfile())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Contains(t, apiErr.Message, "incompatible")
}

func TestClient_PlainTextError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := New(ts.URL, time.Second).Health(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream unavailable", apiErr.Message)
}

func TestClient_CancelledContext(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(ts.URL, time.Second).Predict(ctx, features.DefaultProfile())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
