// Package server exposes the churn predictor over HTTP. It replaces the
// interactive form with a JSON and form-encoded API:
//
//	POST /predict        one profile, JSON or application/x-www-form-urlencoded
//	POST /predict/batch  {"profiles": [...]}
//	GET  /health         liveness and loaded model version
//	GET  /model/info     artifact metadata and feature schema
//	GET  /metrics        Prometheus exposition, when a handler is supplied
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"churn-predictor/internal/features"
	"churn-predictor/internal/ml"
	"churn-predictor/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// Predictor is the part of ml.ChurnPredictor the server needs.
type Predictor interface {
	PredictProfile(features.RawCustomerProfile) (ml.PredictionResult, error)
	PredictProfiles([]features.RawCustomerProfile) ([]ml.PredictionResult, error)
	FeatureNames() []string
	Artifacts() *ml.Artifacts
}

// PredictionStore persists served predictions. storage.Store implements it.
type PredictionStore interface {
	StorePrediction(storage.PredictionRecord) error
}

// Recorder receives per-request serving metrics.
type Recorder interface {
	RequestObserve(route string, code int)
	PredictionLogErrorsInc()
}

type Options struct {
	Port           int
	RequestTimeout time.Duration
	Store          PredictionStore // optional
	Metrics        Recorder        // optional
	MetricsHandler http.Handler    // optional, mounted at /metrics
}

// PredictResponse is the result of one prediction as shown to the user.
type PredictResponse struct {
	Churn        bool    `json:"churn"`
	Probability  float64 `json:"probability"`
	Percent      string  `json:"percent"`
	Verdict      string  `json:"verdict"`
	Message      string  `json:"message"`
	ModelVersion string  `json:"model_version"`
}

type BatchRequest struct {
	Profiles []json.RawMessage `json:"profiles"`
}

type BatchResponse struct {
	Predictions  []PredictResponse `json:"predictions"`
	ModelVersion string            `json:"model_version"`
}

type HealthResponse struct {
	Status       string `json:"status"`
	ModelVersion string `json:"model_version"`
	Features     int    `json:"features"`
}

type ModelInfoResponse struct {
	Version            string    `json:"version"`
	TrainedAt          time.Time `json:"trained_at"`
	Accuracy           float64   `json:"accuracy"`
	ValidationAccuracy float64   `json:"validation_accuracy"`
	TrainingRows       int       `json:"training_rows"`
	ModelCreated       time.Time `json:"model_created"`
	Features           []string  `json:"features"`
	Components         int       `json:"components"`
	ExplainedVariance  []float64 `json:"explained_variance_ratio,omitempty"`
	Estimators         []string  `json:"estimators,omitempty"`
	Threshold          float64   `json:"threshold,omitempty"`
}

// ErrorResponse carries the message and, for rejected input, every field
// problem so the client can correct the whole form at once.
type ErrorResponse struct {
	Error    string                `json:"error"`
	Problems []features.FieldError `json:"problems,omitempty"`
}

type Server struct {
	predictor Predictor
	opts      Options
	router    chi.Router
	server    *http.Server
}

func New(predictor Predictor, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}

	s := &Server{predictor: predictor, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	r.Use(middleware.Timeout(opts.RequestTimeout))

	r.Post("/predict", s.handlePredict)
	r.Post("/predict/batch", s.handlePredictBatch)
	r.Get("/health", s.handleHealth)
	r.Get("/model/info", s.handleModelInfo)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}
	s.router = r

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Shutdown. It returns http.ErrServerClosed after a
// graceful shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting churn prediction server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if s.opts.Metrics != nil {
			s.opts.Metrics.RequestObserve(route, status)
		}
		log.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request served")
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	profile, err := s.decodeProfile(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.predictor.PredictProfile(profile)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logPrediction(profile, result)
	writeJSON(w, http.StatusOK, s.response(result))
}

func (s *Server) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if len(req.Profiles) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "profiles cannot be empty"})
		return
	}

	profiles := make([]features.RawCustomerProfile, len(req.Profiles))
	for i, raw := range req.Profiles {
		p, err := profileFromJSON(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("profile %d: invalid JSON: %v", i, err)})
			return
		}
		profiles[i] = p
	}

	results, err := s.predictor.PredictProfiles(profiles)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := BatchResponse{
		Predictions:  make([]PredictResponse, len(results)),
		ModelVersion: s.modelVersion(),
	}
	for i, res := range results {
		s.logPrediction(profiles[i], res)
		resp.Predictions[i] = s.response(res)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:       "ok",
		ModelVersion: s.modelVersion(),
		Features:     len(s.predictor.FeatureNames()),
	})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	a := s.predictor.Artifacts()
	info := ModelInfoResponse{
		Version:            a.Metadata.Version,
		TrainedAt:          a.Metadata.TrainedAt,
		Accuracy:           a.Metadata.Accuracy,
		ValidationAccuracy: a.Metadata.ValidationAcc,
		TrainingRows:       a.Metadata.TrainingRows,
		ModelCreated:       a.ModelCreated,
		Features:           s.predictor.FeatureNames(),
		Components:         a.Reducer.OutputDim(),
	}
	if pca, ok := a.Reducer.(interface{ ExplainedVarianceRatio() []float64 }); ok {
		info.ExplainedVariance = pca.ExplainedVarianceRatio()
	}
	if sc, ok := a.Classifier.(interface {
		EstimatorNames() []string
		Threshold() float64
	}); ok {
		info.Estimators = sc.EstimatorNames()
		info.Threshold = sc.Threshold()
	}
	writeJSON(w, http.StatusOK, info)
}

// decodeProfile reads one profile from a form post or a JSON body. Missing
// fields take the form defaults.
func (s *Server) decodeProfile(r *http.Request) (features.RawCustomerProfile, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return features.RawCustomerProfile{}, &requestError{fmt.Errorf("invalid form: %w", err)}
		}
		return profileFromForm(r.PostForm)
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return features.RawCustomerProfile{}, &requestError{fmt.Errorf("read body: %w", err)}
	}
	p, err := profileFromJSON(data)
	if err != nil {
		return features.RawCustomerProfile{}, &requestError{fmt.Errorf("invalid request body: %w", err)}
	}
	return p, nil
}

func (s *Server) response(r ml.PredictionResult) PredictResponse {
	return PredictResponse{
		Churn:        r.Churn,
		Probability:  r.Probability,
		Percent:      r.Percent(),
		Verdict:      r.Verdict(),
		Message:      r.RiskMessage(),
		ModelVersion: s.modelVersion(),
	}
}

func (s *Server) logPrediction(p features.RawCustomerProfile, r ml.PredictionResult) {
	if s.opts.Store == nil {
		return
	}
	err := s.opts.Store.StorePrediction(storage.PredictionRecord{
		Timestamp:    time.Now(),
		ModelVersion: s.modelVersion(),
		Profile:      p,
		Churn:        r.Churn,
		Probability:  r.Probability,
	})
	if err != nil {
		// The prediction was made; losing the log entry must not fail the request.
		log.Warn().Err(err).Msg("failed to store prediction")
		if s.opts.Metrics != nil {
			s.opts.Metrics.PredictionLogErrorsInc()
		}
	}
}

func (s *Server) modelVersion() string {
	return s.predictor.Artifacts().Metadata.Version
}

type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// writeError maps prediction errors to HTTP statuses. Rejected input is the
// client's to fix; anything else means the loaded model cannot serve.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var validation *features.ValidationError
	var badRequest *requestError
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Problems: validation.Problems})
	case errors.As(err, &badRequest):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		log.Error().Err(err).Msg("prediction failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "model artifacts are incompatible with this service: " + err.Error(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}
