// Package metrics provides Prometheus metrics collection for the churn
// prediction service. It defines the prediction, validation and HTTP metrics
// exposed via the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction metrics
	MLPredictions      prometheus.Counter   // Total number of successful predictions
	MLChurnPredictions prometheus.Counter   // Predictions labelled churn
	MLFailures         prometheus.Counter   // Predictions aborted by an artifact or schema error
	MLRejections       prometheus.Counter   // Profiles rejected by input validation
	MLModelAge         prometheus.Gauge     // Age of the loaded classifier artifact in seconds
	MLLatency          prometheus.Histogram // End-to-end prediction latency in seconds
	MLPredictionScores prometheus.Histogram // Distribution of churn probabilities

	// Serving metrics
	HTTPRequests     *prometheus.CounterVec // Requests by route and status code
	PredictionLogErr prometheus.Counter     // Failed writes to the prediction log
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		MLPredictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_predictions_total",
			Help: "Total number of churn predictions made",
		}),
		MLChurnPredictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_positive_predictions_total",
			Help: "Total number of predictions labelled as churn",
		}),
		MLFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_prediction_failures_total",
			Help: "Total number of predictions aborted by artifact or schema errors",
		}),
		MLRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_profile_rejections_total",
			Help: "Total number of customer profiles rejected by input validation",
		}),
		MLModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "churn_model_age_seconds",
			Help: "Age of the loaded classifier artifact in seconds",
		}),
		MLLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "churn_prediction_latency_seconds",
			Help:    "Prediction latency in seconds (validation to result)",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		MLPredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "churn_probability",
			Help:    "Distribution of predicted churn probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		PredictionLogErr: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_log_errors_total",
			Help: "Total number of failed writes to the prediction log",
		}),
	}
}
