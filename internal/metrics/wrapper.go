package metrics

import "strconv"

// MetricsWrapper adapts Metrics to the narrow interfaces the ml and server
// packages depend on.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) MLPredictionsInc()      { w.m.MLPredictions.Inc() }
func (w *MetricsWrapper) MLChurnPredictionsInc() { w.m.MLChurnPredictions.Inc() }
func (w *MetricsWrapper) MLFailuresInc()         { w.m.MLFailures.Inc() }
func (w *MetricsWrapper) MLRejectionsInc()       { w.m.MLRejections.Inc() }

func (w *MetricsWrapper) MLLatencyObserve(v float64) {
	w.m.MLLatency.Observe(v)
}

func (w *MetricsWrapper) MLModelAgeSet(v float64) {
	w.m.MLModelAge.Set(v)
}

func (w *MetricsWrapper) MLPredictionScoresObserve(v float64) {
	w.m.MLPredictionScores.Observe(v)
}

// RequestObserve counts one served HTTP request.
func (w *MetricsWrapper) RequestObserve(route string, code int) {
	w.m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func (w *MetricsWrapper) PredictionLogErrorsInc() {
	w.m.PredictionLogErr.Inc()
}
