// Package metrics exposes prometheus collectors describing the searches outcomes
package metrics

import (
	"errors"
	"time"

	"github.com/Scalingo/sclng-repo-search/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reposearch"

// Recorder groups the collectors updated by the search controller
type Recorder struct {
	searches   *prometheus.CounterVec
	duration   prometheus.Histogram
	inFlight   prometheus.Gauge
	superseded prometheus.Counter
}

// NewRecorder registers the collectors on reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		searches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Number of completed searches by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of the search requests, from submission to terminal state.",
			Buckets:   prometheus.DefBuckets,
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "searches_in_flight",
			Help:      "Number of search requests waiting for an answer.",
		}),
		superseded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_superseded_total",
			Help:      "Number of search results dropped because a newer search was submitted.",
		}),
	}
}

func (r *Recorder) SearchStarted() {
	r.inFlight.Inc()
}

func (r *Recorder) SearchFinished() {
	r.inFlight.Dec()
}

func (r *Recorder) ObserveSuperseded() {
	r.superseded.Inc()
}

// ObserveResult counts a terminal state applied by the controller
func (r *Recorder) ObserveResult(state model.State, elapsed time.Duration) {
	r.searches.WithLabelValues(Outcome(state)).Inc()
	r.duration.Observe(elapsed.Seconds())
}

// Outcome returns the label describing state.
// Network errors are split from the other errors.
func Outcome(state model.State) string {
	visitor := outcomeVisitor{}
	state.Accept(&visitor)
	return visitor.outcome
}

type outcomeVisitor struct {
	outcome string
}

func (v *outcomeVisitor) VisitLoading(model.Loading) {
	v.outcome = "loading"
}

func (v *outcomeVisitor) VisitSuccess(model.Success) {
	v.outcome = "success"
}

func (v *outcomeVisitor) VisitEmpty(model.Empty) {
	v.outcome = "empty"
}

func (v *outcomeVisitor) VisitError(s model.Error) {
	var networkErr *model.NetworkError
	if errors.As(s.Err, &networkErr) {
		v.outcome = "network_error"
		return
	}

	v.outcome = "error"
}

func (v *outcomeVisitor) VisitJSONParsingError(model.JSONParsingError) {
	v.outcome = "json_parsing_error"
}
