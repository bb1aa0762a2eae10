package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TrackerCollector bundles Prometheus metrics for the attitude pipeline and
// provides a ready-to-serve /metrics handler.
type TrackerCollector struct {
	gatherer prometheus.Gatherer

	Cycles        *prometheus.CounterVec
	Rejections    *prometheus.CounterVec
	SolveDuration prometheus.Histogram

	SolveConfidence prometheus.Gauge
	MatchedStars    prometheus.Gauge
	LastSolveTime   prometheus.Gauge
}

// Cycle outcome label values.
const (
	OutcomePublished     = "published"
	OutcomeRejected      = "rejected"
	OutcomeSolveFailed   = "solve_failed"
	OutcomeCaptureFailed = "capture_failed"
)

// NewTrackerCollector registers pipeline Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewTrackerCollector(reg prometheus.Registerer) (*TrackerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	cycles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_cycles_total",
		Help: "Total pipeline iterations, labeled by outcome.",
	}, []string{"outcome"})
	cycles, err := registerCounterVec(reg, cycles, "tracker_cycles_total")
	if err != nil {
		return nil, err
	}

	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_rejections_total",
		Help: "Frames rejected by the quality classifier, labeled by verdict.",
	}, []string{"verdict"})
	rejections, err = registerCounterVec(reg, rejections, "tracker_rejections_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracker_solve_duration_seconds",
		Help:    "Wall time of attitude solves, successful or not.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}), "tracker_solve_duration_seconds")
	if err != nil {
		return nil, err
	}

	confidence, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_solve_confidence",
		Help: "Match confidence of the most recent published solution.",
	}), "tracker_solve_confidence")
	if err != nil {
		return nil, err
	}
	matched, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_matched_stars",
		Help: "Matched-star count of the most recent published solution.",
	}), "tracker_matched_stars")
	if err != nil {
		return nil, err
	}
	lastSolve, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_last_solve_timestamp_seconds",
		Help: "Unix time of the most recent published solution.",
	}), "tracker_last_solve_timestamp_seconds")
	if err != nil {
		return nil, err
	}

	return &TrackerCollector{
		gatherer:        gatherer,
		Cycles:          cycles,
		Rejections:      rejections,
		SolveDuration:   duration,
		SolveConfidence: confidence,
		MatchedStars:    matched,
		LastSolveTime:   lastSolve,
	}, nil
}

// RecordCycle counts one finished pipeline iteration. Satisfies the
// pipeline's metrics-recorder interface; nil receivers are tolerated so the
// recorder stays optional.
func (c *TrackerCollector) RecordCycle(outcome string) {
	if c == nil || c.Cycles == nil {
		return
	}
	c.Cycles.WithLabelValues(outcome).Inc()
}

// RecordRejection counts a quality rejection by verdict.
func (c *TrackerCollector) RecordRejection(verdict string) {
	if c == nil || c.Rejections == nil {
		return
	}
	c.Rejections.WithLabelValues(verdict).Inc()
}

// RecordSolve observes one published solution.
func (c *TrackerCollector) RecordSolve(confidence float64, matchedStars int, solveTime time.Duration, at time.Time) {
	if c == nil {
		return
	}
	if c.SolveDuration != nil {
		c.SolveDuration.Observe(solveTime.Seconds())
	}
	if c.SolveConfidence != nil {
		c.SolveConfidence.Set(confidence)
	}
	if c.MatchedStars != nil {
		c.MatchedStars.Set(float64(matchedStars))
	}
	if c.LastSolveTime != nil {
		c.LastSolveTime.Set(float64(at.Unix()))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *TrackerCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
