// Package metrics declares the Prometheus collectors the service exposes on
// /metrics. promauto registers each collector with the default registry as it
// is created, so declaring the variable is all it takes to publish it.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label names.
const (
	LabelMethod  = "method"
	LabelPath    = "path"
	LabelStatus  = "status"
	LabelOutcome = "outcome"
	LabelKind    = "kind"
)

// Outcome label values for settlement runs.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)
)

// Settlement metrics
var (
	SettlementRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_runs_total",
			Help: "Settlement recomputations by outcome",
		},
		[]string{LabelOutcome},
	)

	SettlementDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "settlement_duration_seconds",
			Help:    "Time to recompute every bet of a round",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		},
	)

	BetsFlagged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_bets_flagged_total",
			Help: "Bets excluded from totals because they could not be settled",
		},
		[]string{LabelKind},
	)

	SettlementEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_events_published_total",
			Help: "Bet terminal transitions published to subscribers",
		},
		[]string{LabelStatus},
	)

	StreamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leaderboard_stream_subscribers",
			Help: "Clients currently streaming a round leaderboard",
		},
	)
)

// ObserveSettlement records one settlement run.
func ObserveSettlement(start time.Time, err error) {
	SettlementDuration.Observe(time.Since(start).Seconds())
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	SettlementRuns.WithLabelValues(outcome).Inc()
}

// Middleware records request count and latency per route. The route pattern
// (e.g. /api/v1/rounds/:id/scores) is used as the path label rather than the
// raw URL so round IDs don't explode the label cardinality.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			// Errors are turned into responses by the app's error handler after
			// this middleware returns; read the intended status from the error.
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		path := c.Route().Path
		HTTPRequestsTotal.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}
