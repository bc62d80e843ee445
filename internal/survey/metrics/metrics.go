package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the survey engine.
type Metrics struct {
	SurveysCreated       prometheus.Counter
	VotesCast            prometheus.Counter
	VotesRejected        *prometheus.CounterVec
	VoteDuration         prometheus.Histogram
	CreateSurveyDuration prometheus.Histogram
	ResultsDuration      prometheus.Histogram
}

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// New registers the survey metrics with reg. Pass nil for the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		SurveysCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "pollbook_surveys_created_total",
			Help: "Total number of surveys created",
		}),
		VotesCast: factory.NewCounter(prometheus.CounterOpts{
			Name: "pollbook_votes_cast_total",
			Help: "Total number of accepted votes",
		}),
		VotesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pollbook_votes_rejected_total",
			Help: "Vote attempts rejected, by reason",
		}, []string{"reason"}),
		VoteDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pollbook_vote_duration_seconds",
			Help:    "Duration of Vote operations",
			Buckets: durationBuckets,
		}),
		CreateSurveyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pollbook_create_survey_duration_seconds",
			Help:    "Duration of CreateSurvey operations",
			Buckets: durationBuckets,
		}),
		ResultsDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pollbook_results_duration_seconds",
			Help:    "Duration of Results operations",
			Buckets: durationBuckets,
		}),
	}
}

func (m *Metrics) IncrementSurveysCreated() {
	m.SurveysCreated.Inc()
}

func (m *Metrics) IncrementVotesCast() {
	m.VotesCast.Inc()
}

func (m *Metrics) IncrementVotesRejected(reason string) {
	m.VotesRejected.WithLabelValues(reason).Inc()
}

// ObserveVote records the duration of a Vote call started at start.
func (m *Metrics) ObserveVote(start time.Time) {
	m.VoteDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveCreateSurvey(start time.Time) {
	m.CreateSurveyDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveResults(start time.Time) {
	m.ResultsDuration.Observe(time.Since(start).Seconds())
}
