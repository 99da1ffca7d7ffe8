package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PunishmentsIssued counts executed punitive actions by kind and issuer kind.
	PunishmentsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_punishments_issued_total",
		Help: "Total number of executed punitive actions",
	}, []string{"action", "issuer"})

	// VotesCast counts accepted votes by choice.
	VotesCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_votes_cast_total",
		Help: "Total number of accepted ban-request votes",
	}, []string{"choice"})

	// VotesRejected counts rejected vote attempts by reason.
	VotesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_votes_rejected_total",
		Help: "Total number of rejected ban-request votes",
	}, []string{"reason"})

	// SessionsResolved counts terminated voting sessions by outcome.
	SessionsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_vote_sessions_resolved_total",
		Help: "Total number of resolved ban-request sessions",
	}, []string{"outcome"})

	// OpenSessions is the gauge of currently open voting sessions.
	OpenSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warden_vote_sessions_open",
		Help: "Number of currently open ban-request sessions",
	})

	// FanoutFailures counts vote-prompt deliveries that failed and were swallowed.
	FanoutFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_vote_fanout_failures_total",
		Help: "Total number of vote prompts that could not be delivered",
	})

	// FeedConnections is the gauge of connected moderator feed clients.
	FeedConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warden_feed_connections",
		Help: "Number of active moderator feed WebSocket connections",
	})
)
