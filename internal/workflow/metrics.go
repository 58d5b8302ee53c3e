package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var postsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "botwatch_posts_processed_total",
	Help: "Number of posts processed, by outcome",
}, []string{"outcome"})

var usersScored = promauto.NewCounter(prometheus.CounterOpts{
	Name: "botwatch_users_scored_total",
	Help: "Number of liker profiles scored",
})

var botsFlagged = promauto.NewCounter(prometheus.CounterOpts{
	Name: "botwatch_bots_flagged_total",
	Help: "Number of liker profiles classified as bots",
})

var relocationsSkipped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "botwatch_relocations_skipped_total",
	Help: "Number of loose roster files that were absent during organize",
})

var stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "botwatch_stage_duration_seconds",
	Help:    "A histogram of pipeline stage latencies",
	Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
}, []string{"stage"})
