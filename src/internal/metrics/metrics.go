package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "github_report_cycles_total",
		Help: "Number of scheduled report cycles triggered.",
	})

	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_report_fetch_failures_total",
		Help: "Event fetch failures per team.",
	}, []string{"team"})

	EventsClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_report_events_classified_total",
		Help: "Events classified into report entries, by action.",
	}, []string{"action"})

	MessagesPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "github_report_messages_posted_total",
		Help: "Report messages posted to the destination channel.",
	})
)
