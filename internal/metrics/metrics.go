// Package metrics holds the process-wide Prometheus collectors for the
// message engine. They are registered on the default registry at init and
// served by promhttp on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// MessagesCreated counts persisted messages by how they were produced:
	// "send", "share", "delayed" or "standup".
	MessagesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_messages_created_total",
			Help: "Messages persisted, by source.",
		},
		[]string{"source"},
	)

	// NotificationsEmitted counts appended notifications by reason: "tag", "react", "added".
	NotificationsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_notifications_emitted_total",
			Help: "Notifications appended to user logs, by reason.",
		},
		[]string{"reason"},
	)

	JobsScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_jobs_scheduled_total",
			Help: "Deferred jobs persisted, by kind.",
		},
		[]string{"kind"},
	)

	JobsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_jobs_fired_total",
			Help: "Deferred jobs claimed and executed, by kind.",
		},
		[]string{"kind"},
	)

	JobsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_jobs_failed_total",
			Help: "Deferred jobs whose handler returned an error, by kind.",
		},
		[]string{"kind"},
	)

	JobsCancelled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "huddle_jobs_cancelled_total",
			Help: "Deferred jobs cancelled before firing, by kind.",
		},
		[]string{"kind"},
	)

	// TimersArmed is the number of in-process timers waiting to fire.
	TimersArmed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "huddle_scheduler_timers_armed",
			Help: "Timers currently armed by the job scheduler.",
		},
	)
)

func init() {
	prometheus.MustRegister(MessagesCreated)
	prometheus.MustRegister(NotificationsEmitted)
	prometheus.MustRegister(JobsScheduled)
	prometheus.MustRegister(JobsFired)
	prometheus.MustRegister(JobsFailed)
	prometheus.MustRegister(JobsCancelled)
	prometheus.MustRegister(TimersArmed)
}
