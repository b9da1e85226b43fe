package mailer

import "github.com/prometheus/client_golang/prometheus"

var (
	emailsSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mailer_emails_sent_total",
			Help: "Total emails accepted by the mail provider",
		},
	)

	emailFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mailer_email_failures_total",
			Help: "Total send attempts that failed",
		},
	)

	triggersFiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mailer_triggers_fired_total",
			Help: "Total trigger dispatch attempts",
		},
	)

	triggersSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mailer_triggers_skipped_total",
			Help: "Total triggers skipped on conditions or missing recipient",
		},
	)
)

// RegisterMetrics registers the engine's collectors with the default
// prometheus registry. Call it once from the hosting process.
func RegisterMetrics() {
	prometheus.MustRegister(
		emailsSentTotal,
		emailFailuresTotal,
		triggersFiredTotal,
		triggersSkippedTotal,
	)
}
