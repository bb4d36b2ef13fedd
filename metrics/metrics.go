package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CampaignsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "campaigns_processed_total", Help: "Campaigns driven to a terminal state"},
		[]string{"status"},
	)
	MessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "campaign_messages_sent_total", Help: "Template messages accepted by the Cloud API"},
	)
	MessagesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "campaign_messages_failed_total", Help: "Template messages rejected or errored"},
	)
	SendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "campaign_send_duration_seconds",
			Help:    "Time spent on a single template send",
			Buckets: prometheus.DefBuckets,
		},
	)
	CreditsDebited = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "credits_debited_cents_total", Help: "Credits debited for campaign sends, in cents"},
	)
	CreditsPurchased = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "credits_purchased_cents_total", Help: "Credits purchased, in cents"},
	)
)

func init() {
	prometheus.MustRegister(
		CampaignsProcessed, MessagesSent, MessagesFailed,
		SendDuration, CreditsDebited, CreditsPurchased,
	)
}

func Handler() http.Handler { return promhttp.Handler() }
