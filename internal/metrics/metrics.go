// Package metrics declares the Prometheus collectors shared by the inbound
// source and its scanners. They register on the default registry and are
// served by the web adapter at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScanTotalCounterVec = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_scan_total",
		Help: "The number of directory scans performed",
	}, []string{"scanner"})

	FilesEnqueuedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intake_files_enqueued_total",
		Help: "The number of files added to the candidate queue by scans",
	})

	MessagesReceivedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intake_messages_received_total",
		Help: "The number of files handed to consumers",
	})

	ClaimsRefusedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intake_claims_refused_total",
		Help: "The number of candidates dropped because the locker refused the claim",
	})

	RequeueCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intake_requeue_total",
		Help: "The number of files handed back through OnFailure",
	})

	QueueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "intake_queue_depth",
		Help: "The number of candidates waiting in the queue",
	})

	WatchEventsCounterVec = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_watch_events_total",
		Help: "The number of filesystem events translated by the watch scanner",
	}, []string{"kind"})

	WatchOverflowCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intake_watch_overflow_total",
		Help: "The number of notification overflows that forced a full resync",
	})

	WatchRegistrationsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "intake_watch_registrations",
		Help: "The number of directories currently registered for notifications",
	})
)
