package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bulkmt"

// Flush reasons used as the "reason" label of batches_flushed_total.
const (
	FlushReasonSize  = "size"
	FlushReasonBlock = "block"
	FlushReasonStop  = "stop"
)

var (
	linesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lines_total",
		Help:      "Total number of input lines classified.",
	})
	commandsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Total number of commands emitted by the classifier.",
	})
	blocksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blocks_opened_total",
		Help:      "Total number of top-level blocks opened.",
	})
	batchesFlushed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accumulator",
			Name:      "batches_flushed_total",
			Help:      "Total number of batches flushed, by trigger.",
		},
		[]string{"reason"},
	)
	batchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "accumulator",
		Name:      "batch_size",
		Help:      "Number of commands per flushed batch.",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	enqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "enqueued_total",
			Help:      "Total number of batches enqueued to worker queues.",
		},
		[]string{"group"},
	)
	droppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "dropped_total",
			Help:      "Total number of batches dropped before enqueue.",
		},
		[]string{"group", "reason"},
	)
	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "queue_depth",
			Help:      "Batches waiting in a worker queue.",
		},
		[]string{"sink"},
	)
	flushTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "flush_total",
			Help:      "Total number of batch writes with at least one command.",
		},
		[]string{"sink"},
	)
	flushFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "flush_failures_total",
			Help:      "Total number of batch writes that failed after retries.",
		},
		[]string{"sink"},
	)
	retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "retries_total",
			Help:      "Total number of retried batch writes.",
		},
		[]string{"sink"},
	)
	flushDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "flush_duration_seconds",
			Help:      "Duration of sink batch writes in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"sink"},
	)
)

// Register registers all bulkmt metrics to the provided Prometheus registerer.
// It is safe to call multiple times; AlreadyRegisteredError will be ignored.
func Register(r prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		linesTotal, commandsTotal, blocksTotal, batchesFlushed, batchSize,
		enqueuedTotal, droppedTotal, queueDepth,
		flushTotal, flushFailuresTotal, retriesTotal, flushDuration,
	}
	for _, c := range collectors {
		if err := r.Register(c); err != nil {
			var alreadyRegisteredError prometheus.AlreadyRegisteredError
			if errors.As(err, &alreadyRegisteredError) {
				continue
			}
			return err
		}
	}
	return nil
}

// IncLines increments the classified lines counter.
func IncLines() { linesTotal.Inc() }

// IncCommands increments the emitted commands counter.
func IncCommands() { commandsTotal.Inc() }

// IncBlocks increments the opened blocks counter.
func IncBlocks() { blocksTotal.Inc() }

// BatchFlushed records a flushed batch and its size.
func BatchFlushed(reason string, size int) {
	if reason == "" {
		reason = "unknown"
	}
	batchesFlushed.WithLabelValues(reason).Inc()
	batchSize.Observe(float64(size))
}

// DispatchEnqueued increments the enqueued counter for a group.
func DispatchEnqueued(group string) {
	enqueuedTotal.WithLabelValues(orUnknown(group)).Inc()
}

// DispatchDropped increments the dropped counter for a group with a reason.
func DispatchDropped(group, reason string) {
	droppedTotal.WithLabelValues(orUnknown(group), orUnknown(reason)).Inc()
}

// SetQueueDepth reports the number of batches waiting for a sink worker.
func SetQueueDepth(sink string, n int) {
	queueDepth.WithLabelValues(orUnknown(sink)).Set(float64(n))
}

// IncSinkRetries increments the retry counter for a sink.
func IncSinkRetries(sink string) {
	retriesTotal.WithLabelValues(orUnknown(sink)).Inc()
}

// SinkFlushObserve records a flush metrics set: batch size, duration, and success/failure counts.
func SinkFlushObserve(sink string, size int, dur time.Duration, success bool) {
	sink = orUnknown(sink)
	if size > 0 {
		flushTotal.WithLabelValues(sink).Inc()
	}
	flushDuration.WithLabelValues(sink).Observe(dur.Seconds())
	if !success {
		flushFailuresTotal.WithLabelValues(sink).Inc()
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
