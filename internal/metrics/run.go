package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Processing run metrics
var (
	// FilesProcessedTotal counts dispatched files by kind and status
	FilesProcessedTotal *prometheus.CounterVec

	// FilesCroppedTotal counts files whose letterbox was removed
	FilesCroppedTotal prometheus.Counter

	// BytesSavedTotal tracks bytes removed from files by cropping
	BytesSavedTotal prometheus.Counter

	// FileDuration tracks the time spent on a single file
	FileDuration *prometheus.HistogramVec

	// RunDuration tracks how long a whole traversal takes
	RunDuration prometheus.Histogram

	// LastRunTimestamp records Unix timestamp of the last finished run
	LastRunTimestamp prometheus.Gauge

	// LastRunSuccess is 1 when the last run finished without error
	LastRunSuccess prometheus.Gauge

	// ErrorsTotal tracks runs that ended in an error
	ErrorsTotal prometheus.Counter
)

func initRunMetrics() {
	FilesProcessedTotal = counterVec("files_processed_total",
		"Files handled by unletterbox, by kind and status.", "kind", "status")

	FilesCroppedTotal = counter("files_cropped_total", "Files whose letterbox bars were removed.")

	BytesSavedTotal = counter("bytes_saved_total", "Bytes removed from files by cropping.")

	FileDuration = histogramVec("file_duration_seconds",
		"Time spent processing a single file in seconds.", FileBuckets, "kind")

	RunDuration = histogram("run_duration_seconds", "Duration of traversal runs in seconds.", RunBuckets)

	LastRunTimestamp = gauge("last_run_timestamp", "Timestamp of the last finished run (Unix epoch seconds).")

	LastRunSuccess = gauge("last_run_success", "1 if the last run completed without error, 0 otherwise.")

	ErrorsTotal = counter("errors_total", "Total number of runs that ended in an error.")
}

func registerRunMetrics() {
	prometheus.MustRegister(
		FilesProcessedTotal,
		FilesCroppedTotal,
		BytesSavedTotal,
		FileDuration,
		RunDuration,
		LastRunTimestamp,
		LastRunSuccess,
		ErrorsTotal,
	)
}

// RecordFile records the result of one dispatched file.
func RecordFile(kind, status string, changed bool, bytesSaved int64, elapsed time.Duration) {
	FilesProcessedTotal.WithLabelValues(kind, status).Inc()
	FileDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if changed {
		FilesCroppedTotal.Inc()
		if bytesSaved > 0 {
			BytesSavedTotal.Add(float64(bytesSaved))
		}
	}
}

// RecordRun records the end of a traversal.
func RecordRun(elapsed time.Duration, err error) {
	now := time.Now().Unix()
	lastMu.Lock()
	lastRun = health{LastRun: now, LastRunSuccess: err == nil}
	lastMu.Unlock()

	RunDuration.Observe(elapsed.Seconds())
	LastRunTimestamp.Set(float64(now))
	if err != nil {
		LastRunSuccess.Set(0)
		ErrorsTotal.Inc()
		return
	}
	LastRunSuccess.Set(1)
}
