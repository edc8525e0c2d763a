package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests            *prometheus.CounterVec
	CounterProgressUpdates     *prometheus.CounterVec
	CounterRecordingsSaved     prometheus.Counter
	CounterRecordingsDeleted   prometheus.Counter
	CounterContentGenerations  *prometheus.CounterVec
	CounterTTSRequests         prometheus.Counter
	CounterTTSChunks           prometheus.Counter
	CounterHandleRequestPanic  prometheus.Counter
	CounterRateLimitedRequests prometheus.Counter

	// gauges
	GaugeRequests          prometheus.Gauge
	GaugeLifeSignal        prometheus.Gauge
	GaugeActivePlayers     prometheus.Gauge
	GaugeRecordingSessions prometheus.Gauge

	// histograms
	HistTTSSynthesisDuration prometheus.Histogram
	HistogramRequestDuration *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("speakpath", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("speakpath", "test_server", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterProgressUpdates := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "progress_updates",
		Help:      "The total number of progress updates per activity",
	}, []string{"activity"})
	counterRecordingsSaved := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "recordings_saved",
		Help:      "The total number of saved practice recordings",
	})
	counterRecordingsDeleted := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "recordings_deleted",
		Help:      "The total number of deleted practice recordings",
	})
	counterContentGenerations := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "content_generations",
		Help:      "The total number of weekly content generations per activity",
	}, []string{"activity"})
	counterTTSRequests := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "tts_requests",
		Help:      "The total number of text to speech synthesis requests",
	})
	counterTTSChunks := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "tts_chunks",
		Help:      "The total number of text chunks sent to the speech API",
	})
	counterHandleRequestPanic := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handle_request_panic",
		Help:      "The total number of serve request panics",
	})
	counterRateLimitedRequests := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rate_limited_requests",
		Help:      "The total number of rate limited requests",
	})

	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_requests",
		Help:      "Current number of requests served",
	})
	gaugeLifeSignal := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "life_signal",
		Help:      "Shows whether the service is alive",
	})
	gaugeActivePlayers := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_players",
		Help:      "Current number of mounted audio player controllers",
	})
	gaugeRecordingSessions := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "recording_sessions",
		Help:      "Current number of live recording sessions",
	})

	histTTSSynthesisDuration := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets: []float64{
				0.1, 0.5, 1, 2.5, 5, 10,
				20, 40, 60, 120, 240, 480,
			},
			Name: "tts_synthesis_duration_seconds",
			Help: "Total duration of a single speech synthesis in seconds",
		},
	)

	histogramRequestDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Histogram of response time for requests in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"route", "method", "status_code"})

	return &Manager{
		CounterRequests:            counterRequests,
		CounterProgressUpdates:     counterProgressUpdates,
		CounterRecordingsSaved:     counterRecordingsSaved,
		CounterRecordingsDeleted:   counterRecordingsDeleted,
		CounterContentGenerations:  counterContentGenerations,
		CounterTTSRequests:         counterTTSRequests,
		CounterTTSChunks:           counterTTSChunks,
		CounterHandleRequestPanic:  counterHandleRequestPanic,
		CounterRateLimitedRequests: counterRateLimitedRequests,
		GaugeRequests:              gaugeRequests,
		GaugeLifeSignal:            gaugeLifeSignal,
		GaugeActivePlayers:         gaugeActivePlayers,
		GaugeRecordingSessions:     gaugeRecordingSessions,
		HistTTSSynthesisDuration:   histTTSSynthesisDuration,
		HistogramRequestDuration:   histogramRequestDuration,
	}
}
