package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jhkim-dev/speakpath/internal/config"
	"github.com/jhkim-dev/speakpath/internal/db"
	"github.com/jhkim-dev/speakpath/internal/expressions"
	"github.com/jhkim-dev/speakpath/internal/generator"
	"github.com/jhkim-dev/speakpath/internal/middleware"
	"github.com/jhkim-dev/speakpath/internal/player"
	"github.com/jhkim-dev/speakpath/internal/podcast"
	"github.com/jhkim-dev/speakpath/internal/progress"
	"github.com/jhkim-dev/speakpath/internal/recordings"
	"github.com/jhkim-dev/speakpath/internal/roadmap"
	"github.com/jhkim-dev/speakpath/internal/telemetry/metrics"
	"github.com/jhkim-dev/speakpath/internal/telemetry/tracing"
	"github.com/jhkim-dev/speakpath/internal/tts"
	"github.com/jhkim-dev/speakpath/pkg"
)

const (
	defaultGeneratePerMin = 5
	defaultTTSPerMin      = 10
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config *config.Config
	dbPool *pgxpool.Pool

	redisClient *redis.Client

	progressService   *progress.Service
	playerRegistry    *player.Registry
	recordingsService *recordings.Service
	recordingSessions *recordings.SessionManager
	generatedAudio    *recordings.Store // synthesized speech blobs, separate root from practice takes
	expressionsFiles  *expressions.Catalog
	podcastLibrary    *podcast.Library
	ttsClient         *tts.Client
	generatorService  *generator.Service

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	TypecastAPIKey          string
	OpenAIAPIKey            string
	RedisPassword           string
	VersionInfo             string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": "speakpath_db"},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("speakpath", "backend", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "speakpath-backend", rdb)
	if err != nil {
		return nil, err
	}

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	location := time.UTC
	if params.Config.Timezone != "" {
		location, err = time.LoadLocation(params.Config.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %s: %w", params.Config.Timezone, err)
		}
	}

	expressionsFiles, err := expressions.NewCatalog(params.Config.ExpressionsMP3Path)
	if err != nil {
		return nil, fmt.Errorf("new expressions catalog: %w", err)
	}

	podcastLibrary, err := podcast.NewLibrary(params.Config.PodcastLibraryPath)
	if err != nil {
		return nil, fmt.Errorf("new podcast library: %w", err)
	}

	progressService := progress.NewService(progress.NewRepo(dbPool), expressionsFiles, location)

	recordingsStore, err := recordings.NewStore(params.Config.RecordingsRootPath)
	if err != nil {
		return nil, fmt.Errorf("new recordings store: %w", err)
	}
	recordingsService := recordings.NewService(recordingsStore, recordings.NewRepo(dbPool))
	recordingSessions := recordings.NewSessionManager(recordingsService)
	recordingSessions.OnCountChange(func(count int) {
		metricsManager.GaugeRecordingSessions.Set(float64(count))
	})

	generatedAudio, err := recordings.NewStore(params.Config.GeneratedAudioRootPath)
	if err != nil {
		return nil, fmt.Errorf("new generated audio store: %w", err)
	}

	playerRegistry := player.NewRegistry(func(_ string, durationSeconds float64) player.MediaElement {
		return player.NewClockTransport(durationSeconds)
	})
	playerRegistry.OnCountChange(func(count int) {
		metricsManager.GaugeActivePlayers.Set(float64(count))
	})

	ttsClient := tts.NewClient(
		tts.DefaultBaseURL,
		params.TypecastAPIKey,
		tracedHttpClient,
		rdb,
		metricsManager,
	)

	generatorService := generator.NewService(
		generator.NewOpenAIClient(generator.DefaultOpenAIBaseURL, params.OpenAIAPIKey, tracedHttpClient),
		progressService,
		metricsManager,
	)

	return &Server{
		config:      params.Config,
		dbPool:      dbPool,
		versionInfo: params.VersionInfo,

		redisClient: rdb,

		progressService:   progressService,
		playerRegistry:    playerRegistry,
		recordingsService: recordingsService,
		recordingSessions: recordingSessions,
		generatedAudio:    generatedAudio,
		expressionsFiles:  expressionsFiles,
		podcastLibrary:    podcastLibrary,
		ttsClient:         ttsClient,
		generatorService:  generatorService,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("speakpath-router"))

	r.HandleFunc("/api/roadmap", s.handleRoadmap).Methods("GET").Name("roadmap")

	progressHandler := progress.NewHandler(s.progressService, s.metricsManager)
	r.HandleFunc("/api/progress", progressHandler.HandleGetAll).Methods("GET").Name("get-progress")
	r.HandleFunc("/api/progress", progressHandler.HandleToggleCompletion).Methods("POST", "OPTIONS").Name("toggle-completion")
	r.HandleFunc("/api/week/{weekKey}", progressHandler.HandleGetWeek).Methods("GET").Name("get-week")
	r.HandleFunc("/api/week/{weekKey}/cards", progressHandler.HandleGetWeekCards).Methods("GET").Name("get-week-cards")
	r.HandleFunc("/api/activity-info", progressHandler.HandleUpdateActivityInfo).Methods("POST", "OPTIONS").Name("activity-info")

	playerHandler := player.NewHandler(s.playerRegistry)
	r.HandleFunc("/api/player/mount", playerHandler.HandleMount).Methods("POST", "OPTIONS").Name("player-mount")
	r.HandleFunc("/api/player/state", playerHandler.HandleState).Methods("GET").Name("player-state")
	r.HandleFunc("/api/player/toggle", playerHandler.HandleToggle).Methods("POST", "OPTIONS").Name("player-toggle")
	r.HandleFunc("/api/player/seek", playerHandler.HandleSeek).Methods("POST", "OPTIONS").Name("player-seek")
	r.HandleFunc("/api/player/skip", playerHandler.HandleSkip).Methods("POST", "OPTIONS").Name("player-skip")
	r.HandleFunc("/api/player/speed", playerHandler.HandleSpeed).Methods("POST", "OPTIONS").Name("player-speed")
	r.HandleFunc("/api/player/unmount-week", playerHandler.HandleUnmountWeek).Methods("POST", "OPTIONS").Name("player-unmount-week")

	recordingsHandler := recordings.NewHandler(s.recordingsService, s.recordingSessions, s.metricsManager)
	r.HandleFunc("/api/save-recording", recordingsHandler.HandleSave).Methods("POST", "OPTIONS").Name("save-recording")
	r.HandleFunc("/api/get-recordings", recordingsHandler.HandleList).Methods("GET", "POST").Name("get-recordings")
	r.HandleFunc("/api/delete-recording/{id}", recordingsHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-recording")
	r.HandleFunc("/api/recordings/{id}/audio", recordingsHandler.HandleServeAudio).Methods("GET").Name("recording-audio")
	r.HandleFunc("/api/recording-session/start", recordingsHandler.HandleSessionStart).Methods("POST", "OPTIONS").Name("session-start")
	r.HandleFunc("/api/recording-session/{id}/chunk", recordingsHandler.HandleSessionChunk).Methods("POST").Name("session-chunk")
	r.HandleFunc("/api/recording-session/{id}/stop", recordingsHandler.HandleSessionStop).Methods("POST").Name("session-stop")
	r.HandleFunc("/api/recording-session/{id}/abort", recordingsHandler.HandleSessionAbort).Methods("POST").Name("session-abort")
	r.HandleFunc("/api/recording-session", recordingsHandler.HandleSessionStatus).Methods("GET").Name("session-status")

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)

	ttsPerMin := s.config.TTSRateLimitAllowedPerMin
	if ttsPerMin <= 0 {
		ttsPerMin = defaultTTSPerMin
	}
	ttsLimit := middleware.RateLimit(reqRateLimiter, s.metricsManager, "tts", ttsPerMin)

	ttsHandler := tts.NewHandler(s.ttsClient, s.generatedAudio, s.progressService)
	r.HandleFunc("/api/voices", ttsHandler.HandleVoices).Methods("GET").Name("voices")
	r.Handle("/api/generate-audio-single",
		ttsLimit(http.HandlerFunc(ttsHandler.HandleGenerateAudioSingle))).Methods("POST", "OPTIONS").Name("generate-audio-single")
	r.Handle("/api/generate-weekly-prompt-audio",
		ttsLimit(http.HandlerFunc(ttsHandler.HandleGenerateWeeklyPromptAudio))).Methods("POST", "OPTIONS").Name("generate-weekly-prompt-audio")
	r.Handle("/api/generate-shadowing-audio",
		ttsLimit(http.HandlerFunc(ttsHandler.HandleGenerateShadowingAudio))).Methods("POST", "OPTIONS").Name("generate-shadowing-audio")
	r.HandleFunc("/api/tts/audio/{path:.*}", ttsHandler.HandleServeAudio).Methods("GET").Name("tts-audio")

	generatePerMin := s.config.GenerateRateLimitAllowedPerMin
	if generatePerMin <= 0 {
		generatePerMin = defaultGeneratePerMin
	}
	generateLimit := middleware.RateLimit(reqRateLimiter, s.metricsManager, "generate", generatePerMin)

	generatorHandler := generator.NewHandler(s.generatorService)
	r.Handle("/api/generate/{activityId}",
		generateLimit(http.HandlerFunc(generatorHandler.HandleGenerate))).Methods("POST", "OPTIONS").Name("generate-activity")
	r.Handle("/api/generate-all",
		generateLimit(http.HandlerFunc(generatorHandler.HandleGenerateAll))).Methods("POST", "OPTIONS").Name("generate-all")

	expressionsHandler := expressions.NewHandler(s.expressionsFiles, s.progressService)
	r.HandleFunc("/api/weekly-expressions/select-mp3", expressionsHandler.HandleSelectMP3).Methods("POST", "OPTIONS").Name("expressions-select-mp3")
	r.HandleFunc("/api/weekly-expressions/regenerate", expressionsHandler.HandleRegenerate).Methods("POST", "OPTIONS").Name("expressions-regenerate")
	r.HandleFunc("/api/weekly-expressions/mp3/{filename}", expressionsHandler.HandleServeMP3).Methods("GET").Name("expressions-mp3")

	podcastHandler := podcast.NewHandler(s.podcastLibrary, s.ttsClient, s.generatedAudio, s.progressService)
	r.HandleFunc("/api/podcast-shadowing/videos", podcastHandler.HandleVideos).Methods("POST", "OPTIONS").Name("podcast-videos")
	r.HandleFunc("/api/podcast-shadowing/transcript", podcastHandler.HandleTranscript).Methods("POST", "OPTIONS").Name("podcast-transcript")
	r.HandleFunc("/api/podcast-shadowing/regenerate", podcastHandler.HandleRegenerate).Methods("POST", "OPTIONS").Name("podcast-regenerate")
	r.Handle("/api/podcast-shadowing/generate-typecast-audio",
		ttsLimit(http.HandlerFunc(podcastHandler.HandleGenerateTypecastAudio))).Methods("POST", "OPTIONS").Name("podcast-typecast-audio")
	r.HandleFunc("/api/podcast-shadowing/mp3/{filename:.*}", podcastHandler.HandleServeMP3).Methods("GET").Name("podcast-mp3")

	r.HandleFunc("/api/version", s.handleVersion).Methods("GET").Name("version")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) handleRoadmap(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSONResponse(w, http.StatusOK, roadmap.Phase1())
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteResponse(w, "text/plain", s.versionInfo)
}

func (s *Server) Serve(_ context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
