package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/flock"

	"tubewatch/catalog"
	"tubewatch/config"
	"tubewatch/handlers"
	"tubewatch/logging"
	"tubewatch/middleware"
	"tubewatch/services"
	"tubewatch/types"
	"tubewatch/websocket"
)

// ErrDataDirLocked is returned when another server already owns the data directory
var ErrDataDirLocked = errors.New("data directory is in use by another tubewatch server")

// Options configures a Server. Nil collaborators default to the yt-dlp and LLM adapters.
type Options struct {
	Config     *config.Config
	Logger     *log.Logger
	Fetcher    services.MediaFetcher
	Lister     services.ChannelLister
	Summarizer services.SummaryProvider
}

// Server owns every long-lived component of the web server
type Server struct {
	cfg       *config.Config
	logger    *log.Logger
	lock      *flock.Flock
	catalog   *catalog.Store
	store     services.JobStore
	hub       websocket.Hub
	runner    services.Runner
	refresher *services.Refresher
	engine    *gin.Engine
	cancel    context.CancelFunc
}

// NewServer builds the server; background loops start with Start or Run
func NewServer(opts Options) (*Server, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = logging.New(nil, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	}

	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock := flock.New(filepath.Join(cfg.Data.Dir, "tubewatch.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire data dir lock: %w", err)
	}
	if !locked {
		return nil, ErrDataDirLocked
	}

	cat, err := catalog.Open(cfg.DBPath())
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	settings, err := services.NewDownloadSettings(
		filepath.Join(cfg.Data.Dir, "settings.json"),
		services.DownloadOptions{Quality: cfg.Jobs.Quality, Transcode: cfg.Jobs.Transcode},
	)
	if err != nil {
		_ = cat.Close()
		_ = lock.Unlock()
		return nil, err
	}

	media := services.NewMediaFiles(cfg.VideosDir(), logging.Component(logger, "media"))
	ytdlp := services.NewYTDLPFetcher(services.FetcherConfig{
		Dir:      cfg.VideosDir(),
		Settings: settings,
		Media:    media,
		Logger:   logging.Component(logger, "fetcher"),
	})

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = ytdlp
	}
	lister := opts.Lister
	if lister == nil {
		lister = ytdlp
	}
	summarizer := opts.Summarizer
	if summarizer == nil {
		summarizer = services.NewLLMSummarizer(services.SummarizerConfig{
			Dir:         cfg.VideosDir(),
			Model:       cfg.LLM.Model,
			Host:        cfg.LLM.Host,
			Endpoint:    cfg.LLM.Endpoint,
			APIKey:      cfg.LLM.APIKey,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout.Duration,
			Logger:      logging.Component(logger, "summarizer"),
		})
	}

	// Initialize services
	store := services.NewJobStore()
	hub := websocket.NewHub(store.Snapshot(), logging.Component(logger, "hub"))
	store.OnChange(func(state types.JobState) {
		hub.Broadcast(types.StateEvent(state))
	})

	runner := services.NewRunner(services.RunnerConfig{
		Store:      store,
		Hub:        hub,
		Catalog:    cat,
		Fetcher:    fetcher,
		Summarizer: summarizer,
		Logger:     logging.Component(logger, "runner"),
		Workers:    cfg.Jobs.Workers,
		QueueSize:  cfg.Jobs.QueueSize,
	})

	refresher := services.NewRefresher(services.RefresherConfig{
		Catalog:   cat,
		Lister:    lister,
		Hub:       hub,
		Interval:  cfg.Refresh.Interval.Duration,
		PerMinute: cfg.Refresh.PerMinute,
		Logger:    logging.Component(logger, "refresher"),
	})

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		lock:      lock,
		catalog:   cat,
		store:     store,
		hub:       hub,
		runner:    runner,
		refresher: refresher,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.engine = s.setupRouter(ctx, media, settings)
	return s, nil
}

// setupRouter configures middleware and every HTTP route
func (s *Server) setupRouter(ctx context.Context, media services.MediaFiles, settings *services.DownloadSettings) *gin.Engine {
	httpLogger := logging.Component(s.logger, "http")

	// Initialize handlers
	jobHandler := handlers.NewJobHandler(s.runner, s.store)
	videoHandler := handlers.NewVideoHandler(s.catalog, media, s.runner, s.hub, httpLogger)
	channelHandler := handlers.NewChannelHandler(ctx, s.catalog, s.refresher, s.hub, httpLogger)
	eventHandler := handlers.NewEventHandler(s.hub, logging.Component(s.logger, "events"))
	healthHandler := handlers.NewHealthHandler(s.hub, s.store)
	settingsHandler := handlers.NewSettingsHandler(settings)

	r := gin.New()

	// Apply middleware
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(s.cfg.Server.CORSOrigins))
	r.Use(middleware.Logging(httpLogger))
	r.Use(middleware.Security())
	r.Use(eventHandler.EventStreamFallback())

	// Health check endpoint
	r.GET("/health", healthHandler.HealthCheck)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/status", healthHandler.APIStatus)
		apiGroup.GET("/state", jobHandler.GetState)

		// Jobs
		apiGroup.POST("/download-video", jobHandler.DownloadVideo)
		apiGroup.POST("/summarize-video", jobHandler.SummarizeVideo)

		// Catalog
		apiGroup.GET("/videos", videoHandler.ListVideos)
		apiGroup.GET("/video/:id", videoHandler.GetVideo)
		apiGroup.GET("/media/:id", videoHandler.StreamMedia)
		apiGroup.POST("/ignore-video", videoHandler.IgnoreVideo)
		apiGroup.POST("/delete-video", videoHandler.DeleteVideo)
		apiGroup.POST("/watch-later", videoHandler.AddToWatchLater)
		apiGroup.DELETE("/watch-later", videoHandler.RemoveFromWatchLater)
		apiGroup.GET("/watch-later/:id", videoHandler.CheckWatchLater)

		// Channels
		apiGroup.GET("/channels", channelHandler.ListChannels)
		apiGroup.POST("/channels", channelHandler.AddChannel)
		apiGroup.DELETE("/channels", channelHandler.RemoveChannel)
		apiGroup.POST("/refresh-videos", channelHandler.RefreshVideos)

		// Settings
		apiGroup.GET("/settings", settingsHandler.GetSettings)
		apiGroup.POST("/settings", settingsHandler.UpdateSettings)

		// Push channel
		apiGroup.GET("/events", eventHandler.HandleSSE)
		apiGroup.GET("/ws/events", eventHandler.HandleWebSocket)
	}

	return r
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start launches the hub, the job workers and the refresh loop
func (s *Server) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	prev := s.cancel
	s.cancel = func() {
		cancel()
		prev()
	}

	go s.hub.Run(ctx)
	s.runner.Start(ctx)
	go s.refresher.Run(ctx)
}

// Run starts the background loops and serves HTTP until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	s.Start(ctx)

	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("tubewatch web server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown", "err", err)
	}
	return nil
}

// Close stops the background loops, waits for running jobs to exit and
// releases the catalog and the data directory lock
func (s *Server) Close() error {
	s.cancel()
	s.runner.Wait()

	var errs []error
	if err := s.catalog.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.lock.Unlock(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
