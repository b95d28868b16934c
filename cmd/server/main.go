package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/crypto/bcrypt"

	"podsync-backend/internal/config"
	"podsync-backend/internal/database"
	"podsync-backend/internal/handlers"
	"podsync-backend/internal/health"
	"podsync-backend/internal/middleware"
	"podsync-backend/internal/models"
	"podsync-backend/internal/monitoring"
	"podsync-backend/internal/notifications"
	"podsync-backend/internal/progress"
	"podsync-backend/internal/repositories"
	"podsync-backend/internal/services"
	"podsync-backend/migrations"
)

func main() {
	// Parse command-line flags
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// Connect to database and apply migrations
	pool := database.Connect(cfg)
	defer pool.Close()

	migrator := database.NewMigrator(pool, migrations.FS, ".")
	if err := migrator.Run(context.Background()); err != nil {
		log.Fatalf("[Database] Migration failed: %v", err)
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(pool)
	podcastRepo := repositories.NewPodcastRepository(pool)
	episodeRepo := repositories.NewEpisodeRepository(pool)
	queueRepo := repositories.NewQueueRepository(pool)

	seedAdminUser(userRepo)

	// Metrics sinks
	promMetrics := monitoring.NewMetrics()
	metricsStore := monitoring.NewMetricsStore(pool)
	recorder := monitoring.NewRecorder(promMetrics, metricsStore)

	// Progress table shared by every engine
	table := progress.NewTable()

	// Initialize services
	deviceService := services.NewDeviceService()
	downloadService := services.NewDownloadService(table, cfg.Library.DownloadRoot, cfg.Library.DownloadTimeout)
	transferService := services.NewTransferService(table, deviceService)
	removalService := services.NewRemovalService()
	reconcileService := services.NewReconcileService(episodeRepo)
	episodeService := services.NewEpisodeService(
		episodeRepo,
		deviceService,
		downloadService,
		transferService,
		removalService,
		reconcileService,
		table,
		recorder,
		cfg.Library.ConcurrentDownloads,
	)
	queueService := services.NewQueueService(queueRepo, episodeService, cfg.Queue.Workers, cfg.Queue.PollInterval)
	queueService.Start()

	// Progress websocket hub
	hub := notifications.NewHub(table, cfg.CORS.AllowedOrigins)
	hub.Start()

	// Background system monitor
	monitor := monitoring.NewMonitor(metricsStore, promMetrics, queueService, cfg.Library.DownloadRoot, cfg.Monitoring.Interval)
	if cfg.Monitoring.Enabled {
		monitor.Start()
	}

	healthChecker := health.NewHealthChecker(pool, cfg.Library.DownloadRoot)
	authn := middleware.NewAuthenticator(cfg.JWT.Secret, cfg.JWT.TTL)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userRepo, authn)
	podcastHandler := handlers.NewPodcastHandler(podcastRepo, episodeRepo)
	episodeHandler := handlers.NewEpisodeHandler(episodeRepo, episodeService, queueService)
	deviceHandler := handlers.NewDeviceHandler(deviceService, episodeService)
	progressHandler := handlers.NewProgressHandler(table, hub)
	monitoringHandler := handlers.NewMonitoringHandler(metricsStore, queueService, queueRepo, healthChecker)

	router := newRouter(
		authn,
		promMetrics,
		authHandler,
		podcastHandler,
		episodeHandler,
		deviceHandler,
		progressHandler,
		monitoringHandler,
	)

	// Middleware chain, outermost first
	apiLogging := middleware.NewAPILoggingMiddleware(metricsStore, promMetrics)
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	var handler http.Handler = router
	handler = apiLogging.Handler(handler)
	handler = middleware.GzipCompression(handler)
	handler = middleware.APIRateLimiter.Middleware(handler)
	handler = corsMiddleware.Handler(handler)
	handler = middleware.SecurityHeaders(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: synchronous download requests and the progress
		// websocket hold their connections open longer than any fixed limit.
	}

	go func() {
		log.Printf("Server running on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received %s, shutting down", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	queueService.Stop()
	hub.Stop()
	if cfg.Monitoring.Enabled {
		monitor.Stop()
	}
	log.Println("Shutdown complete")
}

// seedAdminUser creates the initial admin account on an empty user table.
// The password comes from PODSYNC_ADMIN_PASSWORD, falling back to "admin".
func seedAdminUser(users *repositories.UserRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := users.Count(ctx)
	if err != nil {
		log.Printf("[Auth] Could not check user table: %v", err)
		return
	}
	if count > 0 {
		return
	}

	password := os.Getenv("PODSYNC_ADMIN_PASSWORD")
	if password == "" {
		password = "admin"
		log.Println("[Auth] PODSYNC_ADMIN_PASSWORD not set, seeding admin user with default password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[Auth] Failed to hash admin password: %v", err)
		return
	}

	if err := users.Create(ctx, &models.User{
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}); err != nil {
		log.Printf("[Auth] Failed to seed admin user: %v", err)
		return
	}
	log.Println("[Auth] Seeded initial admin user")
}

func newRouter(
	authn *middleware.Authenticator,
	promMetrics *monitoring.Metrics,
	authHandler *handlers.AuthHandler,
	podcastHandler *handlers.PodcastHandler,
	episodeHandler *handlers.EpisodeHandler,
	deviceHandler *handlers.DeviceHandler,
	progressHandler *handlers.ProgressHandler,
	monitoringHandler *handlers.MonitoringHandler,
) *mux.Router {
	r := mux.NewRouter()

	// Unauthenticated probes
	r.HandleFunc("/health", monitoringHandler.GetHealth).Methods("GET")
	r.Handle("/metrics", promMetrics.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// viewer routes require any valid token, admin routes the admin role
	viewer := func(h http.HandlerFunc) http.Handler { return authn.RequireAuth(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authn.RequireRole(models.RoleAdmin, h) }

	api.Handle("/auth/login", middleware.LoginRateLimiter.Middleware(http.HandlerFunc(authHandler.Login))).Methods("POST")
	api.Handle("/auth/me", viewer(authHandler.Me)).Methods("GET")

	api.Handle("/podcasts", viewer(podcastHandler.ListPodcasts)).Methods("GET")
	api.Handle("/podcasts", admin(podcastHandler.CreatePodcast)).Methods("POST")
	api.Handle("/podcasts/counts", viewer(podcastHandler.GetPodcastCounts)).Methods("GET")
	api.Handle("/podcasts/{id}", viewer(podcastHandler.GetPodcast)).Methods("GET")
	api.Handle("/podcasts/{id}", admin(podcastHandler.DeletePodcast)).Methods("DELETE")
	api.Handle("/podcasts/{id}/episodes", viewer(podcastHandler.ListPodcastEpisodes)).Methods("GET")

	api.Handle("/episodes", viewer(episodeHandler.ListEpisodes)).Methods("GET")
	api.Handle("/episodes", admin(episodeHandler.CreateEpisode)).Methods("POST")
	api.Handle("/episodes/downloaded", viewer(episodeHandler.ListDownloaded)).Methods("GET")
	api.Handle("/episodes/{id}", viewer(episodeHandler.GetEpisode)).Methods("GET")
	api.Handle("/episodes/{id}/download", admin(episodeHandler.DownloadEpisode)).Methods("POST")
	api.Handle("/episodes/{id}/download", admin(episodeHandler.DeleteDownload)).Methods("DELETE")
	api.Handle("/episodes/{id}/queue", admin(episodeHandler.EnqueueDownload)).Methods("POST")
	api.Handle("/episodes/{id}/status", admin(episodeHandler.SetStatus)).Methods("PUT")
	api.Handle("/episodes/{id}/transfer", admin(episodeHandler.TransferToDevice)).Methods("POST")
	api.Handle("/episodes/{id}/remove-from-device", admin(episodeHandler.RemoveFromDevice)).Methods("POST")

	api.Handle("/devices", viewer(deviceHandler.ListDevices)).Methods("GET")
	api.Handle("/devices/{deviceID}/episodes", viewer(deviceHandler.ListDeviceEpisodes)).Methods("GET")
	api.Handle("/devices/{deviceID}/indicators", viewer(deviceHandler.GetStatusIndicators)).Methods("GET")
	api.Handle("/devices/{deviceID}/verify", viewer(deviceHandler.VerifyDevice)).Methods("GET")
	api.Handle("/devices/{deviceID}/sync", admin(deviceHandler.SyncDevice)).Methods("POST")

	api.Handle("/progress", viewer(progressHandler.GetProgress)).Methods("GET")
	api.Handle("/progress/entry", viewer(progressHandler.GetProgressEntry)).Methods("GET")
	api.Handle("/progress/ws", viewer(progressHandler.StreamProgress)).Methods("GET")

	api.Handle("/monitoring/queue", viewer(monitoringHandler.GetQueueStats)).Methods("GET")
	api.Handle("/monitoring/queue/retry-failed", admin(monitoringHandler.RetryFailedDownloads)).Methods("POST")
	api.Handle("/monitoring/transfers", viewer(monitoringHandler.GetTransferSummary)).Methods("GET")
	api.Handle("/monitoring/api", viewer(monitoringHandler.GetAPIAnalytics)).Methods("GET")
	api.Handle("/monitoring/api/logs", viewer(monitoringHandler.GetRecentAPILogs)).Methods("GET")
	api.Handle("/monitoring/system", viewer(monitoringHandler.GetSystemTrends)).Methods("GET")

	return r
}
