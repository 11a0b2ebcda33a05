// Package main is the entry point for the yield aggregation API: it wires the
// provider registry, the refresh orchestrator and the matching engine behind
// an HTTP surface.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/yield-agg-api/internal/config"
	"github.com/yourorg/yield-agg-api/internal/match"
	"github.com/yourorg/yield-agg-api/internal/notify"
	"github.com/yourorg/yield-agg-api/internal/otel"
	"github.com/yourorg/yield-agg-api/internal/provider"
	"github.com/yourorg/yield-agg-api/internal/refresh"
	"github.com/yourorg/yield-agg-api/internal/risk"
	"github.com/yourorg/yield-agg-api/internal/security"
	"github.com/yourorg/yield-agg-api/internal/store"
	"github.com/yourorg/yield-agg-api/internal/validation"
)

// startTime records when the service was initialized for uptime reporting
var startTime = time.Now()

// Server holds the wired application components behind the HTTP handlers.
type Server struct {
	config       config.Config
	store        *store.Store
	registry     *provider.Registry
	orchestrator *refresh.Orchestrator
	matcher      *match.Matcher
	signer       *security.Signer
	notifier     *notify.WebhookNotifier
	validate     *validator.Validate
	refreshLimit *rate.Limiter
	metrics      *httpMetrics
	server       *http.Server
}

func main() {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	setupLogging()
	cfg := config.Load()

	shutdownTracer := otel.InitTracer(cfg)
	defer shutdownTracer()

	st, err := store.Open(cfg)
	if err != nil {
		logrus.Fatalf("Failed to open store: %v", err)
	}
	if err := st.AutoMigrate(); err != nil {
		logrus.Fatalf("Failed to migrate schema: %v", err)
	}

	registry := provider.NewRegistry()
	adapters := []provider.Adapter{
		provider.NewLidoAdapter(cfg),
		provider.NewMarinadeAdapter(cfg),
		provider.NewDeFiLlamaAdapter(cfg),
	}
	for _, a := range adapters {
		if err := registry.Register(a); err != nil {
			logrus.Fatalf("Failed to register provider: %v", err)
		}
	}

	var breaker *refresh.ProviderBreaker
	if cfg.EnableBreaker {
		breaker = refresh.NewProviderBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown)
		logrus.Infof("Provider breaker enabled: threshold %d, cooldown %s",
			cfg.BreakerThreshold, cfg.BreakerCooldown)
	}

	orchestrator := refresh.New(registry, st, refresh.Options{
		Timeout:  cfg.FetchTimeout,
		Sanitize: validation.Options{MaxAPRBasisPoints: cfg.MaxAPRBasisPoints},
		Breaker:  breaker,
		Metrics:  refresh.NewMetrics(prometheus.DefaultRegisterer),
	})

	scorer := risk.NewScorer(time.Now().UnixNano())

	var signer *security.Signer
	if cfg.EnableSigning {
		signer, err = security.NewSigner()
		if err != nil {
			logrus.Fatalf("Failed to initialize result signer: %v", err)
		}
	}

	var notifier *notify.WebhookNotifier
	if cfg.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookAPIKey)
		logrus.Infof("Refresh webhook enabled: %s", cfg.WebhookURL)
	}

	s := &Server{
		config:       cfg,
		store:        st,
		registry:     registry,
		orchestrator: orchestrator,
		matcher:      match.New(scorer),
		signer:       signer,
		notifier:     notifier,
		validate:     validator.New(),
		refreshLimit: rate.NewLimiter(rate.Limit(cfg.RefreshRateLimit), cfg.RefreshRateBurst),
		metrics:      registerHTTPMetrics(prometheus.DefaultRegisterer),
	}

	logrus.WithFields(logrus.Fields{
		"port":      cfg.Port,
		"providers": registry.Len(),
		"breaker":   cfg.EnableBreaker,
		"signing":   cfg.EnableSigning,
	}).Info("Server initialized")

	s.Start()
}

// setupLogging configures the logging for the application
func setupLogging() {
	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))

	switch logFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	switch logLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// Start begins the HTTP server and sets up graceful shutdown
func (s *Server) Start() {
	s.server = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("Server starting on port %s", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server shutdown failed: %v", err)
	}
	if err := s.store.Close(); err != nil {
		logrus.Warnf("Error closing store: %v", err)
	}

	logrus.Info("Server stopped")
}
