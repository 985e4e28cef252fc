// Package main initializes and starts the GlobiFy web server, setting up
// configuration, logging, the database, mail delivery, avatar storage,
// services, handlers and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/globify/internal/certgen"
	"github.com/atinyakov/globify/internal/config"
	"github.com/atinyakov/globify/internal/db"
	"github.com/atinyakov/globify/internal/logger"
	"github.com/atinyakov/globify/internal/mailer"
	"github.com/atinyakov/globify/internal/repository"
	"github.com/atinyakov/globify/internal/server/handler/http"
	"github.com/atinyakov/globify/internal/service"
	"github.com/atinyakov/globify/internal/session"
	"github.com/atinyakov/globify/internal/storage"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const (
	uploadURLPrefix = "/static/uploads"
	authRateLimit   = 10
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Parse command-line, .env, file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel, options.LogFile); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection and schema.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer func() { _ = postgresDB.Close() }()

	// Purge accounts that never verified their email.
	db.StartUnverifiedCleaner(ctx, postgresDB.DB,
		time.Duration(options.CleanupInterval),
		time.Duration(options.UnverifiedRetention),
		zapLogger,
	)

	// Initialize repositories.
	userRepo := repository.NewPostgresUserRepository(postgresDB)
	entryRepo := repository.NewPostgresEntryRepository(postgresDB)

	// Verification mail. Without SMTP credentials the link is only logged.
	var sender mailer.Sender
	if options.SMTPHost != "" && options.EmailSender != "" {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     options.SMTPHost,
			Port:     options.SMTPPort,
			Username: options.EmailSender,
			Password: options.EmailPassword,
			From:     options.EmailSender,
		})
	} else {
		zapLogger.Warn("SMTP is not configured, verification links will be logged")
	}
	verifier := mailer.NewVerifier(sender, options.BaseURL, time.Minute, zapLogger)

	avatars, uploadDir, err := newAvatarStore(ctx, options)
	if err != nil {
		zapLogger.Fatal("cannot init avatar storage", zap.Error(err))
	}

	// Initialize business-logic services.
	authService := service.NewAuthService(userRepo, service.NewBcryptHasher(), verifier, zapLogger)
	catalogService := service.NewCatalogService(entryRepo)
	feedService := service.NewFeedService(entryRepo)
	profileService := service.NewProfileService(userRepo, avatars, zapLogger)

	sessions := session.NewManager([]byte(options.SecretKey), time.Duration(options.SessionTTL), options.TLSEnabled())

	views, err := http.NewRenderer(zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot parse templates", zap.Error(err))
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(http.RouterConfig{
		Auth:          &http.AuthHandler{AuthService: authService, Sessions: sessions, Views: views, Logger: zapLogger},
		Catalog:       &http.CatalogHandler{Catalog: catalogService, Views: views},
		Profile:       &http.ProfileHandler{Profiles: profileService, Views: views},
		Home:          &http.HomeHandler{Feed: feedService, Views: views, DB: postgresDB},
		Sessions:      sessions,
		Users:         authService,
		StaticDir:     options.StaticDir,
		UploadDir:     uploadDir,
		AuthRateLimit: authRateLimit,
		Logger:        zapLogger,
	})

	server := &nethttp.Server{
		Addr:              options.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if options.TLSEnabled() {
		tlsConfig, err := newTLSConfig(options)
		if err != nil {
			zapLogger.Fatal("failed to load server TLS cert/key", zap.Error(err))
		}
		server.TLSConfig = tlsConfig
	}

	go func() {
		var err error
		if server.TLSConfig != nil {
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Address))
			err = server.ListenAndServeTLS("", "")
		} else {
			zapLogger.Info("starting HTTP server", zap.String("addr", options.Address))
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	verifier.Wait()
}

// newAvatarStore picks the configured avatar backend. The returned directory
// is served by the router and is empty for S3.
func newAvatarStore(ctx context.Context, o *config.Options) (service.AvatarStore, string, error) {
	if o.AvatarStorage == config.StorageS3 {
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:  o.S3Endpoint,
			Region:    o.S3Region,
			AccessKey: o.S3AccessKey,
			SecretKey: o.S3SecretKey,
			Bucket:    o.S3Bucket,
			PublicURL: o.S3PublicURL,
		})
		return store, "", err
	}

	store, err := storage.NewLocalStore(o.UploadDir, uploadURLPrefix)
	return store, o.UploadDir, err
}

// newTLSConfig loads the configured key pair, or a self-signed development
// certificate under certs/ when DevTLS is set.
func newTLSConfig(o *config.Options) (*tls.Config, error) {
	var (
		cert tls.Certificate
		err  error
	)
	if o.TLSCert != "" {
		cert, err = tls.LoadX509KeyPair(o.TLSCert, o.TLSKey)
	} else {
		cert, err = certgen.LoadOrCreate(
			filepath.Join("certs", "server.crt"),
			filepath.Join("certs", "server.key"),
			certgen.DefaultHosts,
		)
	}
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
