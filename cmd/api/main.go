//	@title			FE2 Audio API
//	@version		1.0
//	@description	Upload metadata, upload credentials and a self-hosted blob endpoint for FE2 audio clips.
//
//	@host		localhost:8080
//	@BasePath	/api
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

//go:generate swag init -g main.go -d .,../../internal -o ../../docs/swagger --outputTypes go --packageName swagger

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/fe2audio/service/internal/audio"
	"github.com/fe2audio/service/internal/auth"
	"github.com/fe2audio/service/internal/blob"
	"github.com/fe2audio/service/internal/blobstore"
	"github.com/fe2audio/service/internal/config"
	"github.com/fe2audio/service/internal/credential"
	"github.com/fe2audio/service/internal/db"
	appMiddleware "github.com/fe2audio/service/internal/middleware"
	"github.com/fe2audio/service/internal/storage"

	_ "github.com/fe2audio/service/docs/swagger"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}
	handle := db.NewHandle(cfg.DatabaseURL, cfg.DBHealthInterval)
	defer handle.Close()

	// Wire dependencies: store → service → handler
	blobClient := blob.NewClient("", cfg.BlobTimeout)
	audioSvc := audio.NewService(audio.NewPostgresStore(handle), blobClient, cfg.RevocableHosts())
	audioHandler := audio.NewHandler(audioSvc)

	sealer, err := credential.NewSealer(cfg.CredentialSecret, cfg.CredentialTTL)
	if err != nil {
		log.Warn().Err(err).Msg("upload credentials disabled")
	}
	credentialHandler := credential.NewHandler(sealer, cfg.BlobAPIKey)

	if cfg.OAuthClientID == "" {
		log.Warn().Msg("OAUTH_CLIENT_ID not set, sign-in will fail")
	}
	provider := auth.NewOAuthProvider(
		cfg.OAuthClientID,
		cfg.OAuthClientSecret,
		cfg.OAuthRedirectURL,
		cfg.OAuthAuthURL,
		cfg.OAuthTokenURL,
		cfg.OAuthUserInfoURL,
	)
	authHandler := auth.NewHandler(auth.NewService(provider, cfg.JWTSecret, cfg.SessionTTL))

	var blobHandler *blobstore.Handler
	if cfg.BlobStoreEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		store, err := storage.NewMinioStorage(ctx, storage.MinioConfig{
			Endpoint:   cfg.StorageEndpoint,
			AccessKey:  cfg.StorageAccessKey,
			SecretKey:  cfg.StorageSecretKey,
			Bucket:     cfg.StorageBucket,
			PublicBase: cfg.StoragePublicBase,
			UseSSL:     cfg.StorageUseSSL,
		})
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("object storage init failed")
		}
		blobHandler = blobstore.NewHandler(store, cfg.BlobAPIKey, cfg.JWTSecret, strings.TrimRight(cfg.PublicBaseURL, "/")+"/api")
	}

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Use(appMiddleware.SecurityHeaders(cfg.UploadDomain))

		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", authHandler.Login)
			r.Get("/callback", authHandler.Callback)
		})

		r.With(appMiddleware.OptionalAuth(cfg.JWTSecret)).Get("/credential", credentialHandler.Get)
		r.Route("/uploads", audioHandler.Routes(cfg.JWTSecret))
		r.Post("/trim", audioHandler.Trim)

		if blobHandler != nil {
			r.Route("/blobs", blobHandler.Routes)
		}
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Bool("blobstore", blobHandler != nil).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-quit
	log.Info().Msg("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if !cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
