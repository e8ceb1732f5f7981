package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-passwordless/internal/application/audit"
	"github.com/go-passwordless/internal/application/auth"
	"github.com/go-passwordless/internal/application/message"
	"github.com/go-passwordless/internal/application/token"
	"github.com/go-passwordless/internal/application/translation"
	"github.com/go-passwordless/internal/application/verification"
	"github.com/go-passwordless/internal/config"
	"github.com/go-passwordless/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-passwordless/internal/infrastructure/jwt"
	redisinfra "github.com/go-passwordless/internal/infrastructure/redis"
	s3infra "github.com/go-passwordless/internal/infrastructure/s3"
	"github.com/go-passwordless/internal/infrastructure/smtp"
	"github.com/go-passwordless/internal/infrastructure/sns"
	transporthttp "github.com/go-passwordless/internal/transport/http"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, reading from environment")
	}

	cfg := config.Load()

	level := slog.LevelInfo
	if cfg.AppEnv == "development" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	engine, err := jwtinfra.NewProviderFromConfig(cfg)
	if err != nil {
		fatal("JWT provider not available", err)
	}
	tokens := token.NewService(engine, token.Config{
		UnverifiedTTL: cfg.UnverifiedTTL,
		VerifiedTTL:   cfg.VerifiedTTL,
	})

	codes := verification.NewMemoryStore(verification.Options{
		Digits:        cfg.CodeDigits,
		TTL:           cfg.CodeTTL,
		SweepInterval: cfg.CodeSweepInterval,
	})
	defer codes.Destroy()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		fatal("translations not available", err)
	}

	mailer, err := smtp.NewMailer(cfg)
	if err != nil {
		fatal("SMTP mailer not available", err)
	}

	// Audit log (optional).
	var auditor auth.Auditor
	var auditSvc audit.Service
	if cfg.AuditEnabled {
		dynamoClient, err := dynamo.NewClient(context.Background(), cfg)
		if err != nil {
			fatal("DynamoDB client not available", err)
		}
		dynamo.Bootstrap(context.Background(), dynamoClient, cfg.AuditTable)
		auditSvc = audit.NewService(dynamo.NewAuditRepo(dynamoClient, cfg.AuditTable), cfg.AuditRetention)
		auditor = auditSvc
	}

	// Per-address request limit (optional).
	var limiter auth.AddressLimiter
	if cfg.RedisAddr != "" {
		rdb := redisinfra.NewClient(cfg)
		defer rdb.Close()
		limiter = redisinfra.NewRequestLimiter(rdb, cfg.RedisKeyPrefix, cfg.RequestLimit, cfg.RequestWindow)
	}

	defaultLang := catalog.Default()
	newController := func(ch auth.Channel, d message.Dispatcher, tmpl message.Template) auth.Controller {
		return auth.NewController(auth.Options{
			Channel:         ch,
			Tokens:          tokens,
			Codes:           codes,
			Messages:        message.NewService(d, catalog, tmpl, cfg.DispatchTimeout),
			Decoder:         jwtinfra.Decoder{},
			Languages:       catalog,
			DefaultLanguage: defaultLang,
			Audit:           auditor,
			Limiter:         limiter,
		})
	}

	deps := &transporthttp.Deps{
		EmailAuth: newController(auth.EmailChannel, mailer, message.EmailTemplate),
		Audit:     auditSvc,
	}

	if cfg.SMSEnabled {
		client, err := sns.NewClient(context.Background(), cfg)
		if err != nil {
			fatal("SNS sender not available", err)
		}
		deps.SMSAuth = newController(auth.SMSChannel, sns.NewSender(client), message.SMSTemplate)
	}

	router, stopRouter := transporthttp.NewRouter(cfg, deps)
	defer stopRouter()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.DispatchTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv,
			"sms", cfg.SMSEnabled, "audit", cfg.AuditEnabled, "languages", len(catalog.Supported()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal("server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "err", err)
		return
	}
	slog.Info("server stopped")
}

// loadCatalog builds the translation catalog from the embedded bundle and,
// when configured, an override bundle stored in S3.
func loadCatalog(cfg *config.Config) (*translation.Catalog, error) {
	bundles := make([]translation.Bundle, 0, 2)
	embedded, err := translation.Embedded()
	if err != nil {
		return nil, err
	}
	bundles = append(bundles, embedded)

	if cfg.TranslationsS3Bucket != "" && cfg.TranslationsS3Key != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store := s3infra.NewStore(client, cfg.TranslationsS3Bucket)
		override, err := translation.Fetch(ctx, store, cfg.TranslationsS3Key)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, override)
	}

	defaultLang := cfg.DefaultLanguage
	if defaultLang == "" {
		defaultLang = language.English.String()
	}
	return translation.NewCatalog(defaultLang, bundles...)
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
