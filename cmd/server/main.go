package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/communityportal/backend/internal/config"
	"github.com/communityportal/backend/internal/handler"
	"github.com/communityportal/backend/internal/logging"
	"github.com/communityportal/backend/internal/repository"
	"github.com/communityportal/backend/internal/service"
	"github.com/communityportal/backend/internal/storage"
	"github.com/communityportal/backend/internal/upload"
	pkgstripe "github.com/communityportal/backend/pkg/stripe"
)

const uploadsPath = "/uploads"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("invalid configuration", "error", err)
	}
	logging.Setup(cfg.LogLevel)

	pool, err := repository.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logging.Fatal("failed to connect to database", "error", err)
	}
	defer pool.Close()

	requestRepo := repository.NewPgRequestRepository(pool)
	donationRepo := repository.NewPgDonationRepository(pool)
	contactRepo := repository.NewPgContactRepository(pool)
	eventRepo := repository.NewPgPaymentEventRepository(pool)

	// Stripe 設定（未設定の場合は開発モードで寄付を記録する）
	stripeClient := pkgstripe.NewClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	var provider service.PaymentProvider
	if cfg.StripeConfigured() {
		provider = stripeClient
	} else {
		slog.Warn("STRIPE_SECRET_KEY not set: donations are recorded in development mode")
	}

	var store storage.Storage
	switch cfg.StorageBackend {
	case config.StorageS3:
		s3Store, err := storage.NewS3Storage(context.Background(), cfg.S3Bucket, cfg.S3Region)
		if err != nil {
			logging.Fatal("failed to configure S3 storage", "error", err)
		}
		store = s3Store
	default:
		if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
			logging.Fatal("failed to create upload directory", "dir", cfg.UploadDir, "error", err)
		}
		store = storage.NewLocalStorage(cfg.UploadDir, uploadsPath)
	}
	policy := upload.DefaultPolicy()
	intake := upload.NewIntake(store, policy)

	requestService := service.NewRequestService(requestRepo, intake)
	donationService := service.NewDonationService(donationRepo, provider, cfg.StripeCurrency)
	contactService := service.NewContactService(contactRepo)
	reconcileService := service.NewReconcileService(stripeClient, donationRepo, eventRepo)

	h := handler.New(pool, cfg.FrontendURL)
	requestHandler := handler.NewRequestHandler(requestService, policy)
	donationHandler := handler.NewDonationHandler(donationService)
	contactHandler := handler.NewContactHandler(contactService)
	webhookHandler := handler.NewWebhookHandler(reconcileService)
	configHandler := handler.NewConfigHandler(cfg.StripePublicKey, !cfg.StripeConfigured())

	// 公開フォームはスパム対策でレート制限する
	limiter := handler.NewRateLimiter(cfg.RateLimitPerMinute).WithTrustedProxies(cfg.TrustedProxyCount)
	defer limiter.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /api/config", configHandler.Get)
	mux.Handle("POST /api/submit-request", limiter.Middleware(http.HandlerFunc(requestHandler.Submit)))
	mux.Handle("POST /api/create-payment-intent", limiter.Middleware(http.HandlerFunc(donationHandler.CreatePaymentIntent)))
	mux.Handle("POST /api/contact", limiter.Middleware(http.HandlerFunc(contactHandler.Submit)))

	// Stripe webhook は署名で保護されるためレート制限しない
	mux.HandleFunc("POST /api/webhooks/stripe", webhookHandler.Stripe)

	if local, ok := store.(*storage.LocalStorage); ok {
		mux.Handle("GET "+uploadsPath+"/", handler.Uploads(local.Dir()))
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.RequestLogger(handler.SecurityHeaders(h.CORS(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		// multipart uploads of up to five 10MB files
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
	}

	go func() {
		slog.Info("server listening", "addr", server.Addr, "storage", cfg.StorageBackend, "stripe", cfg.StripeConfigured())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
