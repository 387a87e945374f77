package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/pixshare/pixshare-api/internal/http/handlers"
	httpmw "github.com/pixshare/pixshare-api/internal/http/middleware"
	"github.com/pixshare/pixshare-api/internal/migrations"
	"github.com/pixshare/pixshare-api/internal/platform/mailer"
	"github.com/pixshare/pixshare-api/internal/platform/oauth"
	"github.com/pixshare/pixshare-api/internal/platform/storage"
	"github.com/pixshare/pixshare-api/internal/platform/token"
	"github.com/pixshare/pixshare-api/internal/repo/postgres"
	"github.com/pixshare/pixshare-api/internal/service"
	"github.com/pixshare/pixshare-api/pkg/config"
	"github.com/pixshare/pixshare-api/pkg/database"
	"github.com/pixshare/pixshare-api/pkg/events"
	"github.com/pixshare/pixshare-api/pkg/logger"
	mw "github.com/pixshare/pixshare-api/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrations.Run(ctx, cfg.Database.URL); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient := newRedisClient(cfg.Redis)
	defer redisClient.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	store := postgres.NewStore(pool)
	tokens := token.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	mailSvc := newMailer(cfg)
	presigner := storage.NewPresigner(cfg.Storage)
	google := oauth.NewGoogleProvider(cfg.OAuth.GoogleTokenInfoURL, cfg.OAuth.RequestTimeout)
	facebook := oauth.NewFacebookProvider(cfg.OAuth.FacebookGraphURL, cfg.OAuth.RequestTimeout)

	otpService := service.NewOTPService(cfg.OTP)
	authService := service.NewAuthService(store, otpService, tokens, mailSvc, google, facebook, eventBus, cfg)
	contentService := service.NewContentService(store, presigner, eventBus)
	engagementService := service.NewEngagementService(store, redisClient, eventBus)
	adminService := service.NewAdminService(store, otpService, eventBus)

	h := handlers.New(authService, contentService, engagementService, adminService, tokens, cfg)
	limiter := httpmw.NewRateLimiter(redisClient, "ratelimit")

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/auth", func(r chi.Router) {
		// Unauthenticated endpoints get per-IP throttling.
		r.Group(func(r chi.Router) {
			r.Use(limiter.Limit("auth", 20, time.Minute))
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/google", h.GoogleLogin)
			r.Post("/facebook", h.FacebookLogin)
			r.Post("/refresh-token", h.RefreshToken)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/verify-otp", h.VerifyResetOTP)
			r.Post("/reset-password", h.ResetPassword)
		})

		r.Post("/verify-token", h.VerifyToken)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireJWT(""))
			r.Post("/request-verification", h.RequestEmailVerification)
			r.Post("/verify-email", h.VerifyEmail)
			r.Post("/change-password", h.ChangePassword)
		})
	})

	r.Route("/content", func(r chi.Router) {
		r.Get("/", h.ListContent)
		r.Get("/{id}", h.GetContent)
		r.Get("/{id}/comments", h.ListComments)
		r.Get("/{id}/download", h.DownloadContent)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireJWT(""))
			r.Post("/", h.CreateContent)
			r.Get("/mine", h.ListMyContent)
			r.Delete("/{id}", h.DeleteContent)
			r.Post("/{id}/like", h.LikeContent)
			r.Delete("/{id}/like", h.UnlikeContent)
			r.Post("/{id}/comments", h.CommentContent)
			r.Post("/{id}/view", h.ViewContent)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.RequireJWT("admin"))
		r.Get("/users", h.ListUsers)
		r.Get("/users/{id}", h.GetUser)
		r.Patch("/users/{id}/status", h.SetUserStatus)
		r.Patch("/users/{id}/credits", h.AdjustCredits)
		r.Delete("/users/{id}", h.DeleteUser)
		r.Delete("/users/{id}/purge", h.PurgeUser)
		r.Post("/otps/cleanup", h.CleanupOTPs)
	})

	// Periodically retire expired verification codes.
	cleanupCtx, cancelCleanup := context.WithCancel(ctx)
	defer cancelCleanup()
	go runOTPCleanup(cleanupCtx, authService, cfg.OTP.CleanupInterval)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")
		cancelCleanup()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting server", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func newRedisClient(cfg config.RedisConfig) *redis.Client {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		logger.Warn("Invalid REDIS_URL, using defaults", "error", err)
		opts = &redis.Options{Addr: "localhost:6379"}
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	return redis.NewClient(opts)
}

func newMailer(cfg *config.Config) mailer.Service {
	switch {
	case cfg.Email.DevMode:
		return mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	default:
		return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}
}

func runOTPCleanup(ctx context.Context, auth service.AuthService, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := auth.CleanupExpiredOTPs(ctx)
			if err != nil {
				logger.Error("OTP cleanup failed", "error", err)
				continue
			}
			if count > 0 {
				logger.Info("Expired OTPs retired", "count", count)
			}
		}
	}
}
