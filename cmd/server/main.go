// Package main runs the GreekDash HTTP API with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cwbutler6/greekdash/config"
	"github.com/cwbutler6/greekdash/internal/audit"
	"github.com/cwbutler6/greekdash/internal/auth"
	"github.com/cwbutler6/greekdash/internal/billing"
	"github.com/cwbutler6/greekdash/internal/broadcast"
	"github.com/cwbutler6/greekdash/internal/chapters"
	"github.com/cwbutler6/greekdash/internal/events"
	"github.com/cwbutler6/greekdash/internal/finance"
	"github.com/cwbutler6/greekdash/internal/invites"
	"github.com/cwbutler6/greekdash/internal/members"
	"github.com/cwbutler6/greekdash/internal/middleware"
	"github.com/cwbutler6/greekdash/internal/models"
	"github.com/cwbutler6/greekdash/pkg/database"
	"github.com/cwbutler6/greekdash/pkg/queue"
	"github.com/cwbutler6/greekdash/pkg/redis"
	"github.com/cwbutler6/greekdash/pkg/response"
	"github.com/cwbutler6/greekdash/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ReceiptsBucket:       cfg.AWS.ReceiptsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Messaging (logs + delivery enqueue)
	broadcastRepo := broadcast.NewRepository(pool)
	notifier := broadcast.NewNotifier(broadcastRepo, jobQueue, logger)

	// Audit
	auditRepo := audit.NewRepository(pool)
	auditHandler := audit.NewHandler(auditRepo)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, notifier, cfg.App.BaseURL, logger)

	// Chapters and members
	chapterRepo := chapters.NewRepository(pool)
	memberRepo := members.NewRepository(pool)
	chapterHandler := chapters.NewHandler(chapterRepo, memberRepo, auditRepo, logger)
	memberHandler := members.NewHandler(memberRepo, auditRepo, logger)

	// Invites
	inviteRepo := invites.NewRepository(pool)
	inviteHandler := invites.NewHandler(pool, inviteRepo, memberRepo, notifier, auditRepo, cfg.App.BaseURL, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, auditRepo, logger)

	// Finance
	financeRepo := finance.NewRepository(pool)
	financeHandler := finance.NewHandler(pool, financeRepo, memberRepo, s3Client, auditRepo, logger)

	// Billing
	billingRepo := billing.NewRepository(pool)
	billingService := billing.NewService(cfg.Stripe, cfg.App.BaseURL, chapterRepo, logger)
	billingHandler := billing.NewHandler(billingRepo, billingService, logger)
	stripeWebhook := billing.NewWebhookHandler(billingRepo, billingService, auditRepo, cfg.Stripe.WebhookSecret, logger)

	// Broadcasts
	broadcastHandler := broadcast.NewHandler(broadcastRepo, notifier, auditRepo, logger)

	middleware.RegisterMetrics()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	// Health and metrics
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	router.GET("/chapters/:slug/public", chapterHandler.Public)
	router.POST("/webhooks/stripe", stripeWebhook.Handle)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/forgot-password", authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
	}

	// Authenticated, not chapter-scoped
	api := router.Group("/api")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/me", authHandler.Me)
		api.GET("/me/default-chapter", authHandler.DefaultChapter)
		api.POST("/chapters", chapterHandler.Create)
		api.POST("/chapters/:slug/join", chapterHandler.Join)
		api.POST("/invites/:token/accept", inviteHandler.Accept)
	}

	// Chapter-scoped routes. Role thresholds are enforced per group; every
	// group resolves the chapter and membership via ChapterAccess.
	pending := api.Group("/chapters/:slug")
	pending.Use(middleware.ChapterAccessAllowPending(chapterRepo, memberRepo))
	{
		pending.GET("/membership", chapterHandler.MyMembership)
	}

	member := api.Group("/chapters/:slug")
	member.Use(middleware.ChapterAccess(chapterRepo, memberRepo, models.RoleMember))
	{
		member.GET("", chapterHandler.Get)
		member.GET("/events", eventHandler.List)
		member.GET("/events/:id", eventHandler.Get)
		member.PUT("/events/:id/rsvp", eventHandler.UpsertRSVP)
	}

	admin := api.Group("/chapters/:slug")
	admin.Use(middleware.ChapterAccess(chapterRepo, memberRepo, models.RoleAdmin))
	{
		admin.PATCH("/settings", chapterHandler.UpdateSettings)

		admin.GET("/members", memberHandler.List)
		admin.POST("/members/:id/approve", memberHandler.Approve)
		admin.DELETE("/members/:id", memberHandler.Remove)
		admin.PATCH("/members/:id/role", memberHandler.ChangeRole)

		admin.POST("/invites", inviteHandler.Create)
		admin.GET("/invites", inviteHandler.List)
		admin.POST("/invites/:id/resend", inviteHandler.Resend)
		admin.DELETE("/invites/:id", inviteHandler.Revoke)

		admin.POST("/events", eventHandler.Create)
		admin.PATCH("/events/:id", eventHandler.Update)
		admin.DELETE("/events/:id", eventHandler.Delete)
		admin.GET("/events/:id/rsvps", eventHandler.ListRSVPs)

		admin.POST("/broadcasts", broadcastHandler.Send)
		admin.GET("/broadcasts", broadcastHandler.List)

		admin.GET("/audit", auditHandler.List)

		admin.GET("/billing/subscription", billingHandler.Get)

		// Finance requires a paid plan on top of the admin role.
		budgets := admin.Group("/finance", middleware.RequirePlan(billingRepo, models.FeatureBudgets))
		{
			budgets.POST("/budgets", financeHandler.CreateBudget)
			budgets.GET("/budgets", financeHandler.ListBudgets)
			budgets.PATCH("/budgets/:id", financeHandler.UpdateBudget)
			budgets.DELETE("/budgets/:id", financeHandler.DeleteBudget)
		}
		expenses := admin.Group("/finance", middleware.RequirePlan(billingRepo, models.FeatureExpenses))
		{
			expenses.POST("/expenses", financeHandler.CreateExpense)
			expenses.GET("/expenses", financeHandler.ListExpenses)
			expenses.POST("/expenses/:id/approve", financeHandler.ApproveExpense)
			expenses.POST("/expenses/:id/pay", financeHandler.PayExpense)
			expenses.POST("/expenses/:id/receipt-upload-url", financeHandler.ReceiptUploadURL)
			expenses.GET("/expenses/:id/receipt-url", financeHandler.ReceiptURL)
			expenses.POST("/transactions", financeHandler.CreateTransaction)
			expenses.GET("/transactions", financeHandler.ListTransactions)
			expenses.GET("/summary", financeHandler.Summary)
		}
		dues := admin.Group("/finance", middleware.RequirePlan(billingRepo, models.FeatureDues))
		{
			dues.POST("/dues", financeHandler.CreateDues)
			dues.GET("/dues", financeHandler.ListDues)
			dues.POST("/dues/:id/pay", financeHandler.PayDues)
		}
	}

	owner := api.Group("/chapters/:slug")
	owner.Use(middleware.ChapterAccess(chapterRepo, memberRepo, models.RoleOwner))
	{
		owner.POST("/billing/checkout", billingHandler.Checkout)
		owner.POST("/billing/portal", billingHandler.Portal)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
