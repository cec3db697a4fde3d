package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appidentity "github.com/merchant/backend/internal/application/identity"
	appotp "github.com/merchant/backend/internal/application/otp"
	"github.com/merchant/backend/internal/domain/otp"
	"github.com/merchant/backend/internal/infrastructure/auth"
	"github.com/merchant/backend/internal/infrastructure/cache"
	"github.com/merchant/backend/internal/infrastructure/config"
	"github.com/merchant/backend/internal/infrastructure/logger"
	"github.com/merchant/backend/internal/infrastructure/notification"
	"github.com/merchant/backend/internal/infrastructure/persistence"
	"github.com/merchant/backend/internal/infrastructure/telemetry"
	"github.com/merchant/backend/internal/interfaces/http/handler"
	"github.com/merchant/backend/internal/interfaces/http/middleware"
	"github.com/merchant/backend/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

//	@title			Merchant Backend API
//	@version		1.0
//	@description	Merchant sign-in, one-time passcodes and onboarding

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(logger.FromLogConfig(cfg.Log))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = baseLog.Sync()
	}()

	ctx := context.Background()

	// Telemetry comes first so the bridged logger and the DB plugin can use it
	logProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log := logProvider.Bridge(baseLog)

	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdownTelemetry(log, tracerProvider, meterProvider, logProvider)

	log.Info("Starting merchant backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, tracerProvider, "postgresql", log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	poolMetrics, err := telemetry.RegisterDBPoolMetrics(meterProvider.Meter("merchant/db"), db.PoolStats)
	if err != nil {
		log.Fatal("Failed to register database pool metrics", zap.Error(err))
	}
	defer func() { _ = poolMetrics.Unregister() }()
	log.Info("Database connected successfully")

	// Redis is optional; without it limits and revocations are per process
	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = client.Close() }()
		redisClient = client
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	var blacklist auth.TokenBlacklist
	if redisClient != nil {
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
	}

	authMetrics, err := telemetry.NewAuthMetrics(meterProvider.Meter("merchant/auth"))
	if err != nil {
		log.Fatal("Failed to create auth metrics", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT)
	authService, onboardingService, err := newServices(cfg, db, jwtService, blacklist, authMetrics, log)
	if err != nil {
		log.Fatal("Failed to initialize services", zap.Error(err))
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	limiters := cache.NewLimiterFactory(redisClient, cache.WithLogger(log))
	engine, closers, err := newEngine(engineDeps{
		cfg:        cfg,
		log:        log,
		db:         db,
		jwtService: jwtService,
		blacklist:  blacklist,
		limiters:   limiters,
		meter:      meterProvider.Meter("merchant/http"),
		tracer:     tracerProvider,
		auth:       handler.NewAuthHandler(authService),
		merchant:   handler.NewMerchantHandler(authService, onboardingService),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server exited gracefully")
}

// newServices builds the OTP and identity application services
func newServices(
	cfg *config.Config,
	db *persistence.Database,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	metrics *telemetry.AuthMetrics,
	log *zap.Logger,
) (*appidentity.AuthService, *appidentity.OnboardingService, error) {
	env, err := appotp.NewEnvironment(cfg.App.Env, cfg.OTP.TestBypassEnabled, cfg.OTP.TestCode)
	if err != nil {
		return nil, nil, err
	}
	if env.BypassEnabled() {
		log.Warn("OTP test bypass is enabled", zap.String("env", env.Name()))
	}

	hybridHasher, err := otp.NewHasher(cfg.OTP.Secret, otp.NamespaceHybrid)
	if err != nil {
		return nil, nil, err
	}
	emailHasher, err := otp.NewHasher(cfg.OTP.Secret, otp.NamespaceEmail)
	if err != nil {
		return nil, nil, err
	}

	hybridPolicy := otpPolicy(cfg.OTP, cfg.OTP.HybridTTL)
	emailPolicy := otpPolicy(cfg.OTP, cfg.OTP.EmailTTL)
	for _, p := range []otp.Policy{hybridPolicy, emailPolicy} {
		if err := p.Validate(); err != nil {
			return nil, nil, err
		}
	}

	senders, err := notification.NewRegistry(cfg.Notification, log.Named("notification"))
	if err != nil {
		return nil, nil, err
	}

	txScope := persistence.NewGormTransactionScope(db.DB, cfg.OTP.LockTimeout)
	otpLog := log.Named("otp")
	withMetrics := appotp.WithMetrics(metrics)

	otpServices := appidentity.OTPServices{
		HybridIssuer: appotp.NewIssuanceService(txScope, hybridHasher, senders,
			appotp.IssuanceConfig{Policy: hybridPolicy, DeliveryTimeout: cfg.OTP.DeliveryTimeout}, otpLog, withMetrics),
		HybridVerifier: appotp.NewVerificationService(txScope, hybridHasher, hybridPolicy, env, otpLog, withMetrics),
		EmailIssuer: appotp.NewIssuanceService(txScope, emailHasher, senders,
			appotp.IssuanceConfig{Policy: emailPolicy, DeliveryTimeout: cfg.OTP.DeliveryTimeout}, otpLog, withMetrics),
		EmailVerifier: appotp.NewVerificationService(txScope, emailHasher, emailPolicy, env, otpLog, withMetrics),
	}

	repos := appidentity.Repositories{
		Accounts:   persistence.NewGormAccountRepository(db.DB),
		Profiles:   persistence.NewGormProfileRepository(db.DB),
		Onboarding: persistence.NewGormOnboardingRepository(db.DB),
		Stores:     persistence.NewGormStoreRepository(db.DB),
	}
	identityLog := log.Named("identity")

	authService := appidentity.NewAuthService(repos, txScope, otpServices, jwtService, blacklist, identityLog,
		appidentity.WithEvents(metrics))
	onboardingService := appidentity.NewOnboardingService(repos, txScope, identityLog)
	return authService, onboardingService, nil
}

func otpPolicy(cfg config.OTPConfig, ttl time.Duration) otp.Policy {
	return otp.Policy{
		TTL:                ttl,
		MaxAttempts:        cfg.MaxAttempts,
		RateLimitWindow:    cfg.RateLimitWindow,
		RateLimitThreshold: cfg.RateLimitThreshold,
		ResendWindow:       cfg.ResendWindow,
	}
}

type engineDeps struct {
	cfg        *config.Config
	log        *zap.Logger
	db         *persistence.Database
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	limiters   *cache.LimiterFactory
	meter      metric.Meter
	tracer     *telemetry.TracerProvider
	auth       *handler.AuthHandler
	merchant   *handler.MerchantHandler
}

// newEngine assembles the middleware chain and routes. The returned closers
// release in-memory limiters.
func newEngine(d engineDeps) (*gin.Engine, []io.Closer, error) {
	cfg, log := d.cfg, d.log
	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order: request id, recovery, access log, tracing, metrics, security
	// headers, CORS, body limit, global rate limit
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if d.tracer.IsEnabled() {
		engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, d.tracer.Provider()), middleware.SpanEnricher())
	}
	httpMetrics, err := middleware.HTTPMetrics(d.meter)
	if err != nil {
		return nil, nil, err
	}
	engine.Use(httpMetrics)
	engine.Use(middleware.Secure())

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(cors))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	var closers []io.Closer
	track := func(l cache.RequestLimiter) cache.RequestLimiter {
		if c, ok := l.(io.Closer); ok {
			closers = append(closers, c)
		}
		return l
	}

	if cfg.HTTP.RateLimitEnabled {
		limiter := track(d.limiters.Create("http", cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow))
		engine.Use(middleware.RateLimit(middleware.RateLimitConfig{Limiter: limiter, Logger: log}))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	guards := router.Guards{
		Authenticate: middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			JWTService:     d.jwtService,
			TokenBlacklist: d.blacklist,
			Logger:         log,
		}),
	}
	if cfg.HTTP.OTPRateLimitRequests > 0 {
		limiter := track(d.limiters.Create("otp", cfg.HTTP.OTPRateLimitRequests, cfg.HTTP.OTPRateLimitWindow))
		guards.OTPLimit = middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: limiter,
			KeyFunc: middleware.RouteClientIPKey,
			Logger:  log,
		})
	}

	engine.GET("/health", handler.NewSystemHandler(d.db, version).Health)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(
		router.AuthRoutes(d.auth, guards),
		router.MerchantRoutes(d.merchant, guards),
	)
	r.Setup()

	return engine, closers, nil
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdownTelemetry flushes providers in reverse start order
func shutdownTelemetry(log *zap.Logger, providers ...shutdowner) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, p := range providers {
		if err := p.Shutdown(ctx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}
}
