package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/MaezenDigital/Enemamar-backend/internal/adapter/cache"
	"github.com/MaezenDigital/Enemamar-backend/internal/adapter/chapa"
	"github.com/MaezenDigital/Enemamar-backend/internal/adapter/sms"
	"github.com/MaezenDigital/Enemamar-backend/internal/bootstrap"
	"github.com/MaezenDigital/Enemamar-backend/internal/config"
	httptransport "github.com/MaezenDigital/Enemamar-backend/internal/http"
	"github.com/MaezenDigital/Enemamar-backend/internal/http/handler"
	httpmiddleware "github.com/MaezenDigital/Enemamar-backend/internal/http/middleware"
	"github.com/MaezenDigital/Enemamar-backend/internal/jwt"
	"github.com/MaezenDigital/Enemamar-backend/internal/repository"
	"github.com/MaezenDigital/Enemamar-backend/internal/server"
	"github.com/MaezenDigital/Enemamar-backend/internal/service"
	"github.com/MaezenDigital/Enemamar-backend/internal/telemetry"
	"github.com/MaezenDigital/Enemamar-backend/internal/webhook"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newUserRepository,
			newRefreshTokenRepository,
			newCourseRepository,
			newLessonRepository,
			newEnrollmentRepository,
			newPaymentRepository,
			newRedisClient,
			newOTPStore,
			newSMSSender,
			newPaymentGateway,
			newWebhookVerifier,
			newTokenGenerator,
			service.NewAuthService,
			service.NewUserService,
			service.NewCourseService,
			service.NewLessonService,
			service.NewPaymentService,
			handler.NewAuthHandler,
			handler.NewUserHandler,
			handler.NewCourseHandler,
			handler.NewPaymentHandler,
			newAuthMiddleware,
			newRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, bootstrap.EnsureAdmin, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return repository.NewPostgresUserRepo(pool)
}

func newRefreshTokenRepository(pool *pgxpool.Pool) repository.RefreshTokenRepository {
	return repository.NewPostgresRefreshTokenRepo(pool)
}

func newCourseRepository(pool *pgxpool.Pool) repository.CourseRepository {
	return repository.NewPostgresCourseRepo(pool)
}

func newLessonRepository(pool *pgxpool.Pool) repository.LessonRepository {
	return repository.NewPostgresLessonRepo(pool)
}

func newEnrollmentRepository(pool *pgxpool.Pool) repository.EnrollmentRepository {
	return repository.NewPostgresEnrollmentRepo(pool)
}

func newPaymentRepository(pool *pgxpool.Pool) repository.PaymentRepository {
	return repository.NewPostgresPaymentRepo(pool)
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newOTPStore(client redis.UniversalClient) repository.OTPStore {
	return cacheadapter.NewRedisOTPStore(client)
}

func newSMSSender(cfg config.Config, logger *zap.Logger) sms.Sender {
	if cfg.SMSAPIKey == "" {
		return sms.NewLogSender(logger)
	}
	return sms.NewHTTPSender(nil, cfg.SMSEndpoint, cfg.SMSAPIKey, cfg.SMSSender)
}

func newPaymentGateway(cfg config.Config) chapa.Gateway {
	return chapa.NewHTTPGateway(nil, cfg.ChapaBaseURL, cfg.ChapaSecretKey)
}

func newWebhookVerifier(cfg config.Config) *webhook.Verifier {
	return webhook.NewVerifier(cfg.ChapaWebhookSecret)
}

func newTokenGenerator(cfg config.Config) *jwt.Generator {
	return jwt.NewGenerator(cfg.AccessTokenSecret, cfg.ResetTokenSecret, cfg.TokenIssuer, cfg.AccessTokenTTL, cfg.ResetTokenTTL)
}

func newAuthMiddleware(generator *jwt.Generator) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{JWT: generator}
}

func newRouter(cfg config.Config, logger *zap.Logger, auth *httpmiddleware.Auth, authH *handler.AuthHandler, userH *handler.UserHandler, courseH *handler.CourseHandler, paymentH *handler.PaymentHandler) *gin.Engine {
	return httptransport.NewRouter(httptransport.RouterParams{
		Config:   cfg,
		Logger:   logger,
		Auth:     auth,
		AuthH:    authH,
		UserH:    userH,
		CourseH:  courseH,
		PaymentH: paymentH,
	})
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
