package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/alexedwards/argon2id"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/eventflow/internal/auth"
	"github.com/redmonkez12/eventflow/internal/config"
	"github.com/redmonkez12/eventflow/internal/database"
	"github.com/redmonkez12/eventflow/internal/email"
	"github.com/redmonkez12/eventflow/internal/engagement"
	"github.com/redmonkez12/eventflow/internal/event"
	httpServer "github.com/redmonkez12/eventflow/internal/http"
	"github.com/redmonkez12/eventflow/internal/logging"
	"github.com/redmonkez12/eventflow/internal/rabbit"
	"github.com/redmonkez12/eventflow/internal/ratelimit"
	"github.com/redmonkez12/eventflow/internal/registration"
	"github.com/redmonkez12/eventflow/internal/user"
)

//go:generate swag init -g cmd/api/main.go -o docs

// @title           EventFlow API
// @version         1.0
// @description     Accounts, events, registrations and engagement scores for an event platform.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"token_strategy", cfg.Auth.TokenStrategy,
		"score_mode", cfg.Engagement.ScoreMode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database.ConnectionString(), database.PoolOptions{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db.DB); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	tokens, err := newTokenService(cfg.Auth)
	if err != nil {
		return err
	}
	hasher, err := newHasher(cfg.Password)
	if err != nil {
		return err
	}
	policy := auth.NewPasswordPolicy(auth.PolicyRules{
		MinLength:      cfg.Password.MinLength,
		MaxLength:      cfg.Password.MaxLength,
		RequireUpper:   cfg.Password.RequireUpper,
		RequireLower:   cfg.Password.RequireLower,
		RequireDigit:   cfg.Password.RequireDigit,
		RequireSpecial: cfg.Password.RequireSpecial,
	})

	denylist := auth.NewRedisDenylist(redisClient, cfg.Auth.AccessTokenDuration)
	gate := auth.NewGate(tokens, denylist)

	authService, err := auth.NewService(
		user.NewRepository(db),
		hasher,
		policy,
		tokens,
		denylist,
		auth.NewPasswordResetRepository(redisClient),
		email.NewService(cfg.Email),
		logger,
		auth.Options{
			TokenTTL:             cfg.Auth.AccessTokenDuration,
			RequireVerifiedEmail: cfg.Auth.RequireVerifiedEmail,
		},
	)
	if err != nil {
		return err
	}
	defer authService.Wait()

	rateLimiter := ratelimit.NewLimiter(redisClient, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, cfg.RateLimit.EmailCooldown)

	eventService := event.NewService(event.NewRepository(db), logger)
	registrationRepo := registration.NewRepository(db)
	engagementService := engagement.NewService(registrationRepo, engagement.NewRepository(db), eventService, logger)

	var workers sync.WaitGroup
	var refresher registration.ScoreRefresher
	switch cfg.Engagement.ScoreMode {
	case config.ScoreModeQueue:
		queue, err := rabbit.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Queue, logger)
		if err != nil {
			return err
		}
		defer queue.Close()

		refresher = engagement.NewQueueRefresher(queue)

		worker := engagement.NewWorker(queue, engagementService, logger)
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("engagement worker stopped", "error", err)
			}
		}()
	default:
		refresher = engagement.NewInlineRefresher(engagementService)
	}

	registrationService := registration.NewService(registrationRepo, eventService, refresher, logger)

	router := httpServer.NewRouter(cfg, httpServer.Handlers{
		Auth:         auth.NewHandler(authService, rateLimiter),
		Events:       event.NewHandler(eventService),
		Registration: registration.NewHandler(registrationService),
		Engagement:   engagement.NewHandler(engagementService),
	}, auth.NewMiddleware(gate), healthChecks(db, redisClient), logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	select {
	case err := <-serverErrors:
		stop()
		workers.Wait()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	workers.Wait()

	return nil
}

func newTokenService(cfg config.AuthConfig) (auth.TokenService, error) {
	switch cfg.TokenStrategy {
	case config.TokenStrategyPaseto:
		svc, err := auth.NewPasetoService(cfg.PasetoKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PASETO service: %w", err)
		}
		return svc, nil
	default:
		svc, err := auth.NewJWTService(cfg.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
		}
		return svc, nil
	}
}

func newHasher(cfg config.PasswordConfig) (auth.PasswordHasher, error) {
	switch cfg.Hasher {
	case config.HasherArgon2id:
		return auth.NewArgon2idHasher(argon2id.DefaultParams), nil
	default:
		h, err := auth.NewBcryptHasher(cfg.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize bcrypt hasher: %w", err)
		}
		return h, nil
	}
}

func healthChecks(db *bun.DB, client *redis.Client) map[string]httpServer.HealthCheck {
	return map[string]httpServer.HealthCheck{
		"database": db.PingContext,
		"redis": func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

// initRedis connects to Redis and verifies the connection
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
