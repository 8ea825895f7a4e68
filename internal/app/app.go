// Package app wires configuration, storage and services into the pieces the
// binaries run: the HTTP router and the sweep worker.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-duel/internal/adapters/cache"
	adapterHTTP "github.com/comitanigiacomo/kanso-duel/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-duel/internal/adapters/messaging"
	"github.com/comitanigiacomo/kanso-duel/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
	"github.com/comitanigiacomo/kanso-duel/internal/core/services"
	"github.com/comitanigiacomo/kanso-duel/internal/core/workers"
	"github.com/comitanigiacomo/kanso-duel/internal/platform/config"
)

type Repositories struct {
	Tasks       domain.TaskRepository
	Completions domain.CompletionRepository
	Scores      domain.ScoreRepository
	Challenges  domain.ChallengeRepository
	Users       domain.UserRepository
	Stats       domain.StatsRepository
}

type App struct {
	Config *config.AppConfig
	Logger *zap.Logger

	// DB is nil with the memory store; Redis is nil when not configured or unreachable.
	DB        *sqlx.DB
	Redis     *redis.Client
	Publisher domain.OutcomePublisher
	Repos     Repositories

	Auth        *services.AuthService
	Tokens      *services.TokenService
	Tasks       *services.TaskService
	Completions *services.CompletionService
	Scores      *services.ScoreService
	Challenges  *services.ChallengeService
	Leaderboard *services.LeaderboardService
	Sweeper     *workers.SweepWorker

	StartTime time.Time
	closers   []func() error
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*App, error) {
	a := &App{
		Config:    cfg,
		Logger:    logger,
		StartTime: time.Now(),
	}

	if err := a.openStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.openCache(ctx)
	a.openPublisher()

	a.Auth = services.NewAuthService(a.Repos.Users)
	a.Tokens = services.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL, a.Repos.Users)
	a.Tasks = services.NewTaskService(a.Repos.Tasks)
	a.Completions = services.NewCompletionService(a.Repos.Tasks, a.Repos.Completions)
	a.Scores = services.NewScoreService(a.Repos.Completions, a.Repos.Scores)
	a.Challenges = services.NewChallengeService(a.Repos.Challenges, a.Repos.Users, a.Repos.Scores, a.Publisher, logger)
	a.Leaderboard = services.NewLeaderboardService(a.Repos.Users, a.Repos.Stats)
	a.Sweeper = workers.NewSweepWorker(a.Challenges, cfg.SweepInterval, logger)

	return a, nil
}

func (a *App) openStorage(ctx context.Context) error {
	switch a.Config.Storage {
	case config.StorageMemory:
		a.Logger.Warn("Using in-memory storage: data is lost on restart")
		store := repository.NewMemoryStore()
		a.Repos = Repositories{
			Tasks:       store.Tasks(),
			Completions: store.Completions(),
			Scores:      store.Scores(),
			Challenges:  store.Challenges(),
			Users:       store.Users(),
			Stats:       store.Stats(),
		}
		return nil

	case config.StoragePostgres:
		a.Logger.Info("Connecting to database...", zap.String("host", a.Config.DB.Host))

		db, err := sqlx.ConnectContext(ctx, "pgx", a.Config.DB.DSN())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.DB = db
		a.closers = append(a.closers, db.Close)

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := repository.Migrate(ctx, db); err != nil {
			return err
		}
		a.Logger.Info("Database connected successfully.")

		a.Repos = Repositories{
			Tasks:       repository.NewPostgresTaskRepository(db),
			Completions: repository.NewPostgresCompletionRepository(db),
			Scores:      repository.NewPostgresScoreRepository(db),
			Challenges:  repository.NewPostgresChallengeRepository(db),
			Users:       repository.NewPostgresUserRepository(db),
			Stats:       repository.NewPostgresStatsRepository(db),
		}
		return nil
	}

	return fmt.Errorf("unknown storage %q", a.Config.Storage)
}

// openCache is optional: without Redis the task list is read straight from
// storage and rate limiting stays per process.
func (a *App) openCache(ctx context.Context) {
	if !a.Config.Redis.Enabled() {
		return
	}

	rdb, err := cache.NewRedisClient(ctx, a.Config.Redis)
	if err != nil {
		a.Logger.Warn("Redis unavailable, running without cache", zap.Error(err))
		return
	}

	a.Redis = rdb
	a.closers = append(a.closers, rdb.Close)
	a.Repos.Tasks = repository.NewCachedTaskRepository(a.Repos.Tasks, rdb, a.Logger)
	a.Logger.Info("Redis connected, task cache enabled")
}

func (a *App) openPublisher() {
	a.Publisher = messaging.NoopPublisher{}
	if a.Config.RabbitMQURL == "" {
		return
	}

	pub, err := messaging.NewRabbitMQPublisher(a.Config.RabbitMQURL, a.Logger)
	if err != nil {
		a.Logger.Warn("RabbitMQ unavailable, challenge events will not be published", zap.Error(err))
		return
	}

	a.Publisher = pub
	a.closers = append(a.closers, pub.Close)
}

func (a *App) Router() *gin.Engine {
	deps := adapterHTTP.RouterDependencies{
		AuthHandler:       adapterHTTP.NewAuthHandler(a.Auth, a.Tokens),
		TaskHandler:       adapterHTTP.NewTaskHandler(a.Tasks),
		CompletionHandler: adapterHTTP.NewCompletionHandler(a.Completions),
		ScoreHandler:      adapterHTTP.NewScoreHandler(a.Scores),
		ChallengeHandler:  adapterHTTP.NewChallengeHandler(a.Challenges),
		UserHandler:       adapterHTTP.NewUserHandler(a.Leaderboard),
		TokenService:      a.Tokens,
		Redis:             a.Redis,
		Logger:            a.Logger,
		StartTime:         a.StartTime,
	}
	if a.DB != nil {
		deps.DB = a.DB
	}
	return adapterHTTP.NewRouter(deps)
}

// Close releases connections in reverse opening order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("Error while closing resource", zap.Error(err))
		}
	}
	a.closers = nil
}
