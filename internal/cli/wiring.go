package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ctscan-quiz/internal/app"
	"ctscan-quiz/internal/config"
	"ctscan-quiz/internal/infra/memory"
	"ctscan-quiz/internal/infra/postgres"
	infraredis "ctscan-quiz/internal/infra/redis"
	"ctscan-quiz/internal/leaderboard"
	"ctscan-quiz/internal/metrics"
)

// runtime holds the wired adapters shared by the subcommands.
type runtime struct {
	service   *app.GameService
	questions app.QuestionRepository
	board     *leaderboard.Client
	metrics   *metrics.Metrics
	closers   []func()
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// buildRuntime picks Postgres and Redis adapters when configured and falls
// back to in-memory ones otherwise.
func buildRuntime(ctx context.Context, cfg config.Config, log *zap.Logger, reg prometheus.Registerer) (*runtime, error) {
	rt := &runtime{}

	gameCfg, err := cfg.GameConfig()
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = redisClient.Close() })
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, time.Hour)

	var source app.QuestionRepository = memory.NewQuestionStore(nil)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)
		source = postgres.NewQuestionStore(pool)
	}

	questionsTTL := config.TTLDuration(cfg.Questions.TTL, 5*time.Minute)
	var sessions app.SessionRepository
	var stats app.StatsRepository
	if redisClient != nil {
		rt.questions = infraredis.NewQuestionCache(redisClient, source, questionsTTL, log)
		sessions = infraredis.NewSessionStore(redisClient, redisTTL, log)
		stats = infraredis.NewStatsStore(redisClient)
	} else {
		rt.questions = memory.NewQuestionCache(source, questionsTTL)
		sessions = memory.NewSessionStore()
		stats = memory.NewStatsStore()
	}

	rt.metrics = metrics.New(reg)
	opts := []app.ServiceOption{
		app.WithServiceLogger(log),
		app.WithServiceMetrics(rt.metrics),
	}
	if cfg.Leaderboard.URL != "" {
		timeout := config.TTLDuration(cfg.Leaderboard.Timeout, 5*time.Second)
		rt.board = leaderboard.NewClient(cfg.Leaderboard.URL, &http.Client{Timeout: timeout})
		opts = append(opts, app.WithLeaderboard(rt.board, timeout))
	}

	rt.service, err = app.NewGameService(gameCfg, rt.questions, sessions, stats, opts...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// loadConfig reads path, keeping defaults when the file does not exist.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil && !isNotExist(err) {
		return cfg, err
	}
	return cfg, nil
}
