package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/api"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/api/handlers"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/config"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/repository"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/service"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/websocket"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/database"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/distributed"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/faststore"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/logger"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
)

// App 서버와 관리 CLI가 공유하는 의존성 그래프
type App struct {
	Config *config.Config
	DB     *database.DB
	Redis  *redis.Client
	Store  *faststore.RedisStore

	Players  *repository.PlayerRepository
	Matches  *repository.MatchRepository
	Seasons  *repository.SeasonRepository
	Rankings *repository.RankingRepository

	RankingService     *service.RankingService
	SeasonService      *service.SeasonService
	MatchService       *service.MatchService
	SettlementService  *service.SettlementService
	BattleService      *service.BattleService
	MatchmakingService *service.MatchmakingService

	Hub     *websocket.Hub
	Relay   *websocket.RelayGateway
	Limiter *ratelimit.RedisRateLimiter
}

// New 저장소 연결 후 서비스 조립. 백그라운드 루프는 Run에서 시작한다.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Connect(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	client, err := faststore.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	a := &App{
		Config: cfg,
		DB:     db,
		Redis:  client,
		Store:  faststore.NewRedisStore(client),

		Players:  repository.NewPlayerRepository(db),
		Matches:  repository.NewMatchRepository(db),
		Seasons:  repository.NewSeasonRepository(db),
		Rankings: repository.NewRankingRepository(db),
	}
	a.wire()

	return a, nil
}

func (a *App) wire() {
	cfg := a.Config
	locks := distributed.NewLockManager(a.Store)

	a.RankingService = service.NewRankingService(a.Store, a.Rankings, a.Players, a.Seasons, service.RankingConfig{
		SyncBatchSize:   cfg.RankingSyncBatch,
		SyncConcurrency: cfg.RankingSyncConcurrency,
		MaxAround:       service.DefaultRankingConfig().MaxAround,
	}, logger.Named("ranking"))
	a.SeasonService = service.NewSeasonService(a.Seasons, logger.Named("season"))
	a.MatchService = service.NewMatchService(a.Matches, a.Players, a.RankingService)
	a.SettlementService = service.NewSettlementService(
		a.Matches, a.Players, a.Store, a.RankingService,
		service.NewELOService(cfg.EloKFactor), logger.Named("settlement"),
	)

	a.Hub = websocket.NewHub(logger.Named("hub"))
	var gateway service.Gateway = a.Hub
	if cfg.EventRelayEnabled {
		relay := distributed.NewEventRelay(a.Redis, cfg.EventRelayChannel, logger.Named("relay"))
		a.Relay = websocket.NewRelayGateway(a.Hub, relay, logger.Named("relay"))
		gateway = a.Relay
	}

	battleCfg := service.DefaultBattleConfig()
	battleCfg.StateTTL = cfg.BattleStateTTL
	battleCfg.TurnTimeout = cfg.TurnTimeout
	battleCfg.MaxIdleStrikes = cfg.MaxIdleStrikes
	battleCfg.MaxTurns = cfg.MaxTurns
	battleCfg.LockTTL = cfg.BattleLockTTL
	battleCfg.SweepInterval = cfg.BattleSweep
	a.BattleService = service.NewBattleService(a.Store, locks, a.SettlementService, gateway, battleCfg, logger.Named("battle"))

	queueCfg := service.DefaultMatchmakingConfig()
	queueCfg.BaseWindow = cfg.QueueBaseWindow
	queueCfg.WindowStep = cfg.QueueWindowStep
	queueCfg.MaxWindow = cfg.QueueMaxWindow
	queueCfg.WidenEvery = cfg.QueueWidenEvery
	queueCfg.QueueTTL = cfg.QueueTTL
	queueCfg.SweepInterval = cfg.MatchmakingSweep
	queueCfg.CandidateLimit = int64(cfg.MatchCandidateScan)
	a.MatchmakingService = service.NewMatchmakingService(
		a.Store, locks, a.Players, a.Matches, a.Seasons, a.BattleService, queueCfg, logger.Named("matchmaking"),
	)

	a.Hub.SetDispatcher(handlers.NewRealtimeDispatcher(a.MatchmakingService, a.BattleService))
	a.Limiter = ratelimit.NewRedisRateLimiter(a.Redis, "pvp:ratelimit:")
}

// Services 라우터에 넘길 묶음
func (a *App) Services() api.Services {
	return api.Services{
		Matchmaking: a.MatchmakingService,
		Battles:     a.BattleService,
		Matches:     a.MatchService,
		Seasons:     a.SeasonService,
		Rankings:    a.RankingService,
		Hub:         a.Hub,
		Limiter:     a.Limiter,
		Health: map[string]handlers.Pinger{
			"postgres": a.DB,
			"redis":    a.Store,
		},
	}
}

// Run 허브, 이벤트 중계, 매칭/전투 스윕 루프 실행. ctx가 끝나면 모두 정지.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Hub.Run(ctx)
		return nil
	})
	if a.Relay != nil {
		g.Go(func() error {
			if err := a.Relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("event relay: %w", err)
			}
			return nil
		})
	}

	a.BattleService.Start()
	a.MatchmakingService.Start()
	g.Go(func() error {
		<-ctx.Done()
		a.MatchmakingService.Stop()
		a.BattleService.Stop()
		return nil
	})

	return g.Wait()
}

func (a *App) Close() {
	if err := a.Redis.Close(); err != nil {
		logger.Warn("Failed to close redis", "error", err)
	}
	if err := a.DB.Close(); err != nil {
		logger.Warn("Failed to close database", "error", err)
	}
}
