package api

import (
	"github.com/gin-gonic/gin"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/api/handlers"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/api/middleware"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/config"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/service"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/websocket"
	jwtutil "github.com/xutongxue233/wanjielunhui-sub001/pkg/jwt"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/ratelimit"
)

// Services 라우터가 노출하는 서비스 묶음 (cmd/server에서 조립)
type Services struct {
	Matchmaking *service.MatchmakingService
	Battles     *service.BattleService
	Matches     *service.MatchService
	Seasons     *service.SeasonService
	Rankings    *service.RankingService
	Hub         *websocket.Hub
	Limiter     *ratelimit.RedisRateLimiter
	Health      map[string]handlers.Pinger
}

// SetupRouter API 라우터 설정
func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 전역 미들웨어
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	jwtManager := jwtutil.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	auth := middleware.Auth(jwtManager)

	// Handler 초기화
	healthHandler := handlers.NewHealthHandler(svc.Health)
	pvpHandler := handlers.NewPVPHandler(svc.Matchmaking, svc.Battles, svc.Matches, svc.Seasons)
	rankingHandler := handlers.NewRankingHandler(svc.Rankings)
	adminHandler := handlers.NewAdminHandler(svc.Rankings, svc.Seasons, svc.Matches)
	wsHandler := handlers.NewWebSocketHandler(svc.Hub, cfg.CORSAllowedOrigins)

	var queueLimit, actionLimit gin.HandlerFunc = passthrough, passthrough
	if svc.Limiter != nil {
		queueLimit = middleware.RedisQueueRateLimit(svc.Limiter, cfg.RateLimitQueue, cfg.RateLimitWindow)
		actionLimit = middleware.RedisBattleActionRateLimit(svc.Limiter, cfg.RateLimitActions, cfg.RateLimitWindow)
	}

	// Health check
	router.GET("/health", healthHandler.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	{
		// WebSocket endpoint
		v1.GET("/ws", auth, wsHandler.HandleWebSocket)

		// PVP routes
		pvp := v1.Group("/pvp")
		pvp.Use(auth)
		{
			pvp.POST("/queue", queueLimit, pvpHandler.JoinQueue)
			pvp.DELETE("/queue", queueLimit, pvpHandler.LeaveQueue)

			pvp.GET("/matches/active", pvpHandler.GetActive)
			pvp.GET("/matches/:id", pvpHandler.GetMatch)
			pvp.GET("/matches/:id/state", pvpHandler.GetState)
			pvp.POST("/matches/:id/actions", actionLimit, pvpHandler.SubmitAction)
			pvp.POST("/matches/:id/surrender", actionLimit, pvpHandler.Surrender)

			pvp.GET("/history", pvpHandler.GetHistory)
			pvp.GET("/stats", pvpHandler.GetStats)
			pvp.GET("/stats/:playerId", pvpHandler.GetStats)
			pvp.GET("/season", pvpHandler.GetSeason)
		}

		// Ranking routes
		rankings := v1.Group("/rankings")
		{
			rankings.GET("/:category", rankingHandler.List)
			rankings.GET("/:category/me", auth, rankingHandler.Me)
			rankings.GET("/:category/around", auth, rankingHandler.Around)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(auth, middleware.AdminOnly())
		{
			admin.POST("/rankings/sync", adminHandler.SyncRankings)
			admin.POST("/rankings/:category/rebuild", adminHandler.RebuildRanking)

			admin.GET("/seasons", adminHandler.ListSeasons)
			admin.POST("/seasons", adminHandler.CreateSeason)
			admin.PUT("/seasons/:id/activate", adminHandler.ActivateSeason)
			admin.PUT("/seasons/:id/end", adminHandler.EndSeason)

			admin.GET("/matches", adminHandler.ListMatches)
		}
	}

	return router
}

func passthrough(c *gin.Context) {
	c.Next()
}
