package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xutongxue233/wanjielunhui-sub001/internal/api"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/app"
	"github.com/xutongxue233/wanjielunhui-sub001/internal/config"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/database"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/logger"
)

func main() {
	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 로거 초기화
	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("Starting PVP server",
		"port", cfg.Port,
		"env", cfg.Env,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 데이터베이스 + Redis 연결, 서비스 조립
	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize", "error", err)
	}
	defer application.Close()

	if err := database.Migrate(application.DB); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}
	logger.Info("Storage ready", "relay", cfg.EventRelayEnabled)

	// 허브, 매칭/전투 루프
	loops := make(chan error, 1)
	go func() {
		loops <- application.Run(ctx)
	}()

	router := api.SetupRouter(cfg, application.Services())

	// 서버 설정
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 서버 시작 (고루틴)
	go func() {
		logger.Info("Server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown 대기
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-loops:
		logger.Error("Background loop stopped", "error", err)
	}

	logger.Info("Shutting down server...")

	// 10초 타임아웃으로 종료
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// 스윕 루프 정지 후 연결 종료
	stop()
	select {
	case <-loops:
	case <-shutdownCtx.Done():
		logger.Warn("Background loops did not stop in time")
	}

	logger.Info("Server exited")
}
