package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"mihari/internal/config"
	"mihari/internal/reconcile"
	"mihari/internal/session"
	"mihari/internal/stream"
	"mihari/internal/zone"
)

// Server はHTTPサーバーとWebSocket配信を管理する構造体
type Server struct {
	config      *config.Config
	registry    session.Registry
	broker      *stream.Broker
	zones       zone.Store
	coordinator *reconcile.Coordinator
	loop        *reconcile.Loop

	engine     *gin.Engine
	httpServer *http.Server

	// ワーカーの寿命をHTTPリクエストから切り離すための親コンテキスト。
	// 起動操作はリクエストコンテキストではなくこちらを渡す。
	opCtx    context.Context
	opCancel context.CancelFunc
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, registry session.Registry, broker *stream.Broker, zones zone.Store, coordinator *reconcile.Coordinator, loop *reconcile.Loop) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	opCtx, opCancel := context.WithCancel(context.Background())

	s := &Server{
		config:      cfg,
		registry:    registry,
		broker:      broker,
		zones:       zones,
		coordinator: coordinator,
		loop:        loop,
		engine:      engine,
		opCtx:       opCtx,
		opCancel:    opCancel,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// セッション停止時に視聴者の購読をクローズする
	registry.AddListener(func(cameraID string, from, to session.Status) {
		if to == session.StatusStopped {
			broker.CloseCamera(cameraID, stream.ReasonSessionEnded)
		}
	})

	s.setupRoutes()
	return s
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() {
	// ヘルスチェックエンドポイント
	s.engine.GET("/health", s.handleHealth)

	// APIエンドポイント
	api := s.engine.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.GET("/cameras/status", s.handleCamerasStatus)
		api.POST("/cameras/:id/start", s.handleCameraStart)
		api.POST("/cameras/:id/stop", s.handleCameraStop)
		api.POST("/cameras/:id/pause", s.handleCameraPause)
		api.POST("/cameras/:id/play", s.handleCameraPlay)
		api.GET("/cameras/:id/zones", s.handleGetZones)
		api.PUT("/cameras/:id/zones", s.handlePutZones)
	}

	// WebSocketエンドポイント
	s.engine.GET("/ws/video_feed/:id", s.handleVideoFeed)
}

// Start はサーバーを起動する。
// AutoStartが有効なら設定済みカメラの解析を開始し、突き合わせループを起動する。
func (s *Server) Start(ctx context.Context) error {
	if s.config.Reconcile.AutoStart && s.coordinator != nil {
		for _, result := range s.coordinator.Reconcile(s.opCtx, s.config.CameraIDs()) {
			if result.Outcome == reconcile.OutcomeFailed {
				// 1台の失敗で起動全体は止めない
				log.Printf("カメラ %s の自動起動に失敗: %v", result.CameraID, result.Err)
			}
		}
	}
	if s.loop != nil {
		s.loop.Start(s.opCtx)
	}

	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		log.Printf("HTTPサーバーを起動しています: %s", s.config.ServerAddress())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		log.Println("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		log.Printf("シグナルを受信しました: %v", sig)
	case err := <-shutdownCh:
		s.opCancel()
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする。
// 突き合わせループを止めてからHTTPサーバーを閉じ、最後にワーカーを破棄する。
func (s *Server) Shutdown() error {
	log.Println("サーバーをシャットダウンしています...")

	if s.loop != nil {
		s.loop.Stop()
	}

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)

	// 全セッションを停止してワーカーを解放する
	for cameraID, status := range s.registry.StatusAll() {
		if status == session.StatusStopped {
			continue
		}
		if _, stopErr := s.registry.Stop(ctx, cameraID); stopErr != nil {
			log.Printf("カメラ %s の停止に失敗: %v", cameraID, stopErr)
		}
	}
	s.opCancel()

	if err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	log.Println("サーバーが正常にシャットダウンされました")
	return nil
}
