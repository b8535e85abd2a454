// Package main はMihariサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"mihari/internal/config"
	"mihari/internal/notify"
	"mihari/internal/reconcile"
	"mihari/internal/server"
	"mihari/internal/session"
	"mihari/internal/stream"
	"mihari/internal/worker"
	"mihari/internal/zone"
)

func main() {
	// コマンドラインオプション
	var (
		host      = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port      = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		autoStart = flag.Bool("auto-start", true, "起動時に全カメラの解析を開始する")
		help      = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("Mihari")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	cfg.Reconcile.AutoStart = *autoStart

	ctx := context.Background()

	// ゾーンストアを構築する
	var repo zone.Repository
	switch cfg.Zone.Backend {
	case "postgres":
		pg, err := zone.NewPostgresRepository(ctx, cfg.Zone.PostgresDSN)
		if err != nil {
			log.Fatalf("PostgreSQLへの接続に失敗しました: %v", err)
		}
		defer func() { _ = pg.Close() }()
		repo = pg
	default:
		repo = zone.NewMemoryRepository()
	}

	zones, err := zone.NewDefaultStore(ctx, repo)
	if err != nil {
		log.Fatalf("ゾーンストアの構築に失敗しました: %v", err)
	}

	// アラート通知の発行先を構築する
	var publisher notify.Publisher = notify.NopPublisher{}
	if cfg.Notify.Enabled {
		amqpPublisher, err := notify.NewAMQPPublisher(cfg.Notify.AMQPURL, cfg.Notify.Exchange, cfg.Notify.RoutingKey)
		if err != nil {
			log.Fatalf("RabbitMQへの接続に失敗しました: %v", err)
		}
		publisher = amqpPublisher
	}
	defer func() { _ = publisher.Close() }()

	// ワーカーファクトリとセッションレジストリを構築する
	broker := stream.NewBroker()
	factory := worker.NewFactory(broker, publisher, zones, cfg.Camera.DefaultFPS)
	for _, device := range cfg.Camera.Devices {
		factory.RegisterCamera(device.ID, device.Name)
	}
	registry := session.NewDefaultRegistry(factory)

	// 突き合わせループを構築する
	coordinator := reconcile.NewCoordinator(registry)
	var desired reconcile.DesiredSupplier
	if cfg.Reconcile.AutoStart {
		desired = cfg.CameraIDs
	}
	loop := reconcile.NewLoop(registry, coordinator, desired, cfg.Reconcile.Interval)

	// サーバーを作成して起動する
	srv := server.New(cfg, registry, broker, zones, coordinator, loop)

	log.Printf("Mihari サーバーを起動します: %s", cfg.ServerAddress())
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
