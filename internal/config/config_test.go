package config

import (
	"testing"
	"time"
)

// TestConfigLoad は設定の読み込みをテストする
func TestConfigLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg == nil {
		t.Fatal("設定がnilです")
	}

	// サーバー設定の検証
	if cfg.Server.Host == "" {
		t.Error("サーバーホストが設定されていません")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		t.Errorf("無効なポート番号: %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 {
		t.Error("読み込みタイムアウトが設定されていません")
	}
	// WriteTimeout は 0（無効）でも正常
	if cfg.Server.WriteTimeout < 0 {
		t.Error("書き込みタイムアウトが負の値です")
	}

	// デフォルト値の検証
	if cfg.Camera.DefaultFPS <= 0 {
		t.Error("デフォルトFPSが設定されていません")
	}
	if cfg.Reconcile.Interval < time.Second {
		t.Errorf("突き合わせ周期が短すぎます: %s", cfg.Reconcile.Interval)
	}
	if cfg.Zone.Backend != "memory" && cfg.Zone.Backend != "postgres" {
		t.Errorf("無効なゾーンバックエンド: %s", cfg.Zone.Backend)
	}
}

// TestConfigValidation は設定の検証をテストする
func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Host: "localhost", Port: 8080},
			Camera: CameraConfig{
				Devices: []CameraDevice{
					{ID: "camera1", Name: "メインカメラ"},
				},
				DefaultFPS: 15,
			},
			Reconcile: ReconcileConfig{Interval: 5 * time.Second, AutoStart: true},
			Zone:      ZoneConfig{Backend: "memory"},
		}
	}

	testCases := []struct {
		name      string
		mutate    func(*Config)
		expectErr bool
	}{
		{
			name:      "正常な設定",
			mutate:    func(*Config) {},
			expectErr: false,
		},
		{
			name:      "無効なポート番号",
			mutate:    func(c *Config) { c.Server.Port = 99999 },
			expectErr: true,
		},
		{
			name:      "無効なFPS値",
			mutate:    func(c *Config) { c.Camera.DefaultFPS = 0 },
			expectErr: true,
		},
		{
			name:      "短すぎる突き合わせ周期",
			mutate:    func(c *Config) { c.Reconcile.Interval = 100 * time.Millisecond },
			expectErr: true,
		},
		{
			name:      "カメラIDなし",
			mutate:    func(c *Config) { c.Camera.Devices[0].ID = "" },
			expectErr: true,
		},
		{
			name: "カメラIDの重複",
			mutate: func(c *Config) {
				c.Camera.Devices = append(c.Camera.Devices, CameraDevice{ID: "camera1", Name: "重複"})
			},
			expectErr: true,
		},
		{
			name:      "無効なゾーンバックエンド",
			mutate:    func(c *Config) { c.Zone.Backend = "sqlite" },
			expectErr: true,
		},
		{
			name:      "postgresバックエンドにDSNなし",
			mutate:    func(c *Config) { c.Zone.Backend = "postgres" },
			expectErr: true,
		},
		{
			name: "postgresバックエンドにDSNあり",
			mutate: func(c *Config) {
				c.Zone.Backend = "postgres"
				c.Zone.PostgresDSN = "postgres://localhost/mihari?sslmode=disable"
			},
			expectErr: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.expectErr && err == nil {
				t.Error("エラーが期待されましたが、エラーが発生しませんでした")
			}
			if !tc.expectErr && err != nil {
				t.Errorf("予期しないエラーが発生しました: %v", err)
			}
		})
	}
}

// TestServerAddress はサーバーアドレスの生成をテストする
func TestServerAddress(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "192.168.1.100",
			Port: 9090,
		},
	}

	expected := "192.168.1.100:9090"
	actual := cfg.ServerAddress()

	if actual != expected {
		t.Errorf("サーバーアドレスが一致しません: got %s, want %s", actual, expected)
	}
}

// TestParseCameraDevices はカメラ設定文字列の解析をテストする
func TestParseCameraDevices(t *testing.T) {
	devices := parseCameraDevices("cam-1=玄関カメラ, cam-2=駐車場 ,cam-3")
	if len(devices) != 3 {
		t.Fatalf("カメラ数が一致しません: got %d, want 3", len(devices))
	}

	if devices[0].ID != "cam-1" || devices[0].Name != "玄関カメラ" {
		t.Errorf("解析結果が一致しません: %+v", devices[0])
	}
	if devices[1].ID != "cam-2" || devices[1].Name != "駐車場" {
		t.Errorf("解析結果が一致しません: %+v", devices[1])
	}
	// 表示名省略時はIDがそのまま表示名になる
	if devices[2].ID != "cam-3" || devices[2].Name != "cam-3" {
		t.Errorf("解析結果が一致しません: %+v", devices[2])
	}

	if got := parseCameraDevices(""); len(got) != 0 {
		t.Errorf("空文字列から %d 台のカメラが解析されました", len(got))
	}
}

// TestEnvironmentVariables は環境変数の処理をテストする
// 注意: このテストは環境変数を変更するため、parallelは使わない
func TestEnvironmentVariables(t *testing.T) {
	t.Setenv("SERVER_HOST", "test.example.com")
	t.Setenv("PORT", "9999")
	t.Setenv("CAMERA_DEVICES", "cam-1=テストカメラ")
	t.Setenv("AUTO_START", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Host != "test.example.com" {
		t.Errorf("環境変数のホストが反映されていません: got %s, want test.example.com", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("環境変数のポートが反映されていません: got %d, want 9999", cfg.Server.Port)
	}
	if len(cfg.Camera.Devices) != 1 || cfg.Camera.Devices[0].Name != "テストカメラ" {
		t.Errorf("環境変数のカメラ設定が反映されていません: %+v", cfg.Camera.Devices)
	}
	if cfg.Reconcile.AutoStart {
		t.Error("AUTO_START=false が反映されていません")
	}
}
