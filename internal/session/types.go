package session

import (
	"context"
	"time"
)

// Status は解析セッションの動作状態を表す
type Status string

const (
	StatusStopped  Status = "stopped"  // 解析は停止中
	StatusStarting Status = "starting" // ワーカーを起動中（start競合を閉じるための内部状態）
	StatusRunning  Status = "running"  // 解析は実行中
	StatusPaused   Status = "paused"   // フレーム生成を一時停止中（追跡状態は維持）
	StatusError    Status = "error"    // ワーカーでエラーが発生（再試行まで保持）
)

// Session はカメラ1台分の解析セッションのスナップショットを表す
type Session struct {
	CameraID         string    // カメラの一意識別子（カメラ本体の管理は外部）
	Status           Status    // 現在の状態
	LastTransitionAt time.Time // 最後に状態遷移した時刻
	LastError        string    // 直近のエラーメッセージ（エラーがない場合は空）
}

// Worker は1台のカメラの検知・追跡を行う外部ユニットのハンドルを表す。
// ハンドルはRegistryが排他的に所有し、外部には公開されない。
type Worker interface {
	// Pause はフレーム生成を停止する（内部の追跡状態は維持される）
	Pause() error

	// Resume は一時停止中のフレーム生成を再開する
	Resume() error

	// Stop はワーカーを破棄する
	Stop(ctx context.Context) error
}

// WorkerFactory はカメラIDからワーカーを生成する
type WorkerFactory interface {
	// Spawn は指定カメラのワーカーを生成して起動する
	Spawn(ctx context.Context, cameraID string) (Worker, error)
}

// TransitionListener は状態遷移の通知を受け取るコールバック
type TransitionListener func(cameraID string, from, to Status)

// Registry はカメラごとの解析セッションを管理するインターフェース
type Registry interface {
	// Start は解析を開始する。Running/Starting中は冪等に現在の状態を返す
	Start(ctx context.Context, cameraID string) (Status, error)

	// Stop は解析を停止してワーカーを解放する。停止済みなら冪等
	Stop(ctx context.Context, cameraID string) (Status, error)

	// Pause は実行中の解析を一時停止する（Runningからのみ有効）
	Pause(cameraID string) (Status, error)

	// Play は一時停止中の解析を再開する（Pausedからのみ有効）
	Play(cameraID string) (Status, error)

	// Status は指定カメラの現在の状態を取得する
	Status(cameraID string) Status

	// StatusAll は全カメラの状態スナップショットを取得する
	StatusAll() map[string]Status

	// Session は指定カメラのセッション詳細を取得する
	Session(cameraID string) (Session, bool)

	// AddListener は状態遷移リスナーを登録する
	AddListener(l TransitionListener)
}
