package session

import (
	"context"
	"fmt"
	"sync"
)

// MockWorker はテスト用のモックワーカー実装
type MockWorker struct {
	CameraID string

	mu      sync.Mutex
	paused  bool
	stopped bool

	shouldFailPause  bool
	shouldFailResume bool
}

// Pause はフレーム生成の一時停止を記録する
func (w *MockWorker) Pause() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.shouldFailPause {
		return fmt.Errorf("モック: 一時停止に失敗")
	}
	w.paused = true
	return nil
}

// Resume はフレーム生成の再開を記録する
func (w *MockWorker) Resume() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.shouldFailResume {
		return fmt.Errorf("モック: 再開に失敗")
	}
	w.paused = false
	return nil
}

// Stop はワーカーの破棄を記録する
func (w *MockWorker) Stop(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	return nil
}

// IsPaused は一時停止中かどうかを返す
func (w *MockWorker) IsPaused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paused
}

// IsStopped は停止済みかどうかを返す
func (w *MockWorker) IsStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

// SetShouldFailPause はテスト用にPause失敗を設定する
func (w *MockWorker) SetShouldFailPause(shouldFail bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shouldFailPause = shouldFail
}

// SetShouldFailResume はテスト用にResume失敗を設定する
func (w *MockWorker) SetShouldFailResume(shouldFail bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shouldFailResume = shouldFail
}

// MockWorkerFactory はテスト用のモックファクトリ実装。
// 生成回数を記録し、重複生成の検証に使う。
type MockWorkerFactory struct {
	mu         sync.Mutex
	spawned    map[string]int
	workers    map[string]*MockWorker
	failFor    map[string]bool
	spawnDelay func() // 設定されていればSpawn中に呼ばれる（競合再現用）
}

// NewMockWorkerFactory は新しいMockWorkerFactoryを作成する
func NewMockWorkerFactory() *MockWorkerFactory {
	return &MockWorkerFactory{
		spawned: make(map[string]int),
		workers: make(map[string]*MockWorker),
		failFor: make(map[string]bool),
	}
}

// Spawn はモックワーカーを生成する
func (f *MockWorkerFactory) Spawn(_ context.Context, cameraID string) (Worker, error) {
	f.mu.Lock()
	f.spawned[cameraID]++
	fail := f.failFor[cameraID]
	delay := f.spawnDelay
	f.mu.Unlock()

	if delay != nil {
		delay()
	}

	if fail {
		return nil, fmt.Errorf("モック: カメラ %s のワーカー初期化に失敗", cameraID)
	}

	w := &MockWorker{CameraID: cameraID}
	f.mu.Lock()
	f.workers[cameraID] = w
	f.mu.Unlock()
	return w, nil
}

// SpawnCount は指定カメラのワーカー生成回数を返す
func (f *MockWorkerFactory) SpawnCount(cameraID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spawned[cameraID]
}

// LastWorker は指定カメラの直近のワーカーを返す
func (f *MockWorkerFactory) LastWorker(cameraID string) *MockWorker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.workers[cameraID]
}

// SetShouldFailSpawn はテスト用に指定カメラのSpawn失敗を設定する
func (f *MockWorkerFactory) SetShouldFailSpawn(cameraID string, shouldFail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFor[cameraID] = shouldFail
}

// SetSpawnDelay はテスト用にSpawn中の待機処理を設定する
func (f *MockWorkerFactory) SetSpawnDelay(delay func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spawnDelay = delay
}
