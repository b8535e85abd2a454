package session

import (
	"context"
	"sync"
	"time"
)

// DefaultRegistry はRegistryのデフォルト実装。
// カメラごとにentryを保持し、遷移はentry単位の排他区間で直列化する。
// 異なるカメラの遷移は完全に並行して進む。
type DefaultRegistry struct {
	factory WorkerFactory

	mu       sync.RWMutex
	sessions map[string]*entry

	listenersMu sync.RWMutex
	listeners   []TransitionListener
}

// entry はカメラ1台分のセッション状態を保持する。
// transMuは遷移の直列化用（ワーカー生成中も保持される）、
// stateMuはスナップショット読み取り用（保持時間は常に短い）。
type entry struct {
	cameraID string

	transMu sync.Mutex

	stateMu          sync.RWMutex
	status           Status
	worker           Worker
	lastTransitionAt time.Time
	lastErr          string
}

// NewDefaultRegistry は新しいDefaultRegistryを作成する
func NewDefaultRegistry(factory WorkerFactory) *DefaultRegistry {
	return &DefaultRegistry{
		factory:  factory,
		sessions: make(map[string]*entry),
	}
}

// AddListener は状態遷移リスナーを登録する
func (r *DefaultRegistry) AddListener(l TransitionListener) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Start は解析セッションを開始する。
// Running/Starting中の呼び出しは新しいワーカーを生成せず、
// 現在の状態とErrAlreadyInDesiredStateを返す（冪等性の要）。
// 排他区間の内側で状態を再確認するため、同一カメラへの並行start要求が
// 重複ワーカーを生むことはない。
func (r *DefaultRegistry) Start(ctx context.Context, cameraID string) (Status, error) {
	e := r.getOrCreate(cameraID)

	e.transMu.Lock()
	defer e.transMu.Unlock()

	// 排他区間内で再確認（check-then-actを原子的にする）
	switch cur := e.currentStatus(); cur {
	case StatusRunning, StatusStarting, StatusPaused:
		return cur, ErrAlreadyInDesiredState
	}

	r.setState(e, StatusStarting, nil, "")

	worker, err := r.factory.Spawn(ctx, cameraID)
	if err != nil {
		r.setState(e, StatusError, nil, err.Error())
		return StatusError, &WorkerStartFailureError{CameraID: cameraID, Cause: err}
	}

	r.setState(e, StatusRunning, worker, "")
	return StatusRunning, nil
}

// Stop は解析セッションを停止してワーカーを解放する。
// 停止済みの場合は冪等にErrAlreadyInDesiredStateを返す。
// 同一カメラのstartが進行中の場合は同じ排他区間の後ろに並ぶため、
// 遷移と競合することはない。
func (r *DefaultRegistry) Stop(ctx context.Context, cameraID string) (Status, error) {
	e := r.getOrCreate(cameraID)

	e.transMu.Lock()
	defer e.transMu.Unlock()

	if e.currentStatus() == StatusStopped {
		return StatusStopped, ErrAlreadyInDesiredState
	}

	worker := e.currentWorker()
	var stopErr error
	if worker != nil {
		stopErr = worker.Stop(ctx)
	}

	// 停止に失敗してもハンドルは解放する（ワーカーは死んだものとみなす）
	r.setState(e, StatusStopped, nil, "")
	return StatusStopped, stopErr
}

// Pause は実行中の解析を一時停止する。
// Running以外からの呼び出しはInvalidTransitionErrorになる。
// ワーカーハンドルは保持されたまま変わらない。
func (r *DefaultRegistry) Pause(cameraID string) (Status, error) {
	e := r.getOrCreate(cameraID)

	e.transMu.Lock()
	defer e.transMu.Unlock()

	cur := e.currentStatus()
	if cur != StatusRunning {
		return cur, &InvalidTransitionError{CameraID: cameraID, Operation: "pause", From: cur}
	}

	worker := e.currentWorker()
	if err := worker.Pause(); err != nil {
		// 失敗したワーカーは死んだものとみなして破棄する。
		// ハンドルを持つのはRunning/Pausedのみで、Errorからの再startが
		// 二重ワーカーを生むことはない
		_ = worker.Stop(context.Background())
		r.setState(e, StatusError, nil, err.Error())
		return StatusError, err
	}

	r.setState(e, StatusPaused, worker, "")
	return StatusPaused, nil
}

// Play は一時停止中の解析を再開する。
// Paused以外からの呼び出しはInvalidTransitionErrorになる。
func (r *DefaultRegistry) Play(cameraID string) (Status, error) {
	e := r.getOrCreate(cameraID)

	e.transMu.Lock()
	defer e.transMu.Unlock()

	cur := e.currentStatus()
	if cur != StatusPaused {
		return cur, &InvalidTransitionError{CameraID: cameraID, Operation: "play", From: cur}
	}

	worker := e.currentWorker()
	if err := worker.Resume(); err != nil {
		// Pause失敗時と同じく、ハンドルを破棄してからErrorに遷移する
		_ = worker.Stop(context.Background())
		r.setState(e, StatusError, nil, err.Error())
		return StatusError, err
	}

	r.setState(e, StatusRunning, worker, "")
	return StatusRunning, nil
}

// Status は指定カメラの現在の状態を取得する。
// 遷移用ロックには触れないため、ワーカー生成中でもブロックしない。
func (r *DefaultRegistry) Status(cameraID string) Status {
	r.mu.RLock()
	e, exists := r.sessions[cameraID]
	r.mu.RUnlock()

	if !exists {
		return StatusStopped
	}
	return e.currentStatus()
}

// StatusAll は全カメラの状態スナップショットを取得する
func (r *DefaultRegistry) StatusAll() map[string]Status {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.sessions))
	for _, e := range r.sessions {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	statuses := make(map[string]Status, len(entries))
	for _, e := range entries {
		statuses[e.cameraID] = e.currentStatus()
	}
	return statuses
}

// Session は指定カメラのセッション詳細スナップショットを取得する
func (r *DefaultRegistry) Session(cameraID string) (Session, bool) {
	r.mu.RLock()
	e, exists := r.sessions[cameraID]
	r.mu.RUnlock()

	if !exists {
		return Session{}, false
	}

	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return Session{
		CameraID:         e.cameraID,
		Status:           e.status,
		LastTransitionAt: e.lastTransitionAt,
		LastError:        e.lastErr,
	}, true
}

// getOrCreate はカメラのentryを取得し、なければ作成する
func (r *DefaultRegistry) getOrCreate(cameraID string) *entry {
	r.mu.RLock()
	e, exists := r.sessions[cameraID]
	r.mu.RUnlock()

	if exists {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// 書き込みロック取得までの間に作成された可能性を再確認
	if e, exists := r.sessions[cameraID]; exists {
		return e
	}

	e = &entry{cameraID: cameraID, status: StatusStopped, lastTransitionAt: time.Now()}
	r.sessions[cameraID] = e
	return e
}

// setState は状態を更新してリスナーに通知する（transMu保持前提）
func (r *DefaultRegistry) setState(e *entry, to Status, worker Worker, lastErr string) {
	e.stateMu.Lock()
	from := e.status
	e.status = to
	e.worker = worker
	e.lastErr = lastErr
	e.lastTransitionAt = time.Now()
	e.stateMu.Unlock()

	if from == to {
		return
	}

	r.listenersMu.RLock()
	listeners := make([]TransitionListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.listenersMu.RUnlock()

	for _, l := range listeners {
		l(e.cameraID, from, to)
	}
}

// currentStatus は現在の状態を読み取る
func (e *entry) currentStatus() Status {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.status
}

// currentWorker は現在のワーカーハンドルを読み取る
func (e *entry) currentWorker() Worker {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.worker
}
