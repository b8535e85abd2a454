package reconcile

import (
	"context"
	"log"
	"sync"
	"time"

	"mihari/internal/session"
)

// StatusObserver は状態スナップショットの再配信を受け取るコールバック
type StatusObserver func(statuses map[string]session.Status)

// DesiredSupplier は各周期で起動すべきカメラID集合を供給する。
// nilの場合、ループは状態の再配信のみを行う。
type DesiredSupplier func() []string

// Loop は固定周期でセッション状態を観測者へ再配信するポーリングループ。
// 設定されていればAutoStartの突き合わせも同じ周期に折り込む。
type Loop struct {
	registry    session.Registry
	coordinator *Coordinator
	desired     DesiredSupplier
	interval    time.Duration

	mu        sync.Mutex
	observers []StatusObserver

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

// DefaultInterval は再配信の基準周期
const DefaultInterval = 5 * time.Second

// NewLoop は新しいLoopを作成する。
// intervalが0以下の場合はDefaultIntervalを使う。
func NewLoop(registry session.Registry, coordinator *Coordinator, desired DesiredSupplier, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		registry:    registry,
		coordinator: coordinator,
		desired:     desired,
		interval:    interval,
	}
}

// AddObserver は状態再配信の観測者を登録する
func (l *Loop) AddObserver(o StatusObserver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, o)
}

// Start はポーリングループを開始する。
// Stop後に再度呼び出すと新しい周期で再開する。
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return
	}
	l.started = true

	// 停止チャンネルは起動ごとに作り直す（クローズ済みの再利用を防ぐ）
	l.stopCh = make(chan struct{})

	l.wg.Add(1)
	go l.run(ctx, l.stopCh)
}

// Stop はポーリングループを停止して終了を待つ
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return
	}
	l.started = false
	stopCh := l.stopCh
	l.mu.Unlock()

	close(stopCh)
	l.wg.Wait()
}

// run は周期処理の本体
func (l *Loop) run(ctx context.Context, stopCh <-chan struct{}) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

// tick は1周期分の突き合わせと再配信を行う
func (l *Loop) tick(ctx context.Context) {
	// AutoStartが設定されていれば同じ周期に折り込む
	if l.coordinator != nil && l.desired != nil {
		for _, result := range l.coordinator.Reconcile(ctx, l.desired()) {
			if result.Outcome == OutcomeFailed {
				log.Printf("カメラ %s の自動起動に失敗: %v", result.CameraID, result.Err)
			}
		}
	}

	statuses := l.registry.StatusAll()

	l.mu.Lock()
	observers := make([]StatusObserver, len(l.observers))
	copy(observers, l.observers)
	l.mu.Unlock()

	for _, o := range observers {
		o(statuses)
	}
}
