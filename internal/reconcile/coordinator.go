package reconcile

import (
	"context"
	"errors"
	"sort"
	"sync"

	"mihari/internal/session"
)

// Outcome はカメラ1台分の突き合わせ結果の種別を表す
type Outcome string

const (
	OutcomeStarted        Outcome = "started"         // 新たに起動した
	OutcomeAlreadyRunning Outcome = "already_running" // 既に実行中（成功扱い）
	OutcomeFailed         Outcome = "failed"          // 起動に失敗した
)

// Result はカメラ1台分の突き合わせ結果を表す
type Result struct {
	CameraID string
	Outcome  Outcome
	Status   session.Status
	Err      error // OutcomeFailedの場合のみ設定される
}

// Coordinator は望ましいカメラ集合と実際のセッション状態を突き合わせる
type Coordinator struct {
	registry session.Registry
}

// NewCoordinator は新しいCoordinatorを作成する
func NewCoordinator(registry session.Registry) *Coordinator {
	return &Coordinator{registry: registry}
}

// Reconcile は起動すべきカメラの差分を計算し、並行して起動する。
// 各カメラの結果は独立しており、1台の失敗がバッチ全体を失敗させることはない。
// 結果はカメラID順で返す。
func (c *Coordinator) Reconcile(ctx context.Context, desired []string) []Result {
	// 実行中・起動中のカメラを除いた差分を計算する
	statuses := c.registry.StatusAll()
	missing := make([]string, 0, len(desired))
	results := make([]Result, 0, len(desired))

	for _, cameraID := range desired {
		switch statuses[cameraID] {
		case session.StatusRunning, session.StatusStarting:
			results = append(results, Result{
				CameraID: cameraID,
				Outcome:  OutcomeAlreadyRunning,
				Status:   statuses[cameraID],
			})
		default:
			missing = append(missing, cameraID)
		}
	}

	// 差分のカメラを並行起動し、結果を収集する
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, cameraID := range missing {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()

			status, err := c.registry.Start(ctx, id)
			result := Result{CameraID: id, Status: status}
			switch {
			case err == nil:
				result.Outcome = OutcomeStarted
			case errors.Is(err, session.ErrAlreadyInDesiredState):
				// 差分計算後に他の呼び出しが起動したケース。成功として扱う
				result.Outcome = OutcomeAlreadyRunning
			default:
				result.Outcome = OutcomeFailed
				result.Err = err
			}

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(cameraID)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].CameraID < results[j].CameraID })
	return results
}
