package session

import (
	"errors"
	"fmt"
)

// ErrAlreadyInDesiredState は操作前から目的の状態だったことを示す。
// 真のエラーではなく冪等なショートサーキットの合図であり、
// 一括呼び出し側（reconcile等）はこれを成功として扱う。
var ErrAlreadyInDesiredState = errors.New("session: already in desired state")

// InvalidTransitionError は現在の状態から許可されない操作を表す
type InvalidTransitionError struct {
	CameraID  string // 対象カメラ
	Operation string // 要求された操作（pause/play等）
	From      Status // 操作時点の状態
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("カメラ %s: 状態 %s から操作 %s は実行できません", e.CameraID, e.From, e.Operation)
}

// WorkerStartFailureError はワーカーの初期化失敗を表す。
// 対象カメラはerror状態に遷移し、LastErrorに原因が記録される。
type WorkerStartFailureError struct {
	CameraID string
	Cause    error
}

func (e *WorkerStartFailureError) Error() string {
	return fmt.Sprintf("カメラ %s: ワーカーの起動に失敗: %v", e.CameraID, e.Cause)
}

// Unwrap は起動失敗の原因エラーを返す
func (e *WorkerStartFailureError) Unwrap() error {
	return e.Cause
}
