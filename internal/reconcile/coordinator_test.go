package reconcile

import (
	"context"
	"testing"

	"mihari/internal/session"
)

func TestCoordinator_ReconcilePartialFailure(t *testing.T) {
	ctx := context.Background()
	factory := session.NewMockWorkerFactory()
	registry := session.NewDefaultRegistry(factory)
	coordinator := NewCoordinator(registry)

	// cam-1は既に実行中、cam-3は起動に失敗する
	if _, err := registry.Start(ctx, "cam-1"); err != nil {
		t.Fatalf("Start cam-1 failed: %v", err)
	}
	factory.SetShouldFailSpawn("cam-3", true)

	results := coordinator.Reconcile(ctx, []string{"cam-1", "cam-2", "cam-3"})
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	byCamera := make(map[string]Result, len(results))
	for _, r := range results {
		byCamera[r.CameraID] = r
	}

	// 既に実行中は成功扱い
	if byCamera["cam-1"].Outcome != OutcomeAlreadyRunning {
		t.Errorf("cam-1: expected already_running, got %s", byCamera["cam-1"].Outcome)
	}
	if byCamera["cam-1"].Err != nil {
		t.Errorf("cam-1: expected no error, got %v", byCamera["cam-1"].Err)
	}

	// cam-2は新規起動
	if byCamera["cam-2"].Outcome != OutcomeStarted {
		t.Errorf("cam-2: expected started, got %s", byCamera["cam-2"].Outcome)
	}
	if byCamera["cam-2"].Status != session.StatusRunning {
		t.Errorf("cam-2: expected running, got %s", byCamera["cam-2"].Status)
	}

	// cam-3の失敗は他のカメラに影響しない
	if byCamera["cam-3"].Outcome != OutcomeFailed {
		t.Errorf("cam-3: expected failed, got %s", byCamera["cam-3"].Outcome)
	}
	if byCamera["cam-3"].Err == nil {
		t.Error("cam-3: expected error to be reported")
	}
	if registry.Status("cam-2") != session.StatusRunning {
		t.Error("cam-2 should be running despite cam-3 failure")
	}
}

func TestCoordinator_ReconcileIdempotent(t *testing.T) {
	ctx := context.Background()
	factory := session.NewMockWorkerFactory()
	registry := session.NewDefaultRegistry(factory)
	coordinator := NewCoordinator(registry)

	desired := []string{"cam-1", "cam-2"}

	// 1回目で全カメラが起動する
	for _, r := range coordinator.Reconcile(ctx, desired) {
		if r.Outcome != OutcomeStarted {
			t.Errorf("First reconcile %s: expected started, got %s", r.CameraID, r.Outcome)
		}
	}

	// 2回目は全てalready_runningになり、ワーカーは増えない
	for _, r := range coordinator.Reconcile(ctx, desired) {
		if r.Outcome != OutcomeAlreadyRunning {
			t.Errorf("Second reconcile %s: expected already_running, got %s", r.CameraID, r.Outcome)
		}
	}
	for _, cameraID := range desired {
		if factory.SpawnCount(cameraID) != 1 {
			t.Errorf("%s: expected exactly 1 spawn, got %d", cameraID, factory.SpawnCount(cameraID))
		}
	}
}

func TestCoordinator_ReconcileRetriesErrorState(t *testing.T) {
	ctx := context.Background()
	factory := session.NewMockWorkerFactory()
	registry := session.NewDefaultRegistry(factory)
	coordinator := NewCoordinator(registry)

	// 最初の突き合わせで失敗させてerror状態にする
	factory.SetShouldFailSpawn("cam-1", true)
	results := coordinator.Reconcile(ctx, []string{"cam-1"})
	if results[0].Outcome != OutcomeFailed {
		t.Fatalf("Expected failed, got %s", results[0].Outcome)
	}
	if registry.Status("cam-1") != session.StatusError {
		t.Fatalf("Expected error status, got %s", registry.Status("cam-1"))
	}

	// error状態のカメラは次の突き合わせで再試行される
	factory.SetShouldFailSpawn("cam-1", false)
	results = coordinator.Reconcile(ctx, []string{"cam-1"})
	if results[0].Outcome != OutcomeStarted {
		t.Fatalf("Expected started on retry, got %s", results[0].Outcome)
	}
	if registry.Status("cam-1") != session.StatusRunning {
		t.Errorf("Expected running after retry, got %s", registry.Status("cam-1"))
	}
}
