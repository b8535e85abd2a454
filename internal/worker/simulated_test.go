package worker

import (
	"context"
	"testing"
	"time"

	"mihari/internal/notify"
	"mihari/internal/stream"
	"mihari/internal/zone"
)

func newTestFactory(t *testing.T) (*Factory, *stream.Broker, *zone.DefaultStore) {
	t.Helper()
	broker := stream.NewBroker()
	store, err := zone.NewDefaultStore(context.Background(), zone.NewMemoryRepository())
	if err != nil {
		t.Fatalf("NewDefaultStore failed: %v", err)
	}
	factory := NewFactory(broker, notify.NopPublisher{}, store, 100)
	return factory, broker, store
}

func waitForFrame(t *testing.T, sub *stream.Subscription) stream.Message {
	t.Helper()
	received := make(chan stream.Message, 1)
	go func() {
		if msg, ok := sub.Next(); ok {
			received <- msg
		}
		close(received)
	}()

	select {
	case msg, ok := <-received:
		if !ok {
			t.Fatal("Subscription closed before receiving a frame")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for frame")
		return stream.Message{}
	}
}

func TestSimulatedWorker_ProducesFrames(t *testing.T) {
	ctx := context.Background()
	factory, broker, _ := newTestFactory(t)
	factory.RegisterCamera("cam-1", "玄関カメラ")

	sub := broker.Subscribe("cam-1")
	defer broker.Unsubscribe(sub)

	w, err := factory.Spawn(ctx, "cam-1")
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	defer func() { _ = w.Stop(ctx) }()

	msg := waitForFrame(t, sub)
	if msg.Type != stream.MessageFrame {
		t.Fatalf("Expected frame, got %s", msg.Type)
	}

	// フレームはJPEGマーカーで囲まれている
	frame := msg.Frame
	if len(frame) < 4 {
		t.Fatalf("Frame too short: %d bytes", len(frame))
	}
	if frame[0] != 0xFF || frame[1] != 0xD8 {
		t.Error("Expected JPEG start marker")
	}
	if frame[len(frame)-2] != 0xFF || frame[len(frame)-1] != 0xD9 {
		t.Error("Expected JPEG end marker")
	}
}

func TestSimulatedWorker_PauseHaltsFrames(t *testing.T) {
	ctx := context.Background()
	factory, broker, _ := newTestFactory(t)

	sub := broker.Subscribe("cam-1")
	defer broker.Unsubscribe(sub)

	w, err := factory.Spawn(ctx, "cam-1")
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	defer func() { _ = w.Stop(ctx) }()

	// フレームが流れ始めるのを待つ
	waitForFrame(t, sub)

	if err := w.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	// 一時停止が反映されるまで待ち、滞留分を読み捨てる
	time.Sleep(100 * time.Millisecond)
	for {
		if _, ok := sub.TryNext(); !ok {
			break
		}
	}

	// 一時停止中は新しいフレームが届かない
	time.Sleep(150 * time.Millisecond)
	if _, ok := sub.TryNext(); ok {
		t.Error("Expected no frames while paused")
	}

	// 再開すると再び届く
	if err := w.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	waitForFrame(t, sub)
}

func TestSimulatedWorker_SpawnRequiresCameraID(t *testing.T) {
	factory, _, _ := newTestFactory(t)
	if _, err := factory.Spawn(context.Background(), ""); err == nil {
		t.Error("Expected error for empty camera id")
	}
}
