package stream

import (
	"testing"
	"time"
)

func TestBroker_SubscribePublish(t *testing.T) {
	broker := NewBroker()

	sub := broker.Subscribe("cam-1")
	if sub.CameraID() != "cam-1" {
		t.Fatalf("Expected camera cam-1, got %s", sub.CameraID())
	}

	// 停止中のカメラへの購読は有効で、何も届かない
	if _, ok := sub.TryNext(); ok {
		t.Fatal("Expected no message before any publish")
	}

	// フレームが配信され始めると、再購読なしで受信できる
	broker.PublishFrame("cam-1", []byte("frame-1"))

	msg, ok := sub.Next()
	if !ok {
		t.Fatal("Expected message, subscription closed")
	}
	if msg.Type != MessageFrame {
		t.Fatalf("Expected frame message, got %s", msg.Type)
	}
	if string(msg.Frame) != "frame-1" {
		t.Errorf("Expected frame-1, got %s", msg.Frame)
	}
}

func TestBroker_LatestFrameWins(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe("cam-1")

	// 消費されないまま複数フレームを配信すると、最新のみ残る
	broker.PublishFrame("cam-1", []byte("stale-1"))
	broker.PublishFrame("cam-1", []byte("stale-2"))
	broker.PublishFrame("cam-1", []byte("latest"))

	msg, ok := sub.TryNext()
	if !ok {
		t.Fatal("Expected a frame")
	}
	if string(msg.Frame) != "latest" {
		t.Errorf("Expected latest frame, got %s", msg.Frame)
	}
	if sub.FrameDrops() != 2 {
		t.Errorf("Expected 2 dropped frames, got %d", sub.FrameDrops())
	}

	// 次の受信は空
	if _, ok := sub.TryNext(); ok {
		t.Error("Expected no further message")
	}
}

func TestBroker_AlertsNeverDropped(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe("cam-1")

	// アラートはフレームと違って全件キューされる
	for i := 0; i < 5; i++ {
		broker.PublishAlert("cam-1", AlertEvent{CameraID: "cam-1", ThreatType: "intrusion", TrackID: i})
	}
	broker.PublishFrame("cam-1", []byte("frame"))

	// アラートがフレームより先に全件届く
	for i := 0; i < 5; i++ {
		msg, ok := sub.TryNext()
		if !ok {
			t.Fatalf("Expected alert %d", i)
		}
		if msg.Type != MessageAlert {
			t.Fatalf("Expected alert before frame, got %s", msg.Type)
		}
		if msg.Alert.TrackID != i {
			t.Errorf("Expected alert order preserved: want track %d, got %d", i, msg.Alert.TrackID)
		}
	}

	msg, ok := sub.TryNext()
	if !ok || msg.Type != MessageFrame {
		t.Fatal("Expected frame after alerts")
	}
}

func TestBroker_Unsubscribe(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe("cam-1")

	broker.Unsubscribe(sub)
	if broker.SubscriberCount("cam-1") != 0 {
		t.Errorf("Expected 0 subscribers, got %d", broker.SubscriberCount("cam-1"))
	}
	if !sub.Closed() {
		t.Error("Expected subscription to be closed")
	}

	// 2回目の解除は何もしない（冪等）
	broker.Unsubscribe(sub)

	// クローズ後の配信は届かない
	broker.PublishFrame("cam-1", []byte("frame"))
	if _, ok := sub.TryNext(); ok {
		t.Error("Expected no message after unsubscribe")
	}
}

func TestBroker_CloseCamera(t *testing.T) {
	broker := NewBroker()
	sub1 := broker.Subscribe("cam-1")
	sub2 := broker.Subscribe("cam-1")
	other := broker.Subscribe("cam-2")

	broker.CloseCamera("cam-1", ReasonSessionEnded)

	for i, sub := range []*Subscription{sub1, sub2} {
		if !sub.Closed() {
			t.Errorf("Subscription %d: expected closed", i)
		}
		if sub.CloseReason() != ReasonSessionEnded {
			t.Errorf("Subscription %d: expected reason %q, got %q", i, ReasonSessionEnded, sub.CloseReason())
		}
		if _, ok := sub.Next(); ok {
			t.Errorf("Subscription %d: expected Next to report closed", i)
		}
	}

	// 別カメラの購読には影響しない
	if other.Closed() {
		t.Error("Expected cam-2 subscription to stay open")
	}
}

func TestSubscription_NextBlocksUntilPublish(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe("cam-1")

	received := make(chan Message, 1)
	go func() {
		msg, ok := sub.Next()
		if ok {
			received <- msg
		}
		close(received)
	}()

	// 消費側が待機状態に入るまで少し待つ
	time.Sleep(50 * time.Millisecond)
	broker.PublishFrame("cam-1", []byte("frame"))

	select {
	case msg, ok := <-received:
		if !ok {
			t.Fatal("Subscription closed unexpectedly")
		}
		if string(msg.Frame) != "frame" {
			t.Errorf("Expected frame payload, got %s", msg.Frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not wake up after publish")
	}
}

func TestSubscription_PendingAlertsDeliveredAfterClose(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe("cam-1")

	broker.PublishAlert("cam-1", AlertEvent{CameraID: "cam-1", ThreatType: "intrusion"})
	broker.CloseCamera("cam-1", ReasonSessionEnded)

	// クローズ後も滞留アラートは届く
	msg, ok := sub.Next()
	if !ok {
		t.Fatal("Expected pending alert to be delivered after close")
	}
	if msg.Type != MessageAlert {
		t.Fatalf("Expected alert, got %s", msg.Type)
	}

	// その後はクローズが観測される
	if _, ok := sub.Next(); ok {
		t.Error("Expected closed after draining alerts")
	}
}
