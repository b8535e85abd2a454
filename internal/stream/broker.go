package stream

import (
	"sync"

	"github.com/google/uuid"
)

// クローズ理由の定数
const (
	ReasonSessionEnded = "session ended" // カメラのセッション停止によるクローズ
	ReasonUnsubscribed = "unsubscribed"  // 視聴者自身による購読解除
)

// Broker はカメラごとのフレーム・アラート配信を管理する。
// 全メソッドは並行呼び出しに対して安全で、sessionパッケージの
// ロックとは独立している。
type Broker struct {
	mu      sync.RWMutex
	viewers map[string]map[string]*Subscription // cameraID → 購読ID → 購読
}

// NewBroker は新しいBrokerを作成する
func NewBroker() *Broker {
	return &Broker{
		viewers: make(map[string]map[string]*Subscription),
	}
}

// Subscribe は視聴者をカメラのストリームに接続する。
// カメラが実行中でなくても購読は有効で、フレームが配信されるまで
// 何も受信しない（フィードの不在は正常な状態）。
func (b *Broker) Subscribe(cameraID string) *Subscription {
	sub := &Subscription{
		id:       uuid.New().String(),
		cameraID: cameraID,
	}
	sub.cond = sync.NewCond(&sub.mu)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.viewers[cameraID] == nil {
		b.viewers[cameraID] = make(map[string]*Subscription)
	}
	b.viewers[cameraID][sub.id] = sub
	return sub
}

// Unsubscribe は購読を解除してリソースを解放する。
// 2回目以降の呼び出しは何もしない（冪等）。
func (b *Broker) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	sub.close(ReasonUnsubscribed)

	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, exists := b.viewers[sub.cameraID]; exists {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(b.viewers, sub.cameraID)
		}
	}
}

// PublishFrame はフレームを現在の全購読者に配信する。
// 実行中のワーカーから呼ばれる。配信はベストエフォートで、
// 消費が追いつかない視聴者には最新フレームのみ届く。
func (b *Broker) PublishFrame(cameraID string, frame []byte) {
	for _, sub := range b.snapshot(cameraID) {
		sub.publishFrame(frame)
	}
}

// PublishAlert はアラートイベントを現在の全購読者に配信する。
// アラートは発報済みインシデントを表すため、欠落なくキューされる。
func (b *Broker) PublishAlert(cameraID string, alert AlertEvent) {
	for _, sub := range b.snapshot(cameraID) {
		sub.publishAlert(alert)
	}
}

// CloseCamera は指定カメラの全購読を理由付きでクローズする。
// セッション停止時にregistryの遷移リスナー経由で呼ばれる。
func (b *Broker) CloseCamera(cameraID, reason string) {
	b.mu.Lock()
	subs := b.viewers[cameraID]
	delete(b.viewers, cameraID)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close(reason)
	}
}

// SubscriberCount は指定カメラの現在の購読者数を返す
func (b *Broker) SubscriberCount(cameraID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.viewers[cameraID])
}

// snapshot は指定カメラの購読一覧のコピーを取得する
func (b *Broker) snapshot(cameraID string) []*Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := make([]*Subscription, 0, len(b.viewers[cameraID]))
	for _, sub := range b.viewers[cameraID] {
		subs = append(subs, sub)
	}
	return subs
}
