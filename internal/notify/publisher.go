package notify

import (
	"context"

	"mihari/internal/stream"
)

// Publisher はアラートイベントを下流の通知系へ発行するインターフェース
type Publisher interface {
	// PublishAlert はアラートを発行する
	PublishAlert(ctx context.Context, alert stream.AlertEvent) error

	// Close はリソースを解放する
	Close() error
}

// NopPublisher は何もしないPublisher実装。
// 通知配送が構成されていない場合に使う。
type NopPublisher struct{}

// PublishAlert は何もしない
func (NopPublisher) PublishAlert(_ context.Context, _ stream.AlertEvent) error {
	return nil
}

// Close は何もしない
func (NopPublisher) Close() error {
	return nil
}
