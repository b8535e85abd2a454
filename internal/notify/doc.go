// Package notify は、アラートイベントの下流への発行を担当します。
//
// 通知の実際の配送（メール・SMS・チャット等）はこのコアの範囲外であり、
// Publisherインターフェースの向こう側に置かれます。ここでは視聴者への
// ファンアウト（streamパッケージ）とは別に、発報済みインシデントを
// メッセージブローカーへ引き渡すAMQP実装を提供します。
package notify
