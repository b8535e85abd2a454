// Package reconcile は、望ましい状態と実際のセッション状態の突き合わせを行います。
//
// このパッケージは、ダッシュボード入場時の一括起動（AutoStart）と、
// 状態観測者を最終的に一貫させる定期ポーリングを担当します。
// プッシュ通知（フレーム・アラート配信）は全観測者への状態変化の到達を
// 保証しないため、ポーリングが鮮度の上限を1周期に抑える後ろ盾となります。
//
// 仕様:
//   - 突き合わせは宣言的な差分（desired \ {running, starting}）として計算する
//   - カメラごとの起動失敗は他のカメラの処理を中断しない（部分失敗の許容）
//   - 「既に実行中」は成功として扱う（冪等なショートサーキット）
package reconcile
