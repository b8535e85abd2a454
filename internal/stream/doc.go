// Package stream は、実行中ワーカーから視聴者へのフレーム配信を管理します。
//
// このパッケージは、カメラごとのフレーム・アラートのファンアウトを担当し、
// セッション管理（sessionパッケージ）のロックからは独立して動作します。
//
// 責務:
//   - 視聴者の購読・購読解除の管理（カメラの状態に関係なく受け付ける）
//   - フレームのファンアウト（最新フレーム優先・滞留なし）
//   - アラートイベントのファンアウト（欠落なしのキュー配信）
//   - セッション終了時の購読の一斉クローズ
//
// 仕様:
//   - フレームは視聴者ごとの1スロットメールボックス。未消費のまま次の
//     フレームが届いた場合、古い方を破棄する（遅い視聴者への滞留を防ぐ）
//   - アラートは発報済みインシデントを表すため、視聴者ごとのFIFOで
//     欠落なく配信する
//   - 停止していないカメラへの購読は有効（フレームが届くまで何も受信しない）
package stream
