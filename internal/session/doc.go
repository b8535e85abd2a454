// Package session は、カメラごとの解析ワーカーのライフサイクルを管理します。
//
// このパッケージは、各カメラの解析セッション状態（停止・起動中・実行中・
// 一時停止・エラー）の唯一の正であり、並行するstart要求の直列化と
// 重複ワーカー生成の防止を担当します。
//
// 責務:
//   - カメラ単位の状態遷移の直列化（カメラごとの排他区間）
//   - ワーカーハンドルの排他的な所有と解放
//   - 冪等なstart/stopと、Running⇄Paused間の遷移検証
//   - 状態スナップショットの提供（遷移ロックをブロックしない読み取り）
//
// 仕様:
//   - 状態機械: stopped → starting → running ⇄ paused、任意の状態 → error
//   - error → starting の再試行を許可（stoppedからの起動と同じ扱い）
//   - カメラごとに生存するワーカーハンドルは常に最大1つ
//   - errorは明示的なstart再試行まで保持される（自動回復しない）
package session
