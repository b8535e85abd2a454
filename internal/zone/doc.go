// Package zone は、カメラごとの多角形ゾーン定義を管理します。
//
// このパッケージは、検知ワーカーが侵入判定に参照するゾーンの保存・検証と、
// 座標系の共有契約を担当します。並行制御上の複雑さは持ちません。
//
// 責務:
//   - ゾーンセットの保存と全置換（部分更新はしない）
//   - ゾーンの検証（頂点数・名前）と原子的な書き込み
//   - カメラ内で再利用されない単調増加ゾーンIDの採番
//   - 基準フレーム座標系の契約（参照解像度とスケーリング）
//
// 仕様:
//   - 多角形は閉じているものとして解釈する（末尾から先頭への暗黙の辺）
//   - 頂点は3点以上、名前は空でないこと
//   - 検証に失敗した場合は一切書き込まず、従前のセットを保持する
//   - ゾーンIDは削除後も再利用しない（過去のインシデント参照を壊さないため）
package zone
