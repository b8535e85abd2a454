// Package worker は、カメラ1台分のフレーム生成ユニットの実装を提供します。
//
// 実際の検知・追跡アルゴリズムはこのコアの範囲外で、外部プロセスとして
// 差し替えられる前提です。ここでは配線確認と開発用に、合成フレームを
// 生成してブローカーへ配信するシミュレーションワーカーを提供します。
//
// 仕様:
//   - session.Workerインターフェースを実装する（ハンドルはregistryが所有）
//   - 一時停止中はフレーム生成を止めるが、内部の追跡状態は破棄しない
//   - ゾーン定義を参照して侵入を判定し、アラートをブローカーと
//     通知Publisherの両方へ発行する
package worker
