// Package server は、HTTPサーバーとWebSocket配信を管理します。
//
// このパッケージは、HTTPサーバーの起動、ルーティング、セッション操作
// エンドポイント、ゾーン編集API、WebSocketによるライブフィード配信を
// 担当します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - 解析セッションの操作API（start/stop/pause/play）
//   - ゾーン定義の取得・全置換API
//   - WebSocket接続の確立とフレーム・アラートの配信
//   - 起動時の自動開始と突き合わせループの管理
//
// 仕様:
//   - ルーティングはgin-gonic/ginを使用
//   - WebSocketはgorilla/websocketを使用
//   - グレースフルシャットダウンに対応
//   - 複数クライアントの同時接続をサポート
package server
