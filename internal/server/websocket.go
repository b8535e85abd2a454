package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"mihari/internal/session"
	"mihari/internal/stream"
)

// WebSocket書き込みの待ち時間上限
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// ダッシュボードは同一ホスト配信の前提
	CheckOrigin: func(r *http.Request) bool { return true },
}

// alertEnvelope はWebSocket上のアラートメッセージの封筒形式
type alertEnvelope struct {
	Type    string            `json:"type"`
	Payload stream.AlertEvent `json:"payload"`
}

// handleVideoFeed はカメラのライブフィードをWebSocketで配信する。
// フレームはバイナリメッセージ、アラートはテキストのJSONメッセージで送る。
func (s *Server) handleVideoFeed(c *gin.Context) {
	cameraID, ok := s.knownCamera(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgradeが失敗した場合はエラーレスポンス送信済み
		return
	}
	defer func() { _ = conn.Close() }()

	// 実行中・一時停止中のカメラのみ視聴できる
	status := s.registry.Status(cameraID)
	if status != session.StatusRunning && status != session.StatusPaused {
		deadline := time.Now().Add(writeWait)
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "camera is not running")
		_ = conn.WriteControl(websocket.CloseMessage, message, deadline)
		return
	}

	sub := s.broker.Subscribe(cameraID)
	defer s.broker.Unsubscribe(sub)

	// 読み込みループ: クライアント切断の検知専用。
	// 切断で購読を解除し、ブロック中の書き込みループを解放する。
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.broker.Unsubscribe(sub)
				return
			}
		}
	}()

	// 書き込みループ: 購読からメッセージを取り出して配信する
	for {
		msg, ok := sub.Next()
		if !ok {
			// セッション停止または購読解除。理由を添えてクローズする
			deadline := time.Now().Add(writeWait)
			message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, sub.CloseReason())
			_ = conn.WriteControl(websocket.CloseMessage, message, deadline)
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

		switch msg.Type {
		case stream.MessageAlert:
			if err := conn.WriteJSON(alertEnvelope{Type: "alert", Payload: msg.Alert}); err != nil {
				return
			}
		case stream.MessageFrame:
			if err := conn.WriteMessage(websocket.BinaryMessage, msg.Frame); err != nil {
				return
			}
		}
	}
}
