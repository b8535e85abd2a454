package stream

import "time"

// MessageType は配信メッセージの種別を表す
type MessageType string

const (
	// MessageFrame はバイナリのフレームペイロードを表す
	MessageFrame MessageType = "frame"
	// MessageAlert は構造化されたアラートイベントを表す
	MessageAlert MessageType = "alert"
)

// AlertEvent は検知ワーカーが発報したアラートを表す。
// WebSocket上では {"type":"alert","payload":{...}} の形で配信される。
type AlertEvent struct {
	CameraID   string    `json:"camera_id"`
	CameraName string    `json:"camera_name,omitempty"`
	TrackID    int       `json:"track_id,omitempty"`
	ThreatType string    `json:"threat_type"`
	Level      string    `json:"level"`
	RiskScore  float64   `json:"risk_score"`
	ZoneID     int       `json:"zone_id,omitempty"`
	ZoneName   string    `json:"zone_name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Message は視聴者が受信する1件のメッセージを表す
type Message struct {
	Type  MessageType
	Frame []byte     // Type == MessageFrame の場合のみ有効
	Alert AlertEvent // Type == MessageAlert の場合のみ有効
}
