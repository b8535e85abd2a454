package stream

import "sync"

// Subscription は視聴者1人分の購読を表す。
// フレームは1スロットのメールボックス（上書き方式）、アラートは
// 欠落なしのFIFOで保持する。消費側のゴルーチンは1つであることを前提とする。
type Subscription struct {
	id       string
	cameraID string

	mu   sync.Mutex
	cond *sync.Cond

	frame      []byte       // 未消費フレーム（nil = 消費済み）
	alerts     []AlertEvent // 未消費アラートのFIFO
	frameDrops uint64       // 上書きで破棄されたフレーム数

	closed      bool
	closeReason string
}

// ID は購読の一意識別子を返す
func (s *Subscription) ID() string {
	return s.id
}

// CameraID は購読対象のカメラIDを返す
func (s *Subscription) CameraID() string {
	return s.cameraID
}

// Next は次のメッセージが届くまでブロックして受信する。
// アラートはフレームより先に消費される（発報済みインシデントを
// 遅延させないため）。購読がクローズされた場合はfalseを返す。
func (s *Subscription) Next() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.alerts) == 0 && s.frame == nil && !s.closed {
		s.cond.Wait()
	}

	// クローズ後も滞留アラートは最後まで配信する
	if len(s.alerts) > 0 {
		alert := s.alerts[0]
		s.alerts = s.alerts[1:]
		return Message{Type: MessageAlert, Alert: alert}, true
	}

	if s.closed {
		return Message{}, false
	}

	frame := s.frame
	s.frame = nil
	return Message{Type: MessageFrame, Frame: frame}, true
}

// TryNext はブロックせずに次のメッセージを受信する。
// 受信できるメッセージがない場合は2番目の戻り値がfalseになる。
func (s *Subscription) TryNext() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.alerts) > 0 {
		alert := s.alerts[0]
		s.alerts = s.alerts[1:]
		return Message{Type: MessageAlert, Alert: alert}, true
	}

	if s.frame != nil {
		frame := s.frame
		s.frame = nil
		return Message{Type: MessageFrame, Frame: frame}, true
	}

	return Message{}, false
}

// Closed は購読がクローズ済みかどうかを返す
func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// CloseReason はクローズ理由を返す（未クローズの場合は空文字列）
func (s *Subscription) CloseReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeReason
}

// FrameDrops は上書きで破棄されたフレーム数を返す
func (s *Subscription) FrameDrops() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameDrops
}

// publishFrame はフレームをメールボックスに格納する（上書き方式）
func (s *Subscription) publishFrame(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	// 未消費フレームは最新で上書きする（遅い視聴者には最新のみ届く）
	if s.frame != nil {
		s.frameDrops++
	}
	s.frame = frame
	s.cond.Signal()
}

// publishAlert はアラートをFIFOに追加する（欠落なし）
func (s *Subscription) publishAlert(alert AlertEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.alerts = append(s.alerts, alert)
	s.cond.Signal()
}

// close は購読をクローズして待機中の消費者を起こす（冪等）
func (s *Subscription) close(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.closeReason = reason
	s.cond.Broadcast()
}
