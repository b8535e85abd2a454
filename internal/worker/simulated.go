package worker

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"sync"
	"time"

	"mihari/internal/notify"
	"mihari/internal/session"
	"mihari/internal/stream"
	"mihari/internal/zone"
)

// 侵入判定のシミュレーション周期（フレーム数）
const intrusionCheckEvery = 150

// SimulatedWorker は合成フレームを生成するワーカー実装。
// 検知ワーカーの差し替え先と同じ契約（フレーム配信・ゾーン参照・
// アラート発行）で動作する。
type SimulatedWorker struct {
	cameraID   string
	cameraName string
	fps        int

	broker    *stream.Broker
	publisher notify.Publisher
	zones     zone.Store

	stopCh chan struct{}
	wg     sync.WaitGroup

	mu       sync.RWMutex
	paused   bool
	frameSeq uint64
	trackSeq int
}

// Pause はフレーム生成を一時停止する。追跡状態は維持される。
func (w *SimulatedWorker) Pause() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paused = true
	return nil
}

// Resume はフレーム生成を再開する
func (w *SimulatedWorker) Resume() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paused = false
	return nil
}

// Stop はワーカーを破棄する
func (w *SimulatedWorker) Stop(_ context.Context) error {
	close(w.stopCh)
	w.wg.Wait()
	return nil
}

// run はフレーム生成ループの本体
func (w *SimulatedWorker) run(ctx context.Context) {
	defer w.wg.Done()

	interval := time.Second / time.Duration(w.fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			paused := w.paused
			if !paused {
				w.frameSeq++
			}
			seq := w.frameSeq
			w.mu.Unlock()

			// 一時停止中はフレームを配信しない（状態は保持される）
			if paused {
				continue
			}

			w.broker.PublishFrame(w.cameraID, w.syntheticFrame(seq))

			if seq%intrusionCheckEvery == 0 {
				w.checkIntrusion(ctx)
			}
		}
	}
}

// syntheticFrame はJPEG形式を模した合成フレームを生成する。
// 先頭と末尾のマーカーは実フレームと同じ（FFD8 / FFD9）。
func (w *SimulatedWorker) syntheticFrame(seq uint64) []byte {
	frame := make([]byte, 16)
	frame[0], frame[1] = 0xFF, 0xD8
	copy(frame[2:], []byte("mihari"))
	binary.BigEndian.PutUint64(frame[8:], seq)
	frame[14], frame[15] = 0xFF, 0xD9
	return frame
}

// checkIntrusion は制限区域への侵入をシミュレートし、
// 該当があればアラートを視聴者と通知系の両方へ発行する。
func (w *SimulatedWorker) checkIntrusion(ctx context.Context) {
	set := w.zones.GetZones(w.cameraID)
	if len(set.Zones) == 0 {
		return
	}

	// 基準フレーム中央に検知対象がいると仮定して各ゾーンを判定する
	target := zone.Point{
		X: float64(set.ReferenceWidth) / 2,
		Y: float64(set.ReferenceHeight) / 2,
	}

	for _, z := range set.Zones {
		if z.AccessLevel != zone.AccessRestricted && z.AccessLevel != zone.AccessCritical {
			continue
		}
		if !z.Contains(target) {
			continue
		}

		w.mu.Lock()
		w.trackSeq++
		trackID := w.trackSeq
		w.mu.Unlock()

		level := "WARNING"
		risk := 0.6
		if z.AccessLevel == zone.AccessCritical {
			level = "CRITICAL"
			risk = 0.9
		}

		alert := stream.AlertEvent{
			CameraID:   w.cameraID,
			CameraName: w.cameraName,
			TrackID:    trackID,
			ThreatType: "zone_intrusion",
			Level:      level,
			RiskScore:  risk,
			ZoneID:     z.ID,
			ZoneName:   z.Name,
			OccurredAt: time.Now(),
		}

		w.broker.PublishAlert(w.cameraID, alert)
		if err := w.publisher.PublishAlert(ctx, alert); err != nil {
			log.Printf("カメラ %s のアラート発行に失敗: %v", w.cameraID, err)
		}
	}
}

// Factory は設定済みカメラのSimulatedWorkerを生成するsession.WorkerFactory実装
type Factory struct {
	broker    *stream.Broker
	publisher notify.Publisher
	zones     zone.Store
	fps       int

	mu    sync.RWMutex
	names map[string]string // カメラID → 表示名
}

// NewFactory は新しいFactoryを作成する
func NewFactory(broker *stream.Broker, publisher notify.Publisher, zones zone.Store, fps int) *Factory {
	if fps <= 0 {
		fps = 15
	}
	return &Factory{
		broker:    broker,
		publisher: publisher,
		zones:     zones,
		fps:       fps,
		names:     make(map[string]string),
	}
}

// RegisterCamera はカメラの表示名を登録する
func (f *Factory) RegisterCamera(cameraID, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names[cameraID] = name
}

// Spawn は指定カメラのワーカーを生成して起動する
func (f *Factory) Spawn(ctx context.Context, cameraID string) (session.Worker, error) {
	if cameraID == "" {
		return nil, fmt.Errorf("カメラIDが空です")
	}

	f.mu.RLock()
	name := f.names[cameraID]
	f.mu.RUnlock()
	if name == "" {
		name = cameraID
	}

	w := &SimulatedWorker{
		cameraID:   cameraID,
		cameraName: name,
		fps:        f.fps,
		broker:     f.broker,
		publisher:  f.publisher,
		zones:      f.zones,
		stopCh:     make(chan struct{}),
	}

	w.wg.Add(1)
	go w.run(ctx)
	return w, nil
}
