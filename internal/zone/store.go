package zone

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// 検証ルールの識別子
const (
	RuleMinPoints     = "min_points"     // 頂点は3点以上
	RuleEmptyName     = "empty_name"     // 名前は空でないこと
	RuleReferenceSize = "reference_size" // 基準フレーム寸法は正の値
	RuleDuplicateID   = "duplicate_id"   // 採番済みIDはセット内で一意
)

// ValidationError はゾーン書き込みの拒否理由を表す。
// 違反したゾーンとルールを特定し、書き込みは一切行われない。
type ValidationError struct {
	CameraID string
	ZoneID   int
	ZoneName string
	Rule     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("カメラ %s: ゾーン %q (id=%d) の検証に失敗: %s", e.CameraID, e.ZoneName, e.ZoneID, e.Rule)
}

// Store はカメラごとのゾーンセットを管理するインターフェース
type Store interface {
	// GetZones は指定カメラのゾーンセットを取得する（未定義なら空セット）
	GetZones(cameraID string) ZoneSet

	// ReplaceZones は検証のうえゾーンセット全体を置き換える。
	// 検証失敗時は従前のセットを変更せずValidationErrorを返す
	ReplaceZones(ctx context.Context, cameraID string, set ZoneSet) (ZoneSet, error)

	// NextZoneID は次に採番されるゾーンIDを返す（既存最大+1、空なら1）
	NextZoneID(cameraID string) int

	// RemoveCamera はカメラのゾーン定義を削除する
	RemoveCamera(ctx context.Context, cameraID string) error
}

// DefaultStore はStoreのデフォルト実装。
// メモリ上のセットを正とし、Repositoryへ書き込んでから反映する。
type DefaultStore struct {
	repo Repository

	mu      sync.RWMutex
	sets    map[string]ZoneSet
	lastIDs map[string]int // カメラごとの採番済み最大ID（削除後も減らない）
}

// NewDefaultStore は新しいDefaultStoreを作成し、Repositoryから復元する
func NewDefaultStore(ctx context.Context, repo Repository) (*DefaultStore, error) {
	records, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("ゾーン定義の読み込みに失敗: %w", err)
	}

	sets := make(map[string]ZoneSet, len(records))
	lastIDs := make(map[string]int, len(records))
	for cameraID, rec := range records {
		sets[cameraID] = rec.Set
		lastIDs[cameraID] = rec.LastZoneID
	}

	return &DefaultStore{repo: repo, sets: sets, lastIDs: lastIDs}, nil
}

// GetZones は指定カメラのゾーンセットを取得する
func (s *DefaultStore) GetZones(cameraID string) ZoneSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, exists := s.sets[cameraID]
	if !exists {
		return EmptyZoneSet()
	}
	return set.Clone()
}

// ReplaceZones はゾーンセット全体を検証して置き換える。
// フロントエンドは編集済みのセット全体を送信するため、部分更新はない。
// ID未採番（0以下）のゾーンには単調増加IDを割り当てる。
func (s *DefaultStore) ReplaceZones(ctx context.Context, cameraID string, set ZoneSet) (ZoneSet, error) {
	if err := validate(cameraID, set); err != nil {
		return ZoneSet{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lastID := s.lastIDs[cameraID]

	// 決定的な採番のためキー順に処理する
	keys := make([]int, 0, len(set.Zones))
	for key := range set.Zones {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	next := ZoneSet{
		ReferenceWidth:  set.ReferenceWidth,
		ReferenceHeight: set.ReferenceHeight,
		Zones:           make(map[int]Zone, len(set.Zones)),
	}

	// 既存IDを先に確定させ、高水位を引き上げる
	for _, key := range keys {
		z := set.Zones[key]
		if z.ID > 0 {
			if z.ID > lastID {
				lastID = z.ID
			}
		}
	}

	// 新規ゾーン（IDが0以下、一時キーで送信される）に採番する
	for _, key := range keys {
		z := set.Zones[key]
		if z.ID <= 0 {
			lastID++
			z.ID = lastID
		}
		points := make([]Point, len(z.Points))
		copy(points, z.Points)
		z.Points = points
		next.Zones[z.ID] = z
	}

	// 永続化に成功してからメモリへ反映する（失敗時は従前のまま）
	if err := s.repo.Save(ctx, cameraID, Record{Set: next, LastZoneID: lastID}); err != nil {
		return ZoneSet{}, fmt.Errorf("カメラ %s のゾーン保存に失敗: %w", cameraID, err)
	}

	s.sets[cameraID] = next
	s.lastIDs[cameraID] = lastID
	return next.Clone(), nil
}

// NextZoneID は次に採番されるゾーンIDを返す。
// 採番済み最大IDは削除されても減らないため、IDが再利用されることはない。
func (s *DefaultStore) NextZoneID(cameraID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastIDs[cameraID] + 1
}

// RemoveCamera はカメラのゾーン定義を削除する
func (s *DefaultStore) RemoveCamera(ctx context.Context, cameraID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx, cameraID); err != nil {
		return fmt.Errorf("カメラ %s のゾーン削除に失敗: %w", cameraID, err)
	}

	delete(s.sets, cameraID)
	delete(s.lastIDs, cameraID)
	return nil
}

// validate はゾーンセット全体を検証する。
// いずれか1つでも違反があれば、最初の違反を特定して返す。
func validate(cameraID string, set ZoneSet) error {
	if len(set.Zones) > 0 && (set.ReferenceWidth <= 0 || set.ReferenceHeight <= 0) {
		return &ValidationError{CameraID: cameraID, Rule: RuleReferenceSize}
	}

	// 報告を決定的にするためキー順に検証する
	keys := make([]int, 0, len(set.Zones))
	for key := range set.Zones {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	seen := make(map[int]bool, len(set.Zones))
	for _, key := range keys {
		z := set.Zones[key]
		if z.Name == "" {
			return &ValidationError{CameraID: cameraID, ZoneID: z.ID, ZoneName: z.Name, Rule: RuleEmptyName}
		}
		if len(z.Points) < 3 {
			return &ValidationError{CameraID: cameraID, ZoneID: z.ID, ZoneName: z.Name, Rule: RuleMinPoints}
		}
		// 採番済みIDの重複は結果セットでゾーンを潰すため拒否する
		if z.ID > 0 {
			if seen[z.ID] {
				return &ValidationError{CameraID: cameraID, ZoneID: z.ID, ZoneName: z.Name, Rule: RuleDuplicateID}
			}
			seen[z.ID] = true
		}
	}
	return nil
}
