package zone

import (
	"context"
	"sync"
)

// Record はRepositoryに永続化されるカメラ1台分のゾーン定義を表す。
// LastZoneIDは採番の高水位で、ゾーンを全削除しても保持される。
type Record struct {
	Set        ZoneSet
	LastZoneID int
}

// Repository はゾーン定義の永続化を担うインターフェース。
// 永続化技術の選択はこの境界の外に置く（メモリ実装とPostgres実装を提供）。
type Repository interface {
	// Load は全カメラのゾーン定義を読み込む
	Load(ctx context.Context) (map[string]Record, error)

	// Save はカメラ1台分のゾーン定義を保存する
	Save(ctx context.Context, cameraID string, rec Record) error

	// Delete はカメラ1台分のゾーン定義を削除する
	Delete(ctx context.Context, cameraID string) error
}

// MemoryRepository はメモリ上のRepository実装。
// 単体テストと、永続化を必要としない構成で使う。
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryRepository は新しいMemoryRepositoryを作成する
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]Record)}
}

// Load は全レコードのコピーを返す
func (r *MemoryRepository) Load(_ context.Context) (map[string]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := make(map[string]Record, len(r.records))
	for cameraID, rec := range r.records {
		rec.Set = rec.Set.Clone()
		records[cameraID] = rec
	}
	return records, nil
}

// Save はレコードを保存する
func (r *MemoryRepository) Save(_ context.Context, cameraID string, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.Set = rec.Set.Clone()
	r.records[cameraID] = rec
	return nil
}

// Delete はレコードを削除する
func (r *MemoryRepository) Delete(_ context.Context, cameraID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, cameraID)
	return nil
}
