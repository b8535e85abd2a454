package zone

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQLドライバ
)

// PostgresRepository はPostgreSQLを使ったRepository実装。
// ゾーンセットはJSONB列に丸ごと保存する（置換は常に全体単位のため）。
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository はDSNから接続してPostgresRepositoryを作成する。
// 接続確認とテーブル作成までを行い、失敗時は即座にエラーを返す。
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベースのオープンに失敗: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("データベースへの接続確認に失敗: %w", err)
	}

	repo := &PostgresRepository{db: db}
	if err := repo.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// migrate はテーブルを作成する（存在すれば何もしない）
func (r *PostgresRepository) migrate(ctx context.Context) error {
	const createTableSQL = `
		CREATE TABLE IF NOT EXISTS camera_zones (
			camera_id        TEXT PRIMARY KEY,
			reference_width  INTEGER NOT NULL,
			reference_height INTEGER NOT NULL,
			zones            JSONB NOT NULL,
			last_zone_id     INTEGER NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("camera_zonesテーブルの作成に失敗: %w", err)
	}
	return nil
}

// Load は全カメラのゾーン定義を読み込む
func (r *PostgresRepository) Load(ctx context.Context) (map[string]Record, error) {
	const query = `
		SELECT camera_id, reference_width, reference_height, zones, last_zone_id
		FROM camera_zones
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ゾーン定義の読み込みに失敗: %w", err)
	}
	defer rows.Close()

	records := make(map[string]Record)
	for rows.Next() {
		var (
			cameraID  string
			rec       Record
			zonesJSON []byte
		)
		if err := rows.Scan(&cameraID, &rec.Set.ReferenceWidth, &rec.Set.ReferenceHeight, &zonesJSON, &rec.LastZoneID); err != nil {
			return nil, fmt.Errorf("ゾーン定義の読み取りに失敗: %w", err)
		}
		if err := json.Unmarshal(zonesJSON, &rec.Set.Zones); err != nil {
			return nil, fmt.Errorf("カメラ %s のゾーンJSONの復元に失敗: %w", cameraID, err)
		}
		if rec.Set.Zones == nil {
			rec.Set.Zones = make(map[int]Zone)
		}
		records[cameraID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ゾーン定義の走査に失敗: %w", err)
	}
	return records, nil
}

// Save はカメラ1台分のゾーン定義を保存する
func (r *PostgresRepository) Save(ctx context.Context, cameraID string, rec Record) error {
	zonesJSON, err := json.Marshal(rec.Set.Zones)
	if err != nil {
		return fmt.Errorf("カメラ %s のゾーンJSONの生成に失敗: %w", cameraID, err)
	}

	const query = `
		INSERT INTO camera_zones (camera_id, reference_width, reference_height, zones, last_zone_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (camera_id) DO UPDATE SET
			reference_width  = EXCLUDED.reference_width,
			reference_height = EXCLUDED.reference_height,
			zones            = EXCLUDED.zones,
			last_zone_id     = EXCLUDED.last_zone_id,
			updated_at       = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query,
		cameraID, rec.Set.ReferenceWidth, rec.Set.ReferenceHeight, zonesJSON, rec.LastZoneID, time.Now()); err != nil {
		return fmt.Errorf("カメラ %s のゾーン保存に失敗: %w", cameraID, err)
	}
	return nil
}

// Delete はカメラ1台分のゾーン定義を削除する
func (r *PostgresRepository) Delete(ctx context.Context, cameraID string) error {
	const query = `DELETE FROM camera_zones WHERE camera_id = $1`
	if _, err := r.db.ExecContext(ctx, query, cameraID); err != nil {
		return fmt.Errorf("カメラ %s のゾーン削除に失敗: %w", cameraID, err)
	}
	return nil
}

// Close はデータベース接続を閉じる
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
