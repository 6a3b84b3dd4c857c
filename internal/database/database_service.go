package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq" // PostgreSQLドライバー
)

// schema は game_results テーブルの定義です。cmd/migrate から適用します。
const schema = `
CREATE TABLE IF NOT EXISTS game_results (
	id            BIGSERIAL PRIMARY KEY,
	user_id       TEXT        NOT NULL,
	session_id    TEXT        NOT NULL,
	lines_cleared INTEGER     NOT NULL DEFAULT 0,
	pieces_placed INTEGER     NOT NULL DEFAULT 0,
	ticks         INTEGER     NOT NULL DEFAULT 0,
	final_speed   INTEGER     NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS game_results_user_id_idx ON game_results (user_id);
`

// DatabaseService はデータベース接続を保持します。
type DatabaseService struct {
	DB *sql.DB
}

// NewDatabaseService はPostgreSQLへ接続し、Pingで疎通を確認します。
//
// Parameters:
//   ctx         : 接続確認のタイムアウトに使うコンテキスト
//   databaseURL : PostgreSQLの接続文字列
// Returns:
//   *DatabaseService: 接続済みのサービス
//   error: 接続に失敗した場合
func NewDatabaseService(ctx context.Context, databaseURL string) (*DatabaseService, error) {
	log.Printf("[DatabaseService] データベース接続を試行中: %s...", databaseURL[:min(len(databaseURL), 20)])
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("データベースへの接続オブジェクト作成に失敗しました: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("データベースのPingに失敗しました。接続情報やネットワークを確認してください: %w", err)
	}

	log.Println("[DatabaseService] データベースに正常に接続しました。")
	return &DatabaseService{DB: db}, nil
}

// Migrate は必要なテーブルを作成します。既に存在する場合は何もしません。
func (s *DatabaseService) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗しました: %w", err)
	}
	return nil
}

// Version はデータベースのバージョン文字列を返します。
func (s *DatabaseService) Version(ctx context.Context) (string, error) {
	var version string
	if err := s.DB.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", fmt.Errorf("SELECT version() の実行に失敗しました: %w", err)
	}
	return version, nil
}

// Close は接続を閉じます。
func (s *DatabaseService) Close() error {
	return s.DB.Close()
}
