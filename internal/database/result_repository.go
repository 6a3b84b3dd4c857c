package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/models"
)

// ResultRepository はゲーム結果関連の永続化操作を定義するインターフェースです。
type ResultRepository interface {
	// CreateResult は新しいゲーム結果レコードを作成します
	CreateResult(ctx context.Context, result models.GameResult) (*models.GameResult, error)

	// GetTopResults は上位N件の結果を取得します（ランキング用）
	GetTopResults(ctx context.Context, limit int) ([]models.GameResultResponse, error)

	// GetUserBestResult は指定したユーザーの最高記録を取得します。記録がない場合は nil を返します
	GetUserBestResult(ctx context.Context, userID string) (*models.GameResultResponse, error)
}

// rankingOrder は SQL 上のランキング順です。models.GameResult.Better と同じ順序にします。
const rankingOrder = "lines_cleared DESC, pieces_placed DESC, created_at ASC"

// resultRepositoryImpl はPostgreSQLを使用したResultRepositoryの実装です。
type resultRepositoryImpl struct {
	db *sql.DB
}

// NewResultRepository はResultRepositoryの新しいインスタンスを作成します。
func NewResultRepository(db *sql.DB) ResultRepository {
	return &resultRepositoryImpl{db: db}
}

// CreateResult は新しいゲーム結果レコードを作成します。
func (r *resultRepositoryImpl) CreateResult(ctx context.Context, result models.GameResult) (*models.GameResult, error) {
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO game_results (user_id, session_id, lines_cleared, pieces_placed, ticks, final_speed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		result.UserID, result.SessionID, result.LinesCleared, result.PiecesPlaced, result.Ticks, result.FinalSpeed, result.CreatedAt,
	)
	if err := row.Scan(&result.ID); err != nil {
		return nil, fmt.Errorf("ゲーム結果レコードの作成に失敗しました: %w", err)
	}
	return &result, nil
}

// GetTopResults は上位N件の結果を取得します（ランキング用）。
func (r *resultRepositoryImpl) GetTopResults(ctx context.Context, limit int) ([]models.GameResultResponse, error) {
	query := `
		SELECT
			id, user_id, session_id, lines_cleared, pieces_placed, ticks, final_speed, created_at,
			ROW_NUMBER() OVER (ORDER BY ` + rankingOrder + `) AS rank
		FROM game_results
		ORDER BY ` + rankingOrder + `
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ゲーム結果取得に失敗しました: %w", err)
	}
	defer rows.Close()

	results := []models.GameResultResponse{}
	for rows.Next() {
		var res models.GameResultResponse
		if err := rows.Scan(&res.ID, &res.UserID, &res.SessionID, &res.LinesCleared, &res.PiecesPlaced,
			&res.Ticks, &res.FinalSpeed, &res.CreatedAt, &res.Rank); err != nil {
			return nil, fmt.Errorf("ゲーム結果データのスキャンに失敗しました: %w", err)
		}
		results = append(results, res)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ゲーム結果取得中にエラーが発生しました: %w", err)
	}
	return results, nil
}

// GetUserBestResult は指定したユーザーの最高記録と、その記録の全体順位を取得します。
func (r *resultRepositoryImpl) GetUserBestResult(ctx context.Context, userID string) (*models.GameResultResponse, error) {
	query := `
		SELECT id, user_id, session_id, lines_cleared, pieces_placed, ticks, final_speed, created_at
		FROM game_results
		WHERE user_id = $1
		ORDER BY ` + rankingOrder + `
		LIMIT 1
	`

	var best models.GameResultResponse
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&best.ID, &best.UserID, &best.SessionID,
		&best.LinesCleared, &best.PiecesPlaced, &best.Ticks, &best.FinalSpeed, &best.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // ユーザーの記録が存在しない
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの最高記録取得に失敗しました: %w", err)
	}

	// その記録より上位の件数から順位を計算
	rankQuery := `
		SELECT COUNT(*) + 1
		FROM game_results
		WHERE lines_cleared > $1
		   OR (lines_cleared = $1 AND pieces_placed > $2)
		   OR (lines_cleared = $1 AND pieces_placed = $2 AND created_at < $3)
	`
	if err := r.db.QueryRowContext(ctx, rankQuery, best.LinesCleared, best.PiecesPlaced, best.CreatedAt).Scan(&best.Rank); err != nil {
		return nil, fmt.Errorf("ユーザーランキング順位の計算に失敗しました: %w", err)
	}
	return &best, nil
}

// memoryResultRepository はDATABASE_URLが未設定の場合に使うメモリ上の実装です。
// プロセスの終了とともに記録は失われます。
type memoryResultRepository struct {
	mu      sync.RWMutex
	results []models.GameResult
	nextID  int64
}

// NewMemoryResultRepository はメモリ上のResultRepositoryを作成します。
func NewMemoryResultRepository() ResultRepository {
	return &memoryResultRepository{nextID: 1}
}

func (m *memoryResultRepository) CreateResult(ctx context.Context, result models.GameResult) (*models.GameResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ゲーム結果レコードの作成に失敗しました: %w", err)
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	result.ID = m.nextID
	m.nextID++
	m.results = append(m.results, result)
	return &result, nil
}

// ranked はランキング順に並べたコピーを返します。呼び出し側でRLockを保持してください。
func (m *memoryResultRepository) ranked() []models.GameResult {
	sorted := append([]models.GameResult(nil), m.results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Better(sorted[j])
	})
	return sorted
}

func (m *memoryResultRepository) GetTopResults(ctx context.Context, limit int) ([]models.GameResultResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ゲーム結果取得に失敗しました: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := []models.GameResultResponse{}
	for i, res := range m.ranked() {
		if i >= limit {
			break
		}
		results = append(results, models.GameResultResponse{GameResult: res, Rank: i + 1})
	}
	return results, nil
}

func (m *memoryResultRepository) GetUserBestResult(ctx context.Context, userID string) (*models.GameResultResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ユーザーの最高記録取得に失敗しました: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, res := range m.ranked() {
		if res.UserID == userID {
			return &models.GameResultResponse{GameResult: res, Rank: i + 1}, nil
		}
	}
	return nil, nil
}
