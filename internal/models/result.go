package models

import (
	"time"
)

// GameResult は game_results テーブルのレコードに対応する構造体です。
// ゲームオーバーになったセッションの最終的な進行状況を記録します。
type GameResult struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`    // UUID
	SessionID    string    `json:"session_id"` // UUID
	LinesCleared int       `json:"lines_cleared"`
	PiecesPlaced int       `json:"pieces_placed"`
	Ticks        int       `json:"ticks"`
	FinalSpeed   int       `json:"final_speed"`
	CreatedAt    time.Time `json:"created_at"`
}

// GameResultResponse はランキングAPIのレスポンス用の構造体です。
type GameResultResponse struct {
	GameResult
	Rank int `json:"rank"` // ランキング順位
}

// Better は r が other より上位かを返します。
// 消去ライン数、固定したピース数の順に多い方が上位で、同点なら先に記録した方が上位です。
func (r GameResult) Better(other GameResult) bool {
	if r.LinesCleared != other.LinesCleared {
		return r.LinesCleared > other.LinesCleared
	}
	if r.PiecesPlaced != other.PiecesPlaced {
		return r.PiecesPlaced > other.PiecesPlaced
	}
	return r.CreatedAt.Before(other.CreatedAt)
}
