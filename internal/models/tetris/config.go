package tetris

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig はフィールド設定が不正な場合に返されます。
var ErrInvalidConfig = errors.New("invalid field config")

const (
	DefaultWidth         = 12  // 壁を含むフィールドの幅
	DefaultHeight        = 23  // 床を含むフィールドの高さ
	DefaultSpawnGapRows  = 2   // 上部の出現領域の行数
	DefaultInitialSpeed  = 1   // 落下時計の初期速度
	DefaultDropThreshold = 100 // 1段落下するのに必要なフレーム累積量
)

// Config はフィールド生成時の設定です。
type Config struct {
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	SpawnPoint      Point  `json:"spawn_point"`
	SpawnGapColumns [2]int `json:"spawn_gap_columns"` // 出現領域で空いている列 (両端を含む)
	SpawnGapRows    int    `json:"spawn_gap_rows"`
	InitialSpeed    int    `json:"initial_speed"`
	DropThreshold   int    `json:"drop_threshold"`
}

// DefaultConfig は 12x23 の標準フィールドの設定を返します。
func DefaultConfig() Config {
	return Config{
		Width:           DefaultWidth,
		Height:          DefaultHeight,
		SpawnPoint:      Point{X: 4, Y: 0},
		SpawnGapColumns: [2]int{3, 8},
		SpawnGapRows:    DefaultSpawnGapRows,
		InitialSpeed:    DefaultInitialSpeed,
		DropThreshold:   DefaultDropThreshold,
	}
}

// Validate は設定値の整合性を検証します。
//
// Returns:
//   error: 不正な値がある場合は ErrInvalidConfig をラップしたエラー
func (c Config) Validate() error {
	switch {
	case c.Width < MinoSize+2:
		return fmt.Errorf("%w: width %d is narrower than a piece plus walls", ErrInvalidConfig, c.Width)
	case c.Height < MinoSize+c.SpawnGapRows+1:
		return fmt.Errorf("%w: height %d leaves no room below the spawn rows", ErrInvalidConfig, c.Height)
	case c.SpawnGapRows < 0:
		return fmt.Errorf("%w: spawn gap rows must not be negative", ErrInvalidConfig)
	case c.SpawnGapColumns[0] > c.SpawnGapColumns[1]:
		return fmt.Errorf("%w: spawn gap columns %v are reversed", ErrInvalidConfig, c.SpawnGapColumns)
	case c.SpawnGapColumns[0] < 0 || c.SpawnGapColumns[1] >= c.Width:
		return fmt.Errorf("%w: spawn gap columns %v exceed width %d", ErrInvalidConfig, c.SpawnGapColumns, c.Width)
	case c.SpawnPoint.X < 0 || c.SpawnPoint.Y < 0 || c.SpawnPoint.X >= c.Width || c.SpawnPoint.Y >= c.Height:
		return fmt.Errorf("%w: spawn point %+v is outside the field", ErrInvalidConfig, c.SpawnPoint)
	case c.InitialSpeed < 0:
		return fmt.Errorf("%w: initial speed must not be negative", ErrInvalidConfig)
	case c.DropThreshold <= 0:
		return fmt.Errorf("%w: drop threshold must be positive", ErrInvalidConfig)
	}
	return nil
}
