package tetris

import (
	"errors"
	"fmt"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/models/tetris"
)

// ErrUnknownAction は未知のアクション名を受け取った場合に返されます。
var ErrUnknownAction = errors.New("unknown action")

// Action はホストからフィールドへのコマンドです。
type Action string

const (
	ActionStart       Action = "start"
	ActionRestart     Action = "restart"
	ActionTogglePause Action = "toggle_pause"
	ActionMoveLeft    Action = "move_left"
	ActionMoveRight   Action = "move_right"
	ActionRotateLeft  Action = "rotate_left"
	ActionRotateRight Action = "rotate_right"
	ActionSoftDrop    Action = "soft_drop"
	ActionHardDrop    Action = "hard_drop"
)

// actionAliases は互換のための別名です。
var actionAliases = map[string]Action{
	"rotate": ActionRotateRight,
}

var knownActions = map[Action]struct{}{
	ActionStart:       {},
	ActionRestart:     {},
	ActionTogglePause: {},
	ActionMoveLeft:    {},
	ActionMoveRight:   {},
	ActionRotateLeft:  {},
	ActionRotateRight: {},
	ActionSoftDrop:    {},
	ActionHardDrop:    {},
}

// ParseAction は文字列をアクションに変換します。
//
// Returns:
//   Action: 変換されたアクション
//   error: 未知のアクションの場合は ErrUnknownAction をラップしたエラー
func ParseAction(s string) (Action, error) {
	if a, ok := actionAliases[s]; ok {
		return a, nil
	}
	a := Action(s)
	if _, ok := knownActions[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

// DefaultTickInterval は60fps相当のティック間隔です。
const DefaultTickInterval = time.Second / 60

// ApplyPlayerInput はプレイヤーの入力（アクション）をフィールドに適用します。
//
// Parameters:
//   field  : 更新するフィールド
//   action : プレイヤーが実行したアクション（例: "move_left", "rotate"）
// Returns:
//   bool: フィールドの状態が実際に変更された場合はtrue、未知のアクションや変更がない場合はfalse
func ApplyPlayerInput(field *Field, action string) bool {
	a, err := ParseAction(action)
	if err != nil {
		return false
	}
	return Apply(field, a)
}

// Apply は変換済みのアクションをフィールドに適用します。
func Apply(field *Field, a Action) bool {
	switch a {
	case ActionStart:
		before := field.State()
		field.Run()
		return field.State() != before
	case ActionRestart:
		field.Restart()
		return true
	case ActionTogglePause:
		before := field.State()
		field.TogglePause()
		return field.State() != before
	case ActionMoveLeft:
		return field.MoveLeft()
	case ActionMoveRight:
		return field.MoveRight()
	case ActionRotateLeft:
		return field.RotateLeft()
	case ActionRotateRight:
		return field.RotateRight()
	case ActionSoftDrop:
		return field.SoftDrop()
	case ActionHardDrop:
		return field.HardDrop()
	}
	return false
}

// PieceSnapshot はピース1つ分の送信用データです。
type PieceSnapshot struct {
	Kind string   `json:"kind"`
	X    int      `json:"x"`
	Y    int      `json:"y"`
	Rows []string `json:"rows"`
}

// Snapshot はクライアントに送信するフィールドの状態です。
// セルは1マス1文字の行テキストで表します（'.' 空, '#' 壁, 'I'..'Z' ブロック）。
type Snapshot struct {
	SessionID string        `json:"session_id,omitempty"`
	State     string        `json:"state"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Rows      []string      `json:"rows"`
	Current   PieceSnapshot `json:"current"`
	Next      PieceSnapshot `json:"next"`
	Stats     Stats         `json:"stats"`
}

// NewSnapshot はフィールドの現在の状態からスナップショットを作成します。
func NewSnapshot(sessionID string, field *Field) Snapshot {
	current := field.Current()
	next := field.Next()
	return Snapshot{
		SessionID: sessionID,
		State:     field.State().String(),
		Width:     field.Width(),
		Height:    field.Height(),
		Rows:      field.Rows(),
		Current: PieceSnapshot{
			Kind: current.Mino.Kind.String(),
			X:    current.Position.X,
			Y:    current.Position.Y,
			Rows: current.Mino.Rows(),
		},
		Next: PieceSnapshot{
			Kind: next.Kind.String(),
			Rows: next.Rows(),
		},
		Stats: field.Stats(),
	}
}

// ParseRows はテキスト表現のボードを読み込みます。未知の文字はエラーになります。
func ParseRows(rows []string) ([][]tetris.Cell, error) {
	cells := make([][]tetris.Cell, len(rows))
	for y, row := range rows {
		line := make([]tetris.Cell, 0, len(row))
		for x, r := range row {
			c, ok := tetris.ParseCell(r)
			if !ok {
				return nil, fmt.Errorf("行 %d 列 %d の文字 %q を解釈できません", y, x, r)
			}
			line = append(line, c)
		}
		cells[y] = line
	}
	return cells, nil
}
