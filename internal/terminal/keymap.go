package terminal

import (
	"unicode"

	"github.com/gdamore/tcell/v2"

	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/services/tetris"
)

// runeActions はプレイ中の文字キーとアクションの対応です。
var runeActions = map[rune]tetris.Action{
	'a': tetris.ActionMoveLeft,
	'd': tetris.ActionMoveRight,
	's': tetris.ActionSoftDrop,
	'j': tetris.ActionRotateLeft,
	'k': tetris.ActionRotateRight,
	' ': tetris.ActionHardDrop,
}

// keyActions は特殊キーとアクションの対応です。
var keyActions = map[tcell.Key]tetris.Action{
	tcell.KeyLeft:   tetris.ActionMoveLeft,
	tcell.KeyRight:  tetris.ActionMoveRight,
	tcell.KeyDown:   tetris.ActionSoftDrop,
	tcell.KeyUp:     tetris.ActionRotateRight,
	tcell.KeyEscape: tetris.ActionTogglePause,
}

// IsQuit は終了キー (Ctrl+C または q) かどうかを返します。
func IsQuit(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyCtrlC {
		return true
	}
	return ev.Key() == tcell.KeyRune && unicode.ToLower(ev.Rune()) == 'q'
}

// ActionForKey はキー入力を現在の状態に応じたアクションに変換します。
//
// Startup では終了キー以外の任意のキーで開始し、Gameover では R でのみ再開します。
//
// Returns:
//   tetris.Action: 対応するアクション
//   bool: 対応するアクションがある場合は true
func ActionForKey(ev *tcell.EventKey, state tetris.GameState) (tetris.Action, bool) {
	if IsQuit(ev) {
		return "", false
	}

	switch state {
	case tetris.StateStartup:
		return tetris.ActionStart, true
	case tetris.StateGameover:
		if ev.Key() == tcell.KeyRune && unicode.ToLower(ev.Rune()) == 'r' {
			return tetris.ActionRestart, true
		}
		return "", false
	}

	if ev.Key() == tcell.KeyRune {
		a, ok := runeActions[unicode.ToLower(ev.Rune())]
		return a, ok
	}
	a, ok := keyActions[ev.Key()]
	return a, ok
}
