package terminal

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	modeltetris "github.com/progate-hackathon-strawberry-flavor/playfield/internal/models/tetris"
	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/services/tetris"
)

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func specialKey(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(80, 30)
	t.Cleanup(screen.Fini)
	return screen
}

func newField(t *testing.T, kinds ...modeltetris.PieceKind) *tetris.Field {
	t.Helper()
	f, err := tetris.NewField(modeltetris.DefaultConfig(), modeltetris.NewSequenceKinds(kinds...))
	require.NoError(t, err)
	return f
}

type recordingCues struct {
	locks     int
	lines     []int
	gameovers int
	closed    bool
}

func (c *recordingCues) Lock()           { c.locks++ }
func (c *recordingCues) LineClear(n int) { c.lines = append(c.lines, n) }
func (c *recordingCues) Gameover()       { c.gameovers++ }
func (c *recordingCues) Close()          { c.closed = true }

func TestActionForKey(t *testing.T) {
	tests := []struct {
		name   string
		ev     *tcell.EventKey
		state  tetris.GameState
		want   tetris.Action
		wantOK bool
	}{
		{"any key starts", runeKey('x'), tetris.StateStartup, tetris.ActionStart, true},
		{"arrow starts", specialKey(tcell.KeyLeft), tetris.StateStartup, tetris.ActionStart, true},
		{"a moves left", runeKey('a'), tetris.StateRunning, tetris.ActionMoveLeft, true},
		{"upper A moves left", runeKey('A'), tetris.StateRunning, tetris.ActionMoveLeft, true},
		{"d moves right", runeKey('d'), tetris.StateRunning, tetris.ActionMoveRight, true},
		{"left arrow", specialKey(tcell.KeyLeft), tetris.StateRunning, tetris.ActionMoveLeft, true},
		{"right arrow", specialKey(tcell.KeyRight), tetris.StateRunning, tetris.ActionMoveRight, true},
		{"s soft drops", runeKey('s'), tetris.StateRunning, tetris.ActionSoftDrop, true},
		{"j rotates left", runeKey('j'), tetris.StateRunning, tetris.ActionRotateLeft, true},
		{"k rotates right", runeKey('k'), tetris.StateRunning, tetris.ActionRotateRight, true},
		{"space hard drops", runeKey(' '), tetris.StateRunning, tetris.ActionHardDrop, true},
		{"escape pauses", specialKey(tcell.KeyEscape), tetris.StateRunning, tetris.ActionTogglePause, true},
		{"escape resumes", specialKey(tcell.KeyEscape), tetris.StatePause, tetris.ActionTogglePause, true},
		{"unmapped rune", runeKey('x'), tetris.StateRunning, "", false},
		{"r restarts after game over", runeKey('r'), tetris.StateGameover, tetris.ActionRestart, true},
		{"other key after game over", runeKey('a'), tetris.StateGameover, "", false},
		{"quit is never an action", runeKey('q'), tetris.StateStartup, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ActionForKey(tt.ev, tt.state)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsQuit(t *testing.T) {
	assert.True(t, IsQuit(runeKey('q')))
	assert.True(t, IsQuit(runeKey('Q')))
	assert.True(t, IsQuit(specialKey(tcell.KeyCtrlC)))
	assert.False(t, IsQuit(specialKey(tcell.KeyEscape)))
}

func TestCellStyle(t *testing.T) {
	assert.Equal(t, tcell.StyleDefault.Foreground(tcell.NewHexColor(0x00F0F0)), CellStyle(modeltetris.CellI))
	assert.Equal(t, tcell.StyleDefault.Foreground(tcell.NewHexColor(0xFF0000)), CellStyle(modeltetris.CellZ))
	assert.Equal(t, tcell.StyleDefault.Foreground(tcell.ColorGray), CellStyle(modeltetris.CellBorder))
}

func TestRendererDraw(t *testing.T) {
	screen := newScreen(t)
	field := newField(t, modeltetris.KindO)
	r := NewRenderer(screen)
	r.Draw(field)

	ox, oy := r.Origin()

	// 左上の壁
	ch, _, style, _ := screen.GetContent(ox, oy)
	assert.Equal(t, '▓', ch)
	assert.Equal(t, CellStyle(modeltetris.CellBorder), style)

	// 出現領域より下の、左の壁の1つ内側は空きマス
	ch, _, _, _ = screen.GetContent(ox+CellWidth+1, oy+5)
	assert.Equal(t, '.', ch)

	// 床
	ch, _, _, _ = screen.GetContent(ox+5*CellWidth, oy+field.Height()-1)
	assert.Equal(t, '▓', ch)

	panelX := ox + field.Width()*CellWidth + 2
	ch, _, _, _ = screen.GetContent(panelX, oy)
	assert.Equal(t, 'N', ch)

	// NEXT の下に4行の形状、空行、統計3行、空行、状態メッセージ
	msgY := oy + 1 + modeltetris.MinoSize + 1 + 4
	ch, _, _, _ = screen.GetContent(panelX, msgY)
	assert.Equal(t, 'P', ch)
}

func TestStatusMessage(t *testing.T) {
	assert.Equal(t, "PRESS ANY KEY", StatusMessage(tetris.StateStartup))
	assert.Equal(t, "", StatusMessage(tetris.StateRunning))
	assert.Equal(t, "PAUSED (ESC)", StatusMessage(tetris.StatePause))
	assert.Equal(t, "GAME OVER (R)", StatusMessage(tetris.StateGameover))
}

func TestGameHandleEvent(t *testing.T) {
	cues := &recordingCues{}
	g := NewGame(newScreen(t), newField(t, modeltetris.KindO), cues, time.Hour)

	assert.True(t, g.HandleEvent(runeKey('x')))
	assert.True(t, g.Field().IsRunning())

	assert.True(t, g.HandleEvent(specialKey(tcell.KeyEscape)))
	assert.True(t, g.Field().IsPause())
	assert.True(t, g.HandleEvent(specialKey(tcell.KeyEscape)))
	assert.True(t, g.Field().IsRunning())

	assert.True(t, g.HandleEvent(runeKey(' ')))
	assert.Equal(t, 1, g.Field().Stats().PiecesPlaced)
	assert.Equal(t, 1, cues.locks)

	assert.True(t, g.HandleEvent(tcell.NewEventResize(80, 30)))
	assert.False(t, g.HandleEvent(runeKey('q')))
}

func TestGameStepUntilGameover(t *testing.T) {
	cues := &recordingCues{}
	g := NewGame(newScreen(t), newField(t, modeltetris.KindO), cues, time.Hour)
	g.HandleEvent(runeKey('x'))

	for i := 0; i < 100 && !g.Field().IsGameover(); i++ {
		g.HandleEvent(runeKey(' '))
		g.Step()
	}

	require.True(t, g.Field().IsGameover())
	assert.Equal(t, 1, cues.gameovers)
	assert.Equal(t, g.Field().Stats().PiecesPlaced, cues.locks)
	assert.Empty(t, cues.lines)

	g.HandleEvent(runeKey('r'))
	assert.True(t, g.Field().IsRunning())
	assert.Equal(t, 0, g.Field().Stats().PiecesPlaced)
}

func TestGameRunStopsOnContextCancel(t *testing.T) {
	g := NewGame(newScreen(t), newField(t, modeltetris.KindT), nil, time.Millisecond)
	g.HandleEvent(runeKey('x'))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := g.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, g.Field().Stats().Ticks, 0)
}

func TestGameRunStopsOnQuitKey(t *testing.T) {
	screen := newScreen(t)
	g := NewGame(screen, newField(t, modeltetris.KindT), nil, time.Hour)

	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	assert.NoError(t, g.Run(context.Background()))
}
