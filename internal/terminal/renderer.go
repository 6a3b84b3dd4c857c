package terminal

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	modeltetris "github.com/progate-hackathon-strawberry-flavor/playfield/internal/models/tetris"
	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/services/tetris"
)

// CellWidth は1マスを描画する列数です。端末の文字は縦長なので2列で正方形に近づけます。
const CellWidth = 2

// cellColors はテトリミノ由来のブロックの色です。
var cellColors = map[modeltetris.Cell]tcell.Color{
	modeltetris.CellI: tcell.NewHexColor(0x00F0F0),
	modeltetris.CellJ: tcell.NewHexColor(0x0000FF),
	modeltetris.CellL: tcell.NewHexColor(0xFF8800),
	modeltetris.CellO: tcell.NewHexColor(0xFFFF00),
	modeltetris.CellS: tcell.NewHexColor(0x88FF00),
	modeltetris.CellT: tcell.NewHexColor(0xFF00FF),
	modeltetris.CellZ: tcell.NewHexColor(0xFF0000),
}

// CellStyle はセルの描画スタイルを返します。
func CellStyle(c modeltetris.Cell) tcell.Style {
	if c == modeltetris.CellBorder {
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	}
	if color, ok := cellColors[c]; ok {
		return tcell.StyleDefault.Foreground(color)
	}
	return tcell.StyleDefault.Foreground(tcell.ColorDarkSlateGray)
}

func cellGlyph(c modeltetris.Cell) [CellWidth]rune {
	switch {
	case c == modeltetris.CellBorder:
		return [CellWidth]rune{'▓', '▓'}
	case c.IsBlock():
		return [CellWidth]rune{'█', '█'}
	}
	return [CellWidth]rune{' ', '.'}
}

// Renderer はフィールドを tcell の画面に描画します。
type Renderer struct {
	screen  tcell.Screen
	originX int
	originY int
}

// NewRenderer は画面の左上から描画する Renderer を作成します。
func NewRenderer(screen tcell.Screen) *Renderer {
	return &Renderer{screen: screen, originX: 1, originY: 1}
}

// Origin はフィールドを描画する左上の座標を返します。
func (r *Renderer) Origin() (int, int) { return r.originX, r.originY }

// Draw は表示バッファ、次のピース、統計、状態メッセージを描画して画面を更新します。
func (r *Renderer) Draw(field *tetris.Field) {
	r.screen.Clear()

	display := field.Display()
	for row := 0; row < field.Height(); row++ {
		for col := 0; col < field.Width(); col++ {
			c := display[field.Index(row, col)]
			glyph := cellGlyph(c)
			style := CellStyle(c)
			for i, ch := range glyph {
				r.screen.SetContent(r.originX+col*CellWidth+i, r.originY+row, ch, nil, style)
			}
		}
	}

	panelX := r.originX + field.Width()*CellWidth + 2
	y := r.originY
	r.text(panelX, y, "NEXT", tcell.StyleDefault.Bold(true))
	y++
	next := field.Next()
	for _, line := range next.Rows() {
		for i, ch := range line {
			c, _ := modeltetris.ParseCell(ch)
			glyph := cellGlyph(c)
			if c == modeltetris.CellEmpty {
				glyph = [CellWidth]rune{' ', ' '}
			}
			for j, g := range glyph {
				r.screen.SetContent(panelX+i*CellWidth+j, y, g, nil, CellStyle(c))
			}
		}
		y++
	}

	stats := field.Stats()
	y++
	r.text(panelX, y, fmt.Sprintf("LINES  %d", stats.LinesCleared), tcell.StyleDefault)
	r.text(panelX, y+1, fmt.Sprintf("PIECES %d", stats.PiecesPlaced), tcell.StyleDefault)
	r.text(panelX, y+2, fmt.Sprintf("SPEED  %d", stats.Speed), tcell.StyleDefault)

	if msg := StatusMessage(field.State()); msg != "" {
		r.text(panelX, y+4, msg, tcell.StyleDefault.Bold(true).Foreground(tcell.ColorYellow))
	}

	r.screen.Show()
}

// StatusMessage は状態ごとの案内文を返します。Running では空文字です。
func StatusMessage(state tetris.GameState) string {
	switch state {
	case tetris.StateStartup:
		return "PRESS ANY KEY"
	case tetris.StatePause:
		return "PAUSED (ESC)"
	case tetris.StateGameover:
		return "GAME OVER (R)"
	}
	return ""
}

func (r *Renderer) text(x, y int, s string, style tcell.Style) {
	for i, ch := range []rune(s) {
		r.screen.SetContent(x+i, y, ch, nil, style)
	}
}
