package tetris

import (
	"fmt"
	"strings"

	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/models/tetris"
)

// Field はゲーム1つ分のシミュレーションです。
// 確定済みのボード、操作中のピース、次のピース、ライフサイクル状態を保持し、
// ホストへはボードと操作中ピースを重ねた表示バッファを提供します。
//
// Field はスレッドセーフではありません。複数のゴルーチンから扱う場合は
// 呼び出し側で排他制御を行ってください（SessionManager を参照）。
type Field struct {
	cfg tetris.Config
	src tetris.KindSource

	board   *tetris.Board
	display []tetris.Cell
	current tetris.ControlledPiece
	next    tetris.Piece
	state   GameState

	linesCleared int
	piecesPlaced int
	ticks        int
}

// NewField は設定を検証して新しいフィールドを作成します。状態は Startup です。
//
// Parameters:
//   cfg : フィールドの設定
//   src : ピースの種類を決める乱数源。nilの場合は一様乱数を使用します
// Returns:
//   *Field: 初期化されたフィールド
//   error: 設定が不正な場合
func NewField(cfg tetris.Config, src tetris.KindSource) (*Field, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("フィールドの作成に失敗しました: %w", err)
	}
	if src == nil {
		src = tetris.NewKindSource("uniform")
	}

	f := &Field{
		cfg:     cfg,
		src:     src,
		display: make([]tetris.Cell, cfg.Width*cfg.Height),
	}
	f.reset()
	return f, nil
}

// reset はボードとピースを作り直します。状態は Startup に戻ります。
func (f *Field) reset() {
	f.board = tetris.NewBoard(f.cfg)
	f.current = tetris.NewControlledPiece(tetris.RandomPiece(f.src), f.cfg)
	f.next = tetris.RandomPiece(f.src)
	f.state = StateStartup
	f.linesCleared = 0
	f.piecesPlaced = 0
	f.ticks = 0
	f.refreshDisplay()
}

// Width はフィールドの幅（壁を含む）を返します。
func (f *Field) Width() int { return f.cfg.Width }

// Height はフィールドの高さ（床を含む）を返します。
func (f *Field) Height() int { return f.cfg.Height }

// Config はフィールドの設定を返します。
func (f *Field) Config() tetris.Config { return f.cfg }

// Display は行優先の表示バッファを返します。
// 返されたスライスは次に状態を変更する呼び出しまで有効で、変更してはいけません。
func (f *Field) Display() []tetris.Cell { return f.display }

// Index は表示バッファ上の (row, column) の添字を返します。
func (f *Field) Index(row, column int) int {
	return row*f.cfg.Width + column
}

// Rows は表示バッファを1行1文字列のテキストで返します。
func (f *Field) Rows() []string {
	rows := make([]string, f.cfg.Height)
	for y := 0; y < f.cfg.Height; y++ {
		var sb strings.Builder
		for _, c := range f.display[f.Index(y, 0):f.Index(y+1, 0)] {
			sb.WriteRune(c.Rune())
		}
		rows[y] = sb.String()
	}
	return rows
}

// Board は確定済みボードのコピーを返します。
func (f *Field) Board() *tetris.Board { return f.board.Clone() }

// Current は操作中のピースのコピーを返します。
func (f *Field) Current() tetris.ControlledPiece { return f.current }

// Next は次に出現するピースを返します。
func (f *Field) Next() tetris.Piece { return f.next }

// State は現在のライフサイクル状態を返します。
func (f *Field) State() GameState { return f.state }

// Stats は進行状況のカウンタを返します。
func (f *Field) Stats() Stats {
	return Stats{
		LinesCleared: f.linesCleared,
		PiecesPlaced: f.piecesPlaced,
		Ticks:        f.ticks,
		Speed:        f.current.Speed,
	}
}

func (f *Field) IsGameover() bool { return f.state == StateGameover }
func (f *Field) IsPause() bool    { return f.state == StatePause }
func (f *Field) IsStartup() bool  { return f.state == StateStartup }
func (f *Field) IsRunning() bool  { return f.state == StateRunning }

// Run は Startup から Running へ遷移します。Running 以外の状態では何もしません。
func (f *Field) Run() {
	if f.state == StateStartup {
		f.state = StateRunning
	}
}

// Restart はフィールドを作り直して Running で再開します。
func (f *Field) Restart() {
	f.reset()
	f.state = StateRunning
}

// TogglePause は Running と Pause を切り替えます。
func (f *Field) TogglePause() {
	switch f.state {
	case StateRunning:
		f.state = StatePause
	case StatePause:
		f.state = StateRunning
	}
}

// Update はシミュレーションを1ティック進めます。Running 以外では何もしません。
//
// 出現位置で既に衝突している場合はゲームオーバーにして、そのティックの処理を終えます。
// それ以外はライン消去、自然落下（衝突時は固定と次のピースの出現）、表示の更新を順に行います。
func (f *Field) Update() {
	if f.state != StateRunning {
		return
	}
	f.ticks++

	if f.isCollision() {
		f.state = StateGameover
		return
	}

	f.CompleteLines()
	f.dropdown(1, false)
	f.refreshDisplay()
}

// CompleteLines は揃っている行を消去し、消去した行番号（消去前の位置、上から順）を返します。
// 1行ごとに落下速度が1上がります。
func (f *Field) CompleteLines() []int {
	rows := f.board.CompletedRows()
	if len(rows) == 0 {
		return nil
	}

	for range rows {
		f.current.Accel()
	}
	f.linesCleared += len(rows)

	// 下の行から消す。消すたびに上の行が1段下がるので、消した数だけ添字をずらす
	for i := len(rows) - 1; i >= 0; i-- {
		collapsed := len(rows) - 1 - i
		f.board.CollapseRow(rows[i] + collapsed)
	}
	return rows
}

func (f *Field) MoveLeft() bool {
	return f.try(func(cp *tetris.ControlledPiece) { cp.MoveLeft() })
}

func (f *Field) MoveRight() bool {
	return f.try(func(cp *tetris.ControlledPiece) { cp.MoveRight() })
}

func (f *Field) RotateLeft() bool {
	return f.try(func(cp *tetris.ControlledPiece) { cp.RotateLeft() })
}

func (f *Field) RotateRight() bool {
	return f.try(func(cp *tetris.ControlledPiece) { cp.RotateRight() })
}

// SoftDrop は操作中のピースを1段落とします。落とせない場合はその場で固定します。
//
// Returns:
//   bool: Running 中で処理を行った場合はtrue
func (f *Field) SoftDrop() bool {
	if f.state != StateRunning || f.isCollision() {
		return false
	}
	f.dropdown(1, true)
	f.refreshDisplay()
	return true
}

// HardDrop は操作中のピースを固定されるまで落とします。
//
// 出現直後のピースが既に積まれたブロックに重なっている場合は何もしません。
// その状態は次の Update でゲームオーバーになります。
func (f *Field) HardDrop() bool {
	if f.state != StateRunning || f.isCollision() {
		return false
	}
	for !f.dropdown(1, true) {
	}
	f.refreshDisplay()
	return true
}

// try は操作中のピースに変更を仮適用し、衝突した場合は元に戻します。
//
// Returns:
//   bool: 変更が確定した場合はtrue
func (f *Field) try(apply func(cp *tetris.ControlledPiece)) bool {
	if f.state != StateRunning {
		return false
	}

	saved := f.current
	apply(&f.current)
	if f.isCollision() {
		f.current = saved
		return false
	}
	f.refreshDisplay()
	return true
}

// isCollision は操作中のピースが現在位置で空でないマスに重なっているかを返します。
func (f *Field) isCollision() bool {
	return f.board.HasCollision(&f.current)
}

// fix は操作中のピースをボードに固定します。
func (f *Field) fix() {
	f.board.Fix(&f.current)
	f.piecesPlaced++
}

// dropdown は操作中のピースを line 段落とします。
// force がfalseの場合は落下時計が落下を指示したときだけ落とします。
// 落とした先で衝突した場合は位置を戻してピースを固定し、次のピースを出現させます。
// 現在位置で既に衝突しているピースは固定しません (固定済みのブロックを上書きしないため)。
//
// Returns:
//   bool: ピースを固定した場合はtrue
func (f *Field) dropdown(line int, force bool) bool {
	if f.isCollision() {
		return false
	}
	prev := f.current.Position
	if force {
		f.current.DropByForce(line)
	} else if !f.current.Dropdown(line) {
		return false
	}

	if !f.isCollision() {
		return false
	}

	f.current.Position = prev
	f.fix()
	f.current.Regenerate(f.next)
	f.next = tetris.RandomPiece(f.src)
	return true
}

// refreshDisplay はボードに操作中のピースを重ねて表示バッファを作り直します。
func (f *Field) refreshDisplay() {
	for y, row := range f.board.Cells {
		copy(f.display[f.Index(y, 0):], row)
	}
	for _, offset := range f.current.Mino.Cells() {
		p := f.current.Position.Add(offset)
		if !f.board.InBounds(p) {
			continue
		}
		f.display[f.Index(p.Y, p.X)] = f.current.Mino.Blocks[offset.Y][offset.X]
	}
}
