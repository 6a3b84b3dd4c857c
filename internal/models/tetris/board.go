package tetris

import (
	"strings"
)

// Cell はフィールド上の1マスの種類を表します。
// 各テトリミノの種類もセルの値として扱います。
type Cell uint8

const (
	CellEmpty  Cell = iota // 0: 空のマス
	CellBorder             // 1: 壁・床 (ゲーム中に上書きされない)
	CellI                  // 2: I-ミノ由来のブロック
	CellJ                  // 3: J-ミノ由来のブロック
	CellL                  // 4: L-ミノ由来のブロック
	CellO                  // 5: O-ミノ由来のブロック
	CellS                  // 6: S-ミノ由来のブロック
	CellT                  // 7: T-ミノ由来のブロック
	CellZ                  // 8: Z-ミノ由来のブロック
)

// cellRunes はセルのテキスト表現です。Snapshotやテストで使用します。
var cellRunes = map[Cell]rune{
	CellEmpty:  '.',
	CellBorder: '#',
	CellI:      'I',
	CellJ:      'J',
	CellL:      'L',
	CellO:      'O',
	CellS:      'S',
	CellT:      'T',
	CellZ:      'Z',
}

// Rune はセルを1文字で表します。未知の値は '?' になります。
func (c Cell) Rune() rune {
	if r, ok := cellRunes[c]; ok {
		return r
	}
	return '?'
}

// String はセルの文字表現を返します。
func (c Cell) String() string {
	return string(c.Rune())
}

// ParseCell は Rune の逆変換です。
func ParseCell(r rune) (Cell, bool) {
	for c, cr := range cellRunes {
		if cr == r {
			return c, true
		}
	}
	return CellEmpty, false
}

// IsBlock はテトリミノ由来のブロックかどうかを返します。
func (c Cell) IsBlock() bool {
	return c >= CellI && c <= CellZ
}

// Board はフィールドの確定済みマスを保持する2次元配列です。
// Board.Cells[y][x] でアクセスします。yは行、xは列です。
// 左右の列と最下段は壁で、上部の出現領域だけは指定された列の範囲が空いています。
type Board struct {
	Width  int
	Height int
	Cells  [][]Cell
}

// NewBoard は設定に従って壁と出現領域を含む新しいボードを作成します。
//
// Parameters:
//   cfg : フィールドの設定 (Validate済みであること)
// Returns:
//   *Board: 初期化されたボードのポインタ
func NewBoard(cfg Config) *Board {
	b := &Board{
		Width:  cfg.Width,
		Height: cfg.Height,
		Cells:  make([][]Cell, cfg.Height),
	}

	for y := 0; y < cfg.Height; y++ {
		row := make([]Cell, cfg.Width)
		for x := 0; x < cfg.Width; x++ {
			switch {
			case y < cfg.SpawnGapRows:
				// 出現領域: 指定列のみ空ける
				if x >= cfg.SpawnGapColumns[0] && x <= cfg.SpawnGapColumns[1] {
					row[x] = CellEmpty
				} else {
					row[x] = CellBorder
				}
			case y == cfg.Height-1:
				row[x] = CellBorder // 床
			case x == 0 || x == cfg.Width-1:
				row[x] = CellBorder // 左右の壁
			default:
				row[x] = CellEmpty
			}
		}
		b.Cells[y] = row
	}
	return b
}

// InBounds は座標がボードの範囲内かどうかを返します。
func (b *Board) InBounds(p Point) bool {
	return p.X >= 0 && p.X < b.Width && p.Y >= 0 && p.Y < b.Height
}

// At は指定座標のセルを返します。範囲外は壁として扱います。
func (b *Board) At(p Point) Cell {
	if !b.InBounds(p) {
		return CellBorder
	}
	return b.Cells[p.Y][p.X]
}

// Set は指定座標にセルを書き込みます。範囲外と壁のマスは変更しません。
func (b *Board) Set(p Point, c Cell) {
	if !b.InBounds(p) || b.Cells[p.Y][p.X] == CellBorder {
		return
	}
	b.Cells[p.Y][p.X] = c
}

// HasCollision は操作中のピースが現在の位置で空でないマスと重なっているかを判定します。
// 移動後の位置を仮に適用してから呼び出し、衝突していれば呼び出し側で元に戻します。
// ボードの範囲外にはみ出すブロックも衝突として扱います。
//
// Parameters:
//   cp : 衝突判定を行う操作中のピース
// Returns:
//   bool: 衝突する場合はtrue
func (b *Board) HasCollision(cp *ControlledPiece) bool {
	for _, offset := range cp.Mino.Cells() {
		if b.At(cp.Position.Add(offset)) != CellEmpty {
			return true
		}
	}
	return false
}

// Fix は操作中のピースのブロックをボードに固定します。
func (b *Board) Fix(cp *ControlledPiece) {
	for _, offset := range cp.Mino.Cells() {
		b.Set(cp.Position.Add(offset), cp.Mino.Blocks[offset.Y][offset.X])
	}
}

// IsRowComplete は指定行の壁以外のマスがすべて埋まっているかを返します。
// 壁しかない行は揃っていないものとして扱います。
func (b *Board) IsRowComplete(y int) bool {
	playable := 0
	for _, c := range b.Cells[y] {
		if c == CellBorder {
			continue
		}
		if c == CellEmpty {
			return false
		}
		playable++
	}
	return playable > 0
}

// CompletedRows は最下段の床を除いて、揃っている行を上から順に返します。
func (b *Board) CompletedRows() []int {
	var rows []int
	for y := 0; y < b.Height-1; y++ {
		if b.IsRowComplete(y) {
			rows = append(rows, y)
		}
	}
	return rows
}

// CollapseRow は指定行より上の行を1段ずつ下にずらします。
// 壁のマスは移動先にも移動元にもならず、移動元のマスは空になります。
// 最上段は壁以外が空になります (row が0の場合はその行を空にするだけ)。
//
// Parameters:
//   row : 消去する行
func (b *Board) CollapseRow(row int) {
	for y := row; y > 0; y-- {
		for x := 0; x < b.Width; x++ {
			if b.Cells[y][x] == CellBorder {
				continue // 壁は上書きしない
			}
			if b.Cells[y-1][x] == CellBorder {
				continue // 壁は引き下ろさない
			}
			b.Cells[y][x] = b.Cells[y-1][x]
			b.Cells[y-1][x] = CellEmpty
		}
	}
	for x := 0; x < b.Width; x++ {
		if b.Cells[0][x] != CellBorder {
			b.Cells[0][x] = CellEmpty
		}
	}
}

// Clone はボードのディープコピーを返します。
func (b *Board) Clone() *Board {
	clone := &Board{Width: b.Width, Height: b.Height, Cells: make([][]Cell, b.Height)}
	for y, row := range b.Cells {
		clone.Cells[y] = append([]Cell(nil), row...)
	}
	return clone
}

// Rows はボードを1行1文字列のテキストに変換します。
func (b *Board) Rows() []string {
	rows := make([]string, b.Height)
	for y, row := range b.Cells {
		var sb strings.Builder
		for _, c := range row {
			sb.WriteRune(c.Rune())
		}
		rows[y] = sb.String()
	}
	return rows
}

// String はボード全体を改行区切りのテキストで返します。
func (b *Board) String() string {
	return strings.Join(b.Rows(), "\n") + "\n"
}
