package tetris

// PieceKind はテトリミノの種類を表します。
type PieceKind int

const (
	KindI PieceKind = iota // 0: I-ミノ (シアン)
	KindJ                  // 1: J-ミノ (青)
	KindL                  // 2: L-ミノ (オレンジ)
	KindO                  // 3: O-ミノ (黄色)
	KindS                  // 4: S-ミノ (緑)
	KindT                  // 5: T-ミノ (紫)
	KindZ                  // 6: Z-ミノ (赤)
)

// NumKinds はテトリミノの種類数です。
const NumKinds = 7

// AllKinds は全種類のテトリミノを定義順に並べたものです。
var AllKinds = [NumKinds]PieceKind{KindI, KindJ, KindL, KindO, KindS, KindT, KindZ}

// Cell はテトリミノの種類に対応するセルの値を返します。
func (k PieceKind) Cell() Cell {
	return CellI + Cell(k)
}

// String はテトリミノの種類を "I", "J" などの文字列で返します。
func (k PieceKind) String() string {
	if k < KindI || k > KindZ {
		return "?"
	}
	return string("IJLOSTZ"[k])
}

// StringToPieceKind は文字列のテトリミノ種類（"I", "O", "T"など）をPieceKindに変換します。
func StringToPieceKind(s string) (PieceKind, bool) {
	for _, k := range AllKinds {
		if k.String() == s {
			return k, true
		}
	}
	return KindI, false
}

// MinoSize はテトリミノの外枠 (4x4) の一辺のマス数です。
const MinoSize = 4

// Mino は4x4のセル行列です。固定の形状テーブルと回転時の作業領域の両方に使います。
// 配列なのでコピーは値渡しで、回転ごとのアロケーションは発生しません。
type Mino [MinoSize][MinoSize]Cell

// EmptyMino は回転時の作業領域として使う空の行列です。
var EmptyMino = Mino{}

var (
	IMino = Mino{
		{CellI, CellI, CellI, CellI},
		{CellEmpty, CellEmpty, CellEmpty, CellEmpty},
		{CellEmpty, CellEmpty, CellEmpty, CellEmpty},
		{CellEmpty, CellEmpty, CellEmpty, CellEmpty},
	}
	JMino = Mino{
		{CellJ, CellJ, CellJ, CellEmpty},
		{CellEmpty, CellEmpty, CellJ, CellEmpty},
		{CellEmpty, CellEmpty, CellEmpty, CellEmpty},
		{CellEmpty, CellEmpty, CellEmpty, CellEmpty},
	}
	LMino = Mino{
		{CellEmpty, CellEmpty, CellEmpty, CellEmpty},
		{CellEmpty, CellEmpty, CellEmpty, CellL},
		{CellEmpty, CellL, CellL, CellL},
		{CellEmpty, CellEmpty, CellEmpty, CellEmpty},
	}
	OMino = Mino{
		{CellEmpty, CellEmpty, CellEmpty, CellEmpty},
		{CellEmpty, CellO, CellO, CellEmpty},
		{CellEmpty, CellO, CellO, CellEmpty},
		{CellEmpty, CellEmpty, CellEmpty, CellEmpty},
	}
	SMino = Mino{
		{CellEmpty, CellEmpty, CellEmpty, CellEmpty},
		{CellEmpty, CellS, CellS, CellEmpty},
		{CellS, CellS, CellEmpty, CellEmpty},
		{CellEmpty, CellEmpty, CellEmpty, CellEmpty},
	}
	TMino = Mino{
		{CellEmpty, CellEmpty, CellEmpty, CellEmpty},
		{CellEmpty, CellT, CellEmpty, CellEmpty},
		{CellT, CellT, CellT, CellEmpty},
		{CellEmpty, CellEmpty, CellEmpty, CellEmpty},
	}
	ZMino = Mino{
		{CellEmpty, CellEmpty, CellEmpty, CellEmpty},
		{CellEmpty, CellZ, CellZ, CellEmpty},
		{CellEmpty, CellEmpty, CellZ, CellZ},
		{CellEmpty, CellEmpty, CellEmpty, CellEmpty},
	}
)

// minoShapes は種類ごとの初期形状です。
var minoShapes = map[PieceKind]Mino{
	KindI: IMino,
	KindJ: JMino,
	KindL: LMino,
	KindO: OMino,
	KindS: SMino,
	KindT: TMino,
	KindZ: ZMino,
}

// MinoOf は指定された種類の初期形状を返します。未知の種類には空の行列を返します。
func MinoOf(kind PieceKind) Mino {
	if m, ok := minoShapes[kind]; ok {
		return m
	}
	return EmptyMino
}

// Piece はテトリミノの種類と現在の形状（4x4行列）です。
// 位置は持たず、ControlledPiece またはフィールドの「次のピース」として保持されます。
type Piece struct {
	Kind   PieceKind `json:"kind"`
	Blocks Mino      `json:"-"`
}

// NewPiece は指定された種類の初期形状のピースを作成します。
func NewPiece(kind PieceKind) Piece {
	return Piece{Kind: kind, Blocks: MinoOf(kind)}
}

// RandomPiece は乱数源から種類を選んでピースを作成します。
func RandomPiece(src KindSource) Piece {
	return NewPiece(src.NextKind())
}

// RotateLeft はピースを反時計回りに90度回転させます。
// 衝突判定は行いません（フィールド側の責務です）。
func (p *Piece) RotateLeft() {
	rotated := EmptyMino
	for y := 0; y < MinoSize; y++ {
		for x := 0; x < MinoSize; x++ {
			rotated[MinoSize-1-x][y] = p.Blocks[y][x]
		}
	}
	p.Blocks = rotated
}

// RotateRight はピースを時計回りに90度回転させます。
func (p *Piece) RotateRight() {
	rotated := EmptyMino
	for y := 0; y < MinoSize; y++ {
		for x := 0; x < MinoSize; x++ {
			rotated[x][MinoSize-1-y] = p.Blocks[y][x]
		}
	}
	p.Blocks = rotated
}

// Cells はブロックが存在するマスの相対座標を行優先で返します。
func (p *Piece) Cells() []Point {
	cells := make([]Point, 0, 4)
	for y := 0; y < MinoSize; y++ {
		for x := 0; x < MinoSize; x++ {
			if p.Blocks[y][x] != CellEmpty {
				cells = append(cells, Point{X: x, Y: y})
			}
		}
	}
	return cells
}

// Rows は4x4の形状をテキストで返します。
func (p *Piece) Rows() []string {
	rows := make([]string, MinoSize)
	for y := 0; y < MinoSize; y++ {
		line := make([]rune, MinoSize)
		for x := 0; x < MinoSize; x++ {
			line[x] = p.Blocks[y][x].Rune()
		}
		rows[y] = string(line)
	}
	return rows
}
