package tetris

// Point はフィールド上の座標です。xは列、yは行です。
// 一時的にボード外（負の値）を指すことがあるため符号付きで持ち、
// 範囲外は Board.HasCollision が衝突として扱います。
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add は2つの座標を足し合わせます。
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// ControlledPiece はプレイヤーが操作中のピースと、その位置・落下タイミングの状態です。
//
// 落下はフレーム累積で制御します。IsDropped が呼ばれるたびに Frame へ Speed を加算し、
// Frame が LastDropped に達したら1段落下させて LastDropped に Threshold を加えます。
type ControlledPiece struct {
	Mino        Piece `json:"mino"`
	Position    Point `json:"position"`
	Speed       int   `json:"speed"`
	Frame       int   `json:"frame"`
	LastDropped int   `json:"last_dropped"`
	Threshold   int   `json:"threshold"`

	spawn Point
}

// NewControlledPiece は出現位置にピースを置いた操作状態を作成します。
func NewControlledPiece(mino Piece, cfg Config) ControlledPiece {
	return ControlledPiece{
		Mino:      mino,
		Position:  cfg.SpawnPoint,
		Speed:     cfg.InitialSpeed,
		Threshold: cfg.DropThreshold,
		spawn:     cfg.SpawnPoint,
	}
}

// Spawn は出現位置を返します。
func (c *ControlledPiece) Spawn() Point {
	return c.spawn
}

// MoveLeft は無条件に1列左へ移動します。衝突時の巻き戻しはフィールドが行います。
func (c *ControlledPiece) MoveLeft() {
	c.Position.X--
}

// MoveRight は無条件に1列右へ移動します。
func (c *ControlledPiece) MoveRight() {
	c.Position.X++
}

// RotateLeft は保持しているピースを反時計回りに回転させます。
func (c *ControlledPiece) RotateLeft() {
	c.Mino.RotateLeft()
}

// RotateRight は保持しているピースを時計回りに回転させます。
func (c *ControlledPiece) RotateRight() {
	c.Mino.RotateRight()
}

// IsDropped は落下時計を1フレーム進め、このフレームで自然落下すべきかを返します。
// falseを返す場合も Frame は更新されます。
func (c *ControlledPiece) IsDropped() bool {
	c.Frame += c.Speed
	if c.Frame < c.LastDropped {
		return false
	}
	c.LastDropped += c.Threshold
	return true
}

// DropByForce は落下時計に関係なく line 段下へ移動します（ソフトドロップ用）。
func (c *ControlledPiece) DropByForce(line int) {
	c.Position.Y += line
}

// Dropdown は落下時計が落下を指示した場合のみ line 段下へ移動します。
//
// Returns:
//   bool: 実際に移動した場合はtrue
func (c *ControlledPiece) Dropdown(line int) bool {
	if !c.IsDropped() {
		return false
	}
	c.Position.Y += line
	return true
}

// Accel は落下速度を1上げます。
func (c *ControlledPiece) Accel() {
	c.Speed++
}

// Regenerate は新しいピースを出現位置に置き直し、落下速度を1上げます。
// 落下時計（Frame, LastDropped）は引き継ぎます。
func (c *ControlledPiece) Regenerate(mino Piece) {
	c.Accel()
	c.Position = c.spawn
	c.Mino = mino
}
