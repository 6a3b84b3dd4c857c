package tetris

// GameState はフィールドのライフサイクル状態です。
//
// Startup から Run で Running に入り、TogglePause で Running と Pause を行き来します。
// Gameover は Restart が呼ばれるまで終端状態です。
type GameState int

const (
	StateStartup  GameState = iota // 起動直後。シミュレーションは停止しています
	StateRunning                   // シミュレーション中
	StatePause                     // 一時停止中
	StateGameover                  // ゲームオーバー
)

var gameStateNames = map[GameState]string{
	StateStartup:  "startup",
	StateRunning:  "running",
	StatePause:    "pause",
	StateGameover: "gameover",
}

// String は状態名を返します。JSONのスナップショットにもこの値が入ります。
func (s GameState) String() string {
	if name, ok := gameStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Stats はフィールドの進行状況をまとめた値です。得点ではなく単純なカウンタです。
type Stats struct {
	LinesCleared int `json:"lines_cleared"` // 消去したライン数の累計
	PiecesPlaced int `json:"pieces_placed"` // 固定したピースの数
	Ticks        int `json:"ticks"`         // Running 状態で処理した Update の回数
	Speed        int `json:"speed"`         // 現在の落下速度
}
