package terminal

import (
	"context"
	"log"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/services/tetris"
)

// Game は1つのフィールドを端末で遊ぶためのホストです。
// 入力とティックは同じゴルーチンで処理するので、フィールドにロックは不要です。
type Game struct {
	screen       tcell.Screen
	field        *tetris.Field
	renderer     *Renderer
	cues         Cues
	tickInterval time.Duration
}

// NewGame は Game を作成します。cues が nil の場合は Silent を使用します。
func NewGame(screen tcell.Screen, field *tetris.Field, cues Cues, tickInterval time.Duration) *Game {
	if cues == nil {
		cues = Silent{}
	}
	if tickInterval <= 0 {
		tickInterval = tetris.DefaultTickInterval
	}
	return &Game{
		screen:       screen,
		field:        field,
		renderer:     NewRenderer(screen),
		cues:         cues,
		tickInterval: tickInterval,
	}
}

// Field は操作対象のフィールドを返します。
func (g *Game) Field() *tetris.Field { return g.field }

// HandleEvent は1つのイベントを処理します。終了する場合は false を返します。
func (g *Game) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if IsQuit(ev) {
			return false
		}
		if action, ok := ActionForKey(ev, g.field.State()); ok {
			g.observe(func() { tetris.Apply(g.field, action) })
			g.renderer.Draw(g.field)
		}
	case *tcell.EventResize:
		g.screen.Sync()
		g.renderer.Draw(g.field)
	}
	return true
}

// Step はフィールドを1ティック進めて描画します。
func (g *Game) Step() {
	g.observe(g.field.Update)
	g.renderer.Draw(g.field)
}

// observe は fn の前後で統計を比べ、対応する効果音を鳴らします。
func (g *Game) observe(fn func()) {
	before := g.field.Stats()
	wasOver := g.field.IsGameover()

	fn()

	after := g.field.Stats()
	if after.PiecesPlaced > before.PiecesPlaced {
		g.cues.Lock()
	}
	if after.LinesCleared > before.LinesCleared {
		g.cues.LineClear(after.LinesCleared - before.LinesCleared)
	}
	if !wasOver && g.field.IsGameover() {
		log.Printf("[Terminal] Game over: lines=%d pieces=%d ticks=%d", after.LinesCleared, after.PiecesPlaced, after.Ticks)
		g.cues.Gameover()
	}
}

// Run はキー入力とティックのループを実行します。終了キーが押されるか ctx がキャンセルされると戻ります。
func (g *Game) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.tickInterval)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := g.screen.PollEvent()
			if ev == nil {
				// Fini された
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	g.renderer.Draw(g.field)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok || !g.HandleEvent(ev) {
				return nil
			}
		case <-ticker.C:
			g.Step()
		}
	}
}
