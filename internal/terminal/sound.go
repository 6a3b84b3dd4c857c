package terminal

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// Cues はゲーム中の出来事に合わせて鳴らす効果音です。
type Cues interface {
	Lock()
	LineClear(lines int)
	Gameover()
	Close()
}

// Silent は何も鳴らさない Cues です。音声の初期化に失敗した場合やテストで使用します。
type Silent struct{}

func (Silent) Lock()         {}
func (Silent) LineClear(int) {}
func (Silent) Gameover()     {}
func (Silent) Close()        {}

// Sound は beep でサイン波の効果音を鳴らします。
type Sound struct {
	mu     sync.Mutex
	closed bool
}

// NewSound はスピーカーを初期化します。失敗した場合はエラーを返すので、呼び出し側は Silent を使ってください。
func NewSound() (*Sound, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return nil, err
	}
	return &Sound{}, nil
}

// Lock はピースが固定されたときの短い音です。
func (s *Sound) Lock() {
	s.play(tone(220, 30*time.Millisecond))
}

// LineClear は消去したライン数だけ音程を上げながら鳴らします。
func (s *Sound) LineClear(lines int) {
	if lines <= 0 {
		return
	}
	streamers := make([]beep.Streamer, 0, lines)
	for i := 0; i < lines; i++ {
		streamers = append(streamers, tone(660+float64(i)*110, 60*time.Millisecond))
	}
	s.play(seq(streamers...))
}

// Gameover は下降する3音を鳴らします。
func (s *Sound) Gameover() {
	s.play(seq(
		tone(440, 150*time.Millisecond),
		tone(330, 150*time.Millisecond),
		tone(220, 300*time.Millisecond),
	))
}

// Close はスピーカーを閉じます。2回目以降の呼び出しは何もしません。
func (s *Sound) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	speaker.Close()
}

func (s *Sound) play(st beep.Streamer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || st == nil {
		return
	}
	speaker.Play(st)
}

// tone は指定した周波数と長さのサイン波を返します。生成に失敗した場合は nil です。
func tone(freq float64, d time.Duration) beep.Streamer {
	sine, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return nil
	}
	return beep.Take(sampleRate.N(d), sine)
}

func seq(streamers ...beep.Streamer) beep.Streamer {
	valid := streamers[:0]
	for _, st := range streamers {
		if st != nil {
			valid = append(valid, st)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	return beep.Seq(valid...)
}
