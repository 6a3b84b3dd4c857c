package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/config"
	modeltetris "github.com/progate-hackathon-strawberry-flavor/playfield/internal/models/tetris"
	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/services/tetris"
	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/terminal"
)

func main() {
	mute := flag.Bool("mute", false, "効果音を鳴らさない")
	logFile := flag.String("log", "", "ログの出力先ファイル (未指定の場合は破棄)")
	flag.Parse()

	// 画面を壊さないよう、ログはファイルに書くか捨てる
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ログファイルを開けませんでした: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		log.SetOutput(io.Discard)
	}

	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗しました: %v\n", err)
		os.Exit(1)
	}

	field, err := tetris.NewField(cfg.Field, modeltetris.NewKindSource(cfg.Randomizer))
	if err != nil {
		fmt.Fprintf(os.Stderr, "フィールドの作成に失敗しました: %v\n", err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	var cues terminal.Cues = terminal.Silent{}
	if !*mute {
		sound, err := terminal.NewSound()
		if err != nil {
			// 音が出なくてもゲームは続けられる
			log.Printf("[Terminal] Audio initialization failed: %v", err)
		} else {
			cues = sound
		}
	}
	defer cues.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	game := terminal.NewGame(screen, field, cues, cfg.TickInterval)
	if err := game.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("[Terminal] Game loop stopped: %v", err)
	}
	stats := field.Stats()
	log.Printf("[Terminal] Bye: lines=%d pieces=%d", stats.LinesCleared, stats.PiecesPlaced)
}
