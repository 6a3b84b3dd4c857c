package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/api"
	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/api/handlers"
	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/database"
	modeltetris "github.com/progate-hackathon-strawberry-flavor/playfield/internal/models/tetris"
	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/services/tetris"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// 記録の保存先: DATABASE_URL があればPostgreSQL、なければメモリ
	var (
		results database.ResultRepository
		pinger  handlers.Pinger
	)
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		dbService, err := database.NewDatabaseService(ctx, cfg.DatabaseURL)
		if err == nil {
			err = dbService.Migrate(ctx)
		}
		cancel()
		if err != nil {
			log.Fatalf("データベースの初期化に失敗しました: %v", err)
		}
		defer dbService.Close()
		results = database.NewResultRepository(dbService.DB)
		pinger = dbService.DB
	} else {
		log.Println("DATABASE_URL が設定されていないため、記録はメモリ上に保存されます。")
		results = database.NewMemoryResultRepository()
	}

	if cfg.BypassAuth {
		log.Println("WARNING: BYPASS_AUTH が有効です。トークンの検証を行いません。")
	}
	auth := middleware.NewAuthenticator(cfg.JWTSecret, cfg.BypassAuth)

	randomizer := cfg.Randomizer
	sessions, err := tetris.NewSessionManager(tetris.SessionManagerConfig{
		Field:        cfg.Field,
		TickInterval: cfg.TickInterval,
		NewSource:    func() modeltetris.KindSource { return modeltetris.NewKindSource(randomizer) },
	}, results)
	if err != nil {
		log.Fatalf("セッションマネージャーの作成に失敗しました: %v", err)
	}

	router := api.NewRouter(api.Dependencies{
		Sessions:       sessions,
		Results:        results,
		Auth:           auth,
		FieldConfig:    cfg.Field,
		DB:             pinger,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("サーバーの起動に失敗しました: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("サーバーの停止中にエラーが発生しました: %v", err)
	}
	sessions.Shutdown()
	log.Println("Server stopped")
}
