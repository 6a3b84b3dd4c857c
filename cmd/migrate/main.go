package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/database"
)

func main() {
	// .envファイルを読み込む (開発環境の場合)
	config.LoadDotEnv()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("エラー: DATABASE_URL 環境変数が設定されていません。")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("データベース接続を試行中...")
	db, err := database.NewDatabaseService(ctx, databaseURL)
	if err != nil {
		log.Fatalf("エラー: %v", err)
	}
	defer db.Close()

	if version, err := db.Version(ctx); err != nil {
		log.Printf("警告: %v", err)
	} else {
		fmt.Printf("データベースバージョン: %s\n", version)
	}

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("エラー: %v", err)
	}
	fmt.Println("成功: game_results テーブルを作成しました。")
}
