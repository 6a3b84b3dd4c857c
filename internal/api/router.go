package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/api/handlers"
	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/database"
	modeltetris "github.com/progate-hackathon-strawberry-flavor/playfield/internal/models/tetris"
	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/services/tetris"
)

// Dependencies はルーターが必要とするサービス群です。
type Dependencies struct {
	Sessions       *tetris.SessionManager
	Results        database.ResultRepository
	Auth           *middleware.Authenticator
	FieldConfig    modeltetris.Config
	DB             handlers.Pinger // nil の場合はメモリ上の記録
	AllowedOrigins []string
}

// NewRouter はAPIのルーティングを構築します。
//
//	GET    /api/public/health
//	GET    /api/public/field
//	GET    /api/results?limit=N
//	GET    /api/results/user/{userID}
//	POST   /api/sessions                        (要認証)
//	GET    /api/sessions/{sessionID}            (要認証)
//	POST   /api/sessions/{sessionID}/actions    (要認証)
//	DELETE /api/sessions/{sessionID}            (要認証)
//	GET    /ws/sessions/{sessionID}             (接続後の auth メッセージで認証)
func NewRouter(d Dependencies) http.Handler {
	gameHandler := handlers.NewGameHandler(d.Sessions, d.Auth, originChecker(d.AllowedOrigins))
	resultHandler := handlers.NewResultHandler(d.Results)
	publicHandler := handlers.NewPublicHandler(d.FieldConfig, d.DB)

	r := mux.NewRouter()

	// 認証不要な公開エンドポイント
	r.HandleFunc("/api/public/health", publicHandler.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/public/field", publicHandler.GetFieldConfig).Methods(http.MethodGet)
	r.HandleFunc("/api/results", resultHandler.GetTopResults).Methods(http.MethodGet)
	r.HandleFunc("/api/results/user/{userID}", resultHandler.GetUserResult).Methods(http.MethodGet)

	// WebSocketは接続後のメッセージで認証する
	r.HandleFunc("/ws/sessions/{sessionID}", gameHandler.HandleWebSocketConnection)

	// 認証が必要なルートグループ
	r.Handle("/api/sessions", d.Auth.Middleware(http.HandlerFunc(gameHandler.CreateSession))).Methods(http.MethodPost)
	protected := r.PathPrefix("/api/sessions").Subrouter()
	protected.Use(d.Auth.Middleware)
	protected.HandleFunc("/{sessionID}", gameHandler.GetSession).Methods(http.MethodGet)
	protected.HandleFunc("/{sessionID}", gameHandler.DeleteSession).Methods(http.MethodDelete)
	protected.HandleFunc("/{sessionID}/actions", gameHandler.ApplyAction).Methods(http.MethodPost)

	return middleware.CORSHandler(d.AllowedOrigins)(r)
}

// originChecker は WebSocket の Origin ヘッダーを CORS と同じ許可リストで検証します。
// Origin ヘッダーがない (ブラウザ以外の) 接続と、"*" を含むリストはすべて許可します。
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(r *http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
