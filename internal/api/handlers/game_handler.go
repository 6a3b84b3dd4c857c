package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket" // WebSocketライブラリ

	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/services/tetris"
)

// authWait は接続後の認証メッセージを待つ時間です。
const authWait = 10 * time.Second

// TokenParser はトークン文字列からユーザーIDを取り出します。middleware.Authenticator が実装します。
type TokenParser interface {
	ParseUserID(token string) (string, error)
}

// GameHandler はゲームセッション関連のHTTPリクエスト（作成、状態取得、操作、WebSocket接続）を処理します。
type GameHandler struct {
	sessionManager *tetris.SessionManager
	auth           TokenParser
	upgrader       websocket.Upgrader
}

// NewGameHandler は新しい GameHandler インスタンスを作成します。
//
// Parameters:
//   sm         : セッションマネージャーへのポインタ
//   auth       : WebSocketの認証メッセージを検証するパーサー
//   checkOrigin: WebSocket接続のOriginを検証する関数。nilの場合はすべて許可します
// Returns:
//   *GameHandler: 新しく作成された GameHandler のポインタ
func NewGameHandler(sm *tetris.SessionManager, auth TokenParser, checkOrigin func(r *http.Request) bool) *GameHandler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &GameHandler{
		sessionManager: sm,
		auth:           auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// WriteErrorResponse はエラーレスポンスをJSON形式で書き込みます。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// WriteJSONResponse はJSONレスポンスを書き込みます。
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeSessionError はセッション取得のエラーをステータスコードに変換します。
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tetris.ErrSessionNotFound):
		WriteErrorResponse(w, http.StatusNotFound, "指定されたセッションは見つかりませんでした")
	case errors.Is(err, tetris.ErrSessionForbidden):
		WriteErrorResponse(w, http.StatusForbidden, "このセッションを操作する権限がありません")
	default:
		WriteErrorResponse(w, http.StatusInternalServerError, "セッションの取得に失敗しました")
	}
}

// ownedSession は認証済みユーザーが所有するURLパラメータのセッションを取得します。
// 失敗した場合はエラーレスポンスを書き込んで nil を返します。
func (h *GameHandler) ownedSession(w http.ResponseWriter, r *http.Request) *tetris.GameSession {
	userID, err := ExtractUserIDFromContext(r)
	if err != nil {
		WriteErrorResponse(w, http.StatusUnauthorized, err.Error())
		return nil
	}
	sessionID := mux.Vars(r)["sessionID"]
	if sessionID == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "セッションIDが必要です")
		return nil
	}

	session, err := h.sessionManager.GetOwnedSession(sessionID, userID)
	if err != nil {
		writeSessionError(w, err)
		return nil
	}
	return session
}

// CreateSession は新しいゲームセッションを作成します。
// POST /api/sessions
func (h *GameHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, err := ExtractUserIDFromContext(r)
	if err != nil {
		WriteErrorResponse(w, http.StatusUnauthorized, err.Error())
		return
	}

	session, err := h.sessionManager.CreateSession(userID)
	if err != nil {
		log.Printf("[GameHandler] Failed to create session for user %s: %v", userID, err)
		WriteErrorResponse(w, http.StatusInternalServerError, "セッションの作成に失敗しました")
		return
	}

	WriteJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"session_id": session.ID,
		"snapshot":   session.Snapshot(),
	})
}

// GetSession はセッションの現在の状態を返します。
// GET /api/sessions/{sessionID}
func (h *GameHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session := h.ownedSession(w, r)
	if session == nil {
		return
	}
	WriteJSONResponse(w, http.StatusOK, session.Snapshot())
}

// ApplyAction はHTTP経由でアクションを1つ適用します。WebSocketを使わないクライアント用です。
// POST /api/sessions/{sessionID}/actions  {"action": "move_left"}
func (h *GameHandler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	session := h.ownedSession(w, r)
	if session == nil {
		return
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "リクエストボディのパースに失敗しました")
		return
	}
	action, err := tetris.ParseAction(req.Action)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	changed := session.Apply(action)
	if changed {
		h.sessionManager.BroadcastGameState(session.ID)
	}
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"changed":  changed,
		"snapshot": session.Snapshot(),
	})
}

// DeleteSession はセッションを終了して削除します。
// DELETE /api/sessions/{sessionID}
func (h *GameHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	session := h.ownedSession(w, r)
	if session == nil {
		return
	}
	h.sessionManager.EndGameSession(session.ID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleWebSocketConnection はHTTP接続をWebSocketプロトコルにアップグレードし、
// 認証メッセージ {"type": "auth", "token": "..."} を受け取った後、接続をセッションマネージャーに引き渡します。
// GET /ws/sessions/{sessionID}
func (h *GameHandler) HandleWebSocketConnection(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	if sessionID == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "WebSocket接続にはセッションIDが必要です")
		return
	}
	if _, ok := h.sessionManager.GetGameSession(sessionID); !ok {
		WriteErrorResponse(w, http.StatusNotFound, "指定されたセッションは見つかりませんでした")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[GameHandler] Failed to upgrade to websocket for session %s: %v", sessionID, err)
		return
	}

	userID, err := h.authenticate(conn)
	if err != nil {
		log.Printf("[GameHandler] WebSocket auth failed for session %s: %v", sessionID, err)
		conn.WriteJSON(map[string]string{"error": err.Error()})
		conn.Close()
		return
	}

	if err := h.sessionManager.RegisterClient(sessionID, userID, conn); err != nil {
		log.Printf("[GameHandler] Failed to register client %s to session %s: %v", userID, sessionID, err)
		conn.WriteJSON(map[string]string{"error": err.Error()})
		conn.Close()
		return
	}
	// 以降の読み書きは SessionManager の readPump / writePump が行う
}

// authenticate は最初のメッセージを認証メッセージとして読み、ユーザーIDを返します。
func (h *GameHandler) authenticate(conn *websocket.Conn) (string, error) {
	conn.SetReadDeadline(time.Now().Add(authWait))
	defer conn.SetReadDeadline(time.Time{})

	var authMsg struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	if err := conn.ReadJSON(&authMsg); err != nil {
		return "", errors.New("failed to read auth message")
	}
	if authMsg.Type != "auth" {
		return "", errors.New("expected auth message")
	}

	userID, err := h.auth.ParseUserID(authMsg.Token)
	if err != nil {
		return "", err
	}
	if err := conn.WriteJSON(map[string]string{"type": "auth_success", "message": "Authentication successful"}); err != nil {
		return "", err
	}
	return userID, nil
}
