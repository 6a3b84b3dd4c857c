package tetris

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket" // WebSocketライブラリのインポート

	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/models"
	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/models/tetris"
)

var (
	// ErrSessionNotFound は指定されたセッションが存在しない場合に返されます。
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionForbidden はセッションの所有者以外が操作しようとした場合に返されます。
	ErrSessionForbidden = errors.New("session belongs to another user")
	// ErrManagerClosed はシャットダウン後に操作しようとした場合に返されます。
	ErrManagerClosed = errors.New("session manager is shut down")
)

const (
	resultSaveTimeout = 5 * time.Second
	readWait          = 300 * time.Second
	writeWait         = 10 * time.Second
	pingPeriod        = 60 * time.Second
)

// Client はWebSocket接続を持つ単一のクライアントを表します。
type Client struct {
	UserID    string          // このクライアントに紐づくユーザーのID
	SessionID string          // このクライアントが操作しているセッションのID
	Conn      *websocket.Conn // クライアントとの実際のWebSocketコネクション
	Send      chan []byte     // クライアントへメッセージを送信するためのバッファ付きチャネル
	closed    bool            // チャネルが閉じられたかどうかのフラグ
	mu        sync.Mutex      // closedフラグ保護用
}

// SafeSend は安全にチャネルにメッセージを送信します（closedチェック付き）
func (c *Client) SafeSend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false // 既に閉じられている
	}

	select {
	case c.Send <- message:
		return true
	default:
		return false // チャネルがフル
	}
}

// SafeClose は安全にチャネルを閉じます
func (c *Client) SafeClose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.Send)
		c.closed = true
	}
}

// PlayerInputEvent はクライアントから受信した操作です。
// 受信メッセージは {"action": "move_left"} の形式です。
type PlayerInputEvent struct {
	UserID    string `json:"-"`
	SessionID string `json:"-"`
	Action    string `json:"action"`
}

// GameSession は1人のプレイヤーが所有する1つのフィールドです。
// フィールドへのアクセスはすべて mu で直列化されます。
type GameSession struct {
	ID        string
	OwnerID   string
	CreatedAt time.Time

	mu      sync.Mutex
	field   *Field
	endedAt time.Time
}

// Apply はアクションをフィールドに適用します。
func (gs *GameSession) Apply(a Action) bool {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	return Apply(gs.field, a)
}

// Tick はフィールドを1ティック進めます。
//
// Returns:
//   changed: フィールドが Running で Update を実行した場合はtrue
//   ended  : このティックでゲームオーバーになった場合はtrue
func (gs *GameSession) Tick() (changed, ended bool) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if !gs.field.IsRunning() {
		return false, false
	}
	gs.field.Update()
	if gs.field.IsGameover() {
		gs.endedAt = time.Now()
		return true, true
	}
	return true, false
}

// Snapshot はセッションの現在の状態を返します。
func (gs *GameSession) Snapshot() Snapshot {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return NewSnapshot(gs.ID, gs.field)
}

// Result はゲームオーバー時点の記録を作成します。
func (gs *GameSession) Result() models.GameResult {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	stats := gs.field.Stats()
	return models.GameResult{
		UserID:       gs.OwnerID,
		SessionID:    gs.ID,
		LinesCleared: stats.LinesCleared,
		PiecesPlaced: stats.PiecesPlaced,
		Ticks:        stats.Ticks,
		FinalSpeed:   stats.Speed,
		CreatedAt:    gs.endedAt,
	}
}

// pauseIfRunning は Running 中であれば一時停止します。
func (gs *GameSession) pauseIfRunning() bool {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if !gs.field.IsRunning() {
		return false
	}
	gs.field.TogglePause()
	return true
}

// SessionManagerConfig はセッションマネージャーの設定です。
type SessionManagerConfig struct {
	Field        tetris.Config
	TickInterval time.Duration
	// NewSource はセッションごとの乱数源を作成します。nilの場合は一様乱数を使用します。
	NewSource func() tetris.KindSource
}

// SessionManager はゲームセッションとWebSocketクライアント接続の全体を管理します。
// これはアプリケーション内でシングルトンとして動作することが想定されます。
type SessionManager struct {
	sessions    map[string]*GameSession // sessionID -> GameSession
	clients     map[string]*Client      // sessionID -> Client (セッションごとに1接続)
	register    chan *Client
	unregister  chan *Client
	inputEvents chan PlayerInputEvent
	quit        chan struct{}
	quitOnce    sync.Once
	mu          sync.RWMutex // sessions と clients マップへのアクセスを保護する
	results     database.ResultRepository
	cfg         SessionManagerConfig
}

// NewSessionManager は新しい SessionManager インスタンスを作成し、そのメインイベントループをバックグラウンドで開始します。
//
// Parameters:
//   cfg     : フィールド設定とティック間隔
//   results : ゲームオーバー時の記録を保存するリポジトリ
// Returns:
//   *SessionManager: 初期化されたセッションマネージャーのポインタ
//   error: フィールド設定が不正な場合
func NewSessionManager(cfg SessionManagerConfig, results database.ResultRepository) (*SessionManager, error) {
	if err := cfg.Field.Validate(); err != nil {
		return nil, fmt.Errorf("セッションマネージャーの作成に失敗しました: %w", err)
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.NewSource == nil {
		cfg.NewSource = func() tetris.KindSource { return tetris.NewKindSource("uniform") }
	}
	if results == nil {
		results = database.NewMemoryResultRepository()
	}

	sm := &SessionManager{
		sessions:    make(map[string]*GameSession),
		clients:     make(map[string]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		inputEvents: make(chan PlayerInputEvent, 512), // プレイヤー操作のキューイング用
		quit:        make(chan struct{}),
		results:     results,
		cfg:         cfg,
	}
	go sm.Run()
	return sm, nil
}

// Run は SessionManager のメインイベントループです。
// クライアントの登録/解除、プレイヤー入力の処理、全セッションのティック処理をこのゴルーチンで行います。
func (sm *SessionManager) Run() {
	ticker := time.NewTicker(sm.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-sm.register:
			sm.mu.Lock()
			if old, ok := sm.clients[client.SessionID]; ok && old != client {
				log.Printf("[SessionManager] Replacing existing connection for session %s", client.SessionID)
				old.SafeClose()
			}
			sm.clients[client.SessionID] = client
			sm.mu.Unlock()
			log.Printf("[SessionManager] Client registered: %s (Session: %s)", client.UserID, client.SessionID)

			// 接続直後に現在の状態を送る
			sm.BroadcastGameState(client.SessionID)

		case client := <-sm.unregister:
			sm.mu.Lock()
			registered, ok := sm.clients[client.SessionID]
			if ok && registered == client {
				delete(sm.clients, client.SessionID)
			}
			session, hasSession := sm.sessions[client.SessionID]
			sm.mu.Unlock()
			client.SafeClose()

			if !ok || registered != client {
				continue // 置き換え済みの古い接続
			}
			log.Printf("[SessionManager] Client unregistered: %s (Session: %s)", client.UserID, client.SessionID)
			if hasSession && session.pauseIfRunning() {
				log.Printf("[SessionManager] Player %s left session %s during game. Paused.", client.UserID, client.SessionID)
			}

		case event := <-sm.inputEvents:
			sm.handleInput(event)

		case <-ticker.C:
			sm.Tick()

		case <-sm.quit:
			log.Printf("[SessionManager] シャットダウンシグナルを受信、メインループを終了します")
			return
		}
	}
}

// handleInput はプレイヤーからの入力イベントを処理します。
func (sm *SessionManager) handleInput(event PlayerInputEvent) {
	session, ok := sm.GetGameSession(event.SessionID)
	if !ok {
		log.Printf("[SessionManager] Received input for non-existent session %s from user %s", event.SessionID, event.UserID)
		return
	}
	if session.OwnerID != event.UserID {
		log.Printf("[SessionManager] Input from user %s ignored for session %s", event.UserID, event.SessionID)
		return
	}

	action, err := ParseAction(event.Action)
	if err != nil {
		log.Printf("[SessionManager] %v (user %s)", err, event.UserID)
		return
	}

	if session.Apply(action) {
		sm.BroadcastGameState(session.ID)
	}
}

// Tick は Running 状態の全セッションを1ティック進め、変化したセッションの状態を送信します。
// ゲームオーバーになったセッションは記録を保存します。
func (sm *SessionManager) Tick() {
	sm.mu.RLock()
	active := make([]*GameSession, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		active = append(active, session)
	}
	sm.mu.RUnlock()

	// ロック外で処理を実行
	for _, session := range active {
		changed, ended := session.Tick()
		if !changed {
			continue
		}
		sm.BroadcastGameState(session.ID)
		if ended {
			sm.saveResult(session)
		}
	}
}

// saveResult はゲームオーバーになったセッションの記録を保存します。
func (sm *SessionManager) saveResult(session *GameSession) {
	ctx, cancel := context.WithTimeout(context.Background(), resultSaveTimeout)
	defer cancel()

	result := session.Result()
	log.Printf("[SessionManager] Game over in session %s (user %s): lines=%d pieces=%d",
		session.ID, session.OwnerID, result.LinesCleared, result.PiecesPlaced)

	saved, err := sm.results.CreateResult(ctx, result)
	if err != nil {
		log.Printf("[SessionManager] Failed to save result for session %s: %v", session.ID, err)
		return
	}
	log.Printf("[SessionManager] Result %d stored for session %s", saved.ID, session.ID)
}

// CreateSession は新しいゲームセッションを作成します。フィールドは Startup 状態です。
//
// Parameters:
//   userID : セッションを所有するユーザーのID
// Returns:
//   *GameSession: 作成されたセッション
//   error : エラーが発生した場合
func (sm *SessionManager) CreateSession(userID string) (*GameSession, error) {
	field, err := NewField(sm.cfg.Field, sm.cfg.NewSource())
	if err != nil {
		return nil, fmt.Errorf("failed to create game session: %w", err)
	}

	session := &GameSession{
		ID:        uuid.New().String(),
		OwnerID:   userID,
		CreatedAt: time.Now(),
		field:     field,
	}

	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()

	log.Printf("[SessionManager] Created new game session: %s for user %s", session.ID, userID)
	return session, nil
}

// GetGameSession はセッションを取得します。
func (sm *SessionManager) GetGameSession(sessionID string) (*GameSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	session, ok := sm.sessions[sessionID]
	return session, ok
}

// GetOwnedSession は所有者を確認してセッションを取得します。
//
// Returns:
//   error: 存在しない場合は ErrSessionNotFound、所有者が異なる場合は ErrSessionForbidden
func (sm *SessionManager) GetOwnedSession(sessionID, userID string) (*GameSession, error) {
	session, ok := sm.GetGameSession(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if session.OwnerID != userID {
		return nil, fmt.Errorf("%w: %s", ErrSessionForbidden, sessionID)
	}
	return session, nil
}

// SessionCount は管理中のセッション数を返します。
func (sm *SessionManager) SessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// EndGameSession はセッションを削除し、接続中のクライアントを切断します。
func (sm *SessionManager) EndGameSession(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.sessions[sessionID]; !ok {
		log.Printf("[SessionManager] EndGameSession called for non-existent session: %s", sessionID)
		return
	}
	if client, ok := sm.clients[sessionID]; ok {
		client.SafeClose()
		delete(sm.clients, sessionID)
	}
	delete(sm.sessions, sessionID)
	log.Printf("[SessionManager] Removed session %s", sessionID)
}

// RegisterClient はWebSocket接続をセッションに登録し、読み書きのゴルーチンを開始します。
//
// Parameters:
//   sessionID : 接続先のセッションID
//   userID    : 認証済みのユーザーID
//   conn      : アップグレード済みのWebSocket接続
// Returns:
//   error: セッションが存在しない、所有者が異なる、またはシャットダウン済みの場合
func (sm *SessionManager) RegisterClient(sessionID, userID string, conn *websocket.Conn) error {
	if _, err := sm.GetOwnedSession(sessionID, userID); err != nil {
		return err
	}

	client := &Client{
		UserID:    userID,
		SessionID: sessionID,
		Conn:      conn,
		Send:      make(chan []byte, 256),
	}

	select {
	case sm.register <- client:
	case <-sm.quit:
		return ErrManagerClosed
	}

	go sm.readPump(client)
	go client.writePump()
	return nil
}

func (sm *SessionManager) readPump(client *Client) {
	defer func() {
		log.Printf("[SessionManager] Client %s disconnecting from session %s", client.UserID, client.SessionID)
		select {
		case sm.unregister <- client:
		case <-sm.quit:
		}
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(1024)
	client.Conn.SetReadDeadline(time.Now().Add(readWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[SessionManager] WebSocket unexpected close error for user %s: %v", client.UserID, err)
			}
			return
		}

		var inputEvent PlayerInputEvent
		if err := json.Unmarshal(message, &inputEvent); err != nil {
			log.Printf("[SessionManager] Failed to unmarshal input message from %s: %v", client.UserID, err)
			continue
		}
		// 受信したメッセージの送信者は接続から決める
		inputEvent.UserID = client.UserID
		inputEvent.SessionID = client.SessionID

		select {
		case sm.inputEvents <- inputEvent:
		default:
			log.Printf("[SessionManager] Input events channel is full, dropping message from user %s", client.UserID)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[Client] Error writing message for user %s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[Client] Error sending ping for user %s: %v", c.UserID, err)
				return
			}
		}
	}
}

// BroadcastGameState はセッションの現在の状態を接続中のクライアントへ送信します。
func (sm *SessionManager) BroadcastGameState(sessionID string) {
	sm.mu.RLock()
	session, ok := sm.sessions[sessionID]
	client, hasClient := sm.clients[sessionID]
	sm.mu.RUnlock()
	if !ok || !hasClient {
		return
	}

	stateJSON, err := json.Marshal(session.Snapshot())
	if err != nil {
		log.Printf("[SessionManager] Error marshaling snapshot for session %s: %v", sessionID, err)
		return
	}
	if !client.SafeSend(stateJSON) {
		log.Printf("[SessionManager] Failed to send to client %s (channel closed or full)", client.UserID)
	}
}

// Shutdown はメインループを止め、すべての接続を閉じます。
func (sm *SessionManager) Shutdown() {
	log.Printf("[SessionManager] シャットダウン開始...")
	sm.quitOnce.Do(func() { close(sm.quit) })

	sm.mu.Lock()
	for sessionID, client := range sm.clients {
		log.Printf("[SessionManager] セッション %s のクライアントを切断中...", sessionID)
		client.Conn.Close()
		client.SafeClose()
	}
	sm.clients = make(map[string]*Client)
	sm.sessions = make(map[string]*GameSession)
	sm.mu.Unlock()

	log.Printf("[SessionManager] シャットダウン完了")
}
