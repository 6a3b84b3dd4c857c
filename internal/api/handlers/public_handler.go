package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/models/tetris"
)

// Pinger はデータベースの疎通確認を行います。*sql.DB が実装します。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PublicHandler handles public API endpoints
type PublicHandler struct {
	fieldConfig tetris.Config
	db          Pinger // nil の場合はメモリ上の記録を使用中
}

// NewPublicHandler creates a new instance of PublicHandler
func NewPublicHandler(fieldConfig tetris.Config, db Pinger) *PublicHandler {
	return &PublicHandler{
		fieldConfig: fieldConfig,
		db:          db,
	}
}

// GetFieldConfig はフィールドの大きさと落下設定を返します。
// GET /api/public/field
func (h *PublicHandler) GetFieldConfig(w http.ResponseWriter, r *http.Request) {
	kinds := make([]string, 0, tetris.NumKinds)
	for _, k := range tetris.AllKinds {
		kinds = append(kinds, k.String())
	}
	WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"config": h.fieldConfig,
		"kinds":  kinds,
	})
}

// Health はサーバーとデータベースの状態を返します。
// GET /api/public/health
func (h *PublicHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "ok", "database": "memory"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		log.Printf("[PublicHandler] Database ping failed: %v", err)
		WriteJSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unavailable"})
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
}
