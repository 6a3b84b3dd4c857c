package handlers

import (
	"errors"
	"net/http"

	"github.com/progate-hackathon-strawberry-flavor/playfield/internal/api/middleware"
)

var errNoUserID = errors.New("ユーザーIDがコンテキストに見つかりません")

// ExtractUserIDFromContext はリクエストのコンテキストからユーザーIDを抽出します。
// AuthMiddleware を通過したリクエストでのみ成功します。
func ExtractUserIDFromContext(r *http.Request) (string, error) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok || userID == "" {
		return "", errNoUserID
	}
	return userID, nil
}
