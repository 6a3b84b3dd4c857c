package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMissingToken はトークンが指定されていない場合に返されます。
	ErrMissingToken = errors.New("token is required")
	// ErrInvalidToken はトークンの検証に失敗した場合に返されます。
	ErrInvalidToken = errors.New("invalid token")
	// ErrSecretMissing はJWTシークレットが設定されていない場合に返されます。
	ErrSecretMissing = errors.New("jwt secret is not configured")
)

type UserIDKey struct{}

// GetUserIDFromContext retrieves the user ID from the context.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey{}).(string)
	return userID, ok
}

// WithUserID はユーザーIDを設定したコンテキストを返します。
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey{}, userID)
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Authenticator はHMAC署名のJWTを検証し、'sub' クレームからユーザーIDを取り出します。
type Authenticator struct {
	secret []byte
	bypass bool
}

// NewAuthenticator は新しい Authenticator を作成します。
//
// Parameters:
//   secret : HMAC署名の検証に使うシークレット
//   bypass : trueの場合は署名を検証せず、トークン文字列そのものをユーザーIDとして扱います（開発用）
func NewAuthenticator(secret string, bypass bool) *Authenticator {
	return &Authenticator{secret: []byte(secret), bypass: bypass}
}

// ParseUserID はトークン文字列を検証してユーザーIDを返します。"Bearer " の接頭辞は取り除きます。
//
// Returns:
//   string: 'sub' クレームのユーザーID
//   error: トークンがない、または不正な場合
func (a *Authenticator) ParseUserID(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))

	if a.bypass {
		if tokenString == "" {
			// テスト用のランダムなユーザーIDを生成
			return uuid.New().String(), nil
		}
		return tokenString, nil
	}

	if tokenString == "" {
		return "", ErrMissingToken
	}
	if len(a.secret) == 0 {
		return "", ErrSecretMissing
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// アルゴリズムがHMACであることを確認
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	userID, err := token.Claims.GetSubject()
	if err != nil || userID == "" {
		return "", fmt.Errorf("%w: missing user ID", ErrInvalidToken)
	}
	return userID, nil
}

// Middleware は Authorization ヘッダーのJWTを検証し、ユーザーIDをコンテキストに設定します。
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !a.bypass {
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "Authorization header is required")
				return
			}
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "Invalid Authorization header format. Must be 'Bearer <token>'")
				return
			}
		}

		userID, err := a.ParseUserID(authHeader)
		switch {
		case errors.Is(err, ErrSecretMissing):
			log.Println("[AuthMiddleware] Error: JWT_SECRET environment variable is not set.")
			writeJSONError(w, http.StatusInternalServerError, "Server configuration error: JWT secret missing")
			return
		case err != nil:
			log.Printf("[AuthMiddleware] JWT parse error: %v", err)
			writeJSONError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}
