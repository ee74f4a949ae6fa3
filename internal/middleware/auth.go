package middleware

import (
	"crypto/hmac"
	"net/http"
	"strings"
)

// AuthMiddleware проверяет статический bearer-токен входящих запросов.
// Вызывающая сторона — шлюз карточной сети, а не браузерная сессия,
// поэтому используется токен, а не cookie.
type AuthMiddleware struct {
	token string
}

// NewAuthMiddleware создаёт AuthMiddleware с указанным токеном.
// Пустой токен отключает проверку.
func NewAuthMiddleware(token string) *AuthMiddleware {
	return &AuthMiddleware{token: token}
}

// Middleware пропускает запрос только с корректным заголовком Authorization.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.token == "" {
			next.ServeHTTP(w, r)
			return
		}

		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || !hmac.Equal([]byte(got), []byte(a.token)) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
