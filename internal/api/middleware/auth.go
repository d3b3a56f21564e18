package middleware

import (
	"net/http"
	"strings"

	"stockforge/pkg/crypto"
)

// AdminAuth - middleware для защиты служебных endpoints
//
// Назначение:
// Закрывает административные маршруты (дамп открытых заявок, принудительная
// гидрация) токеном из заголовка Authorization: Bearer <token>.
// Токен сверяется с bcrypt хэшем из конфигурации (ADMIN_PASSWORD_HASH).
//
// Безопасность:
// - bcrypt сравнение устойчиво к timing attacks
// - Пустой хэш в конфигурации полностью закрывает admin маршруты
//
// Использование:
//
//	admin := router.PathPrefix("/api/v1/admin").Subrouter()
//	admin.Use(middleware.AdminAuth(cfg.Admin.PasswordHash))
func AdminAuth(passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if passwordHash == "" {
				http.Error(w, "Admin endpoints disabled. Set ADMIN_PASSWORD_HASH.", http.StatusForbidden)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="Admin endpoints"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !crypto.CheckPasswordMatch(token, passwordHash) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="Admin endpoints"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken извлекает токен из заголовка Authorization
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}
