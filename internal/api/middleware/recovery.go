package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"stockforge/pkg/utils"
)

// Recovery перехватывает панику в обработчике и возвращает 500.
// Процесс держит стаканы и леджер в памяти, падение по панике
// одного запроса недопустимо.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				utils.Error("panic in handler",
					zap.Any("panic", err),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.ByteString("stack", debug.Stack()),
				)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
