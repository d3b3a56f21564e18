package middleware

import (
	"net"
	"net/http"
	"sync"

	"stockforge/pkg/ratelimit"
)

// OrderRateLimit - middleware лимита частоты размещения заявок
//
// Назначение:
// Token bucket на клиента (по IP): защищает матчинговое ядро и БД от
// заявочного флуда. Лимит задается в заявках в минуту; burst равен
// двойному посекундному темпу, но не меньше 5.
//
// ratePerMinute <= 0 отключает лимит.
//
// Использование:
//
//	api.Handle("/orders", middleware.OrderRateLimit(60)(orderHandler)).Methods("POST")
func OrderRateLimit(ratePerMinute int) func(http.Handler) http.Handler {
	if ratePerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	perSecond := float64(ratePerMinute) / 60.0
	burst := perSecond * 2
	if burst < 5 {
		burst = 5
	}

	var mu sync.Mutex
	limiters := make(map[string]*ratelimit.RateLimiter)

	limiterFor := func(client string) *ratelimit.RateLimiter {
		mu.Lock()
		defer mu.Unlock()
		rl, ok := limiters[client]
		if !ok {
			rl = ratelimit.NewRateLimiter(perSecond, burst)
			limiters[client] = rl
		}
		return rl
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientAddr(r)
			if !limiterFor(client).Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr возвращает IP клиента без порта
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
