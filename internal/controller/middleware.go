package controller

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/auth"
	"go.uber.org/zap"
)

type ctxKey int

const userIDKey ctxKey = iota

// TokenValidator проверяет токен доступа
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// userID текущего пользователя; роутер гарантирует наличие для защищённых маршрутов
func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

// bearerToken берёт токен из Authorization; ?token= только если allowQuery
func bearerToken(r *http.Request, allowQuery bool) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}

// authMiddleware кладёт пользователя из JWT в контекст запроса
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return h.authenticate(next, false)
}

// wsAuthMiddleware то же для upgrade: браузер не шлёт заголовки, токен приходит в ?token=
func (h *Handler) wsAuthMiddleware(next http.Handler) http.Handler {
	return h.authenticate(next, true)
}

func (h *Handler) authenticate(next http.Handler, allowQuery bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r, allowQuery)
		if token == "" {
			h.fail(w, r, errUnauthorized)
			return
		}

		claims, err := h.tokens.Validate(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder запоминает статус ответа для лога
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// Hijack нужен websocket.Upgrader
func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rec.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// loggingMiddleware пишет в лог каждый запрос
func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		}

		if rec.status >= http.StatusInternalServerError {
			h.logger.Warn("HTTP request", fields...)
			return
		}
		h.logger.Debug("HTTP request", fields...)
	})
}

// recoverMiddleware превращает панику обработчика в 500
func (h *Handler) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rv := recover(); rv != nil {
				h.logger.Error("Panic in HTTP handler",
					zap.Any("panic", rv),
					zap.String("path", r.URL.Path),
					zap.ByteString("stack", debug.Stack()),
				)
				respondError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
