package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"CaseTracker/internal/workflow"
)

// statusResponseWriter обёртка для http.ResponseWriter, чтобы захватывать статус-код
// и передавать его дальше
type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader сохраняет статус и вызывает оригинальный WriteHeader
func (w *statusResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware выводит в стандартный лог информацию о каждом HTTP-запросе и панике.
// Тело запроса не логируется: в нём может быть код агентства.
func LoggingMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			srw := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}
			// обработка паники
			defer func() {
				if rec := recover(); rec != nil {
					dur := time.Since(start).Milliseconds()
					log.Printf("PANIC %s %s 500 %dms: %v", r.Method, r.URL.Path, dur, rec)
					panic(rec)
				}
			}()
			next.ServeHTTP(srw, r)
			dur := time.Since(start).Milliseconds()
			log.Printf("%s %s %d %dms", r.Method, r.URL.Path, srw.status, dur)
		})
	}
}

type ctxKey struct{}

// RequireSession находит контроллер сессии по заголовку X-Session-ID
// и кладёт его в контекст запроса; без сессии отвечает 401
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if id == "" {
			writeError(w, http.StatusUnauthorized, ErrorResponse{codeUnauthorized, "errors.session.required", map[string]interface{}{}})
			return
		}
		ctrl, err := h.sessions.Get(id)
		if err != nil {
			writeError(w, http.StatusUnauthorized, ErrorResponse{codeUnauthorized, "errors.session.unknown", map[string]interface{}{}})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, ctrl)))
	})
}

// workflowFrom достаёт контроллер, положенный RequireSession
func workflowFrom(r *http.Request) *workflow.Controller {
	return r.Context().Value(ctxKey{}).(*workflow.Controller)
}
