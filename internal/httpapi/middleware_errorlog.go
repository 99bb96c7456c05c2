package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// serverErrorLoggerMiddleware logs every 5xx with method, path and request
// id. Handlers already log their own failure cause; this is the catch-all
// that also covers panics surfaced by the recoverer.
func serverErrorLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if ww.Status() >= 500 {
			logMsg(r.Context(), fmt.Sprintf("http %s %s -> %d", r.Method, r.URL.Path, ww.Status()))
		}
	})
}
