package middleware

import (
	"net/http"
	"time"

	"autovitrine/precos/internal/auth"
	"autovitrine/precos/internal/logging"
)

type respLogger struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (l *respLogger) WriteHeader(code int) {
	l.status = code
	l.ResponseWriter.WriteHeader(code)
}

func (l *respLogger) Write(b []byte) (int, error) {
	n, err := l.ResponseWriter.Write(b)
	l.bytes += n
	return n, err
}

// Logging writes one structured line per request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lw := &respLogger{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(lw, r)
		dur := time.Since(start)

		log := logging.WithRequest(auth.GetRequestID(r.Context()), routePattern(r))
		fields := []interface{}{
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", lw.status,
			"bytes", lw.bytes,
			"duration_ms", dur.Milliseconds(),
		}
		if lw.status >= http.StatusInternalServerError {
			log.Errorw("HTTP request completed", fields...)
			return
		}
		log.Infow("HTTP request completed", fields...)
	})
}
