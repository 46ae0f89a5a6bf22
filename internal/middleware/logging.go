package middleware

import (
	"net/http"
	"time"

	logpkg "github.com/NotJohn04/commitkeeper/internal/logger"
	"github.com/NotJohn04/commitkeeper/internal/request"
	"go.uber.org/zap"
)

// Logging emits one structured entry per served request. The user id is
// included when Auth ran before this middleware.
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.Int("status", rec.status),
				zap.Int("bytes", rec.bytes),
				zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
				zap.String("client_ip", request.ClientIP(r)),
			}
			if u := request.UserFromContext(r); u != nil {
				fields = append(fields, zap.String("user_id", u.ID))
			}
			logger.Info("request_served", fields...)
		})
	}
}

// statusRecorder captures what the handler wrote so it can be logged.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}
