package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"riskengine/pkg/utils"
)

// responseWriter оборачивает http.ResponseWriter для захвата
// статус кода и размера ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Logging логирует каждый HTTP запрос: метод, путь, статус,
// латентность, адрес клиента и request id.
//
// Request id генерируется на входе и возвращается клиенту
// в заголовке X-Request-ID для сквозной трассировки.
func Logging(log *utils.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = utils.L()
	}
	log = log.WithComponent("http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			log.Info("request",
				utils.HTTPMethod(r.Method),
				utils.HTTPPath(r.URL.Path),
				utils.HTTPStatus(wrapped.statusCode),
				utils.LatencyMs(float64(time.Since(start).Microseconds())/1000),
				utils.RemoteAddr(r.RemoteAddr),
				utils.RequestID(requestID),
				utils.Int64("bytes", wrapped.written))
		})
	}
}
