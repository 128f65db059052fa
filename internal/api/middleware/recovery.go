package middleware

import (
	"net/http"
	"runtime/debug"

	"riskengine/pkg/utils"
)

// Recovery перехватывает panic в handlers и возвращает 500
// вместо падения процесса. Паника в risk-контуре недопустима:
// монитор и kill switch должны пережить любой сбой HTTP слоя.
func Recovery(log *utils.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = utils.L()
	}
	log = log.WithComponent("http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("handler panic recovered",
						utils.HTTPMethod(r.Method),
						utils.HTTPPath(r.URL.Path),
						utils.Any("panic", err),
						utils.String("stack", string(debug.Stack())))

					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
