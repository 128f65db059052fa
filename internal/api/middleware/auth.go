package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"riskengine/internal/models"
	"riskengine/pkg/crypto"
)

type contextKey string

// userContextKey - ключ для models.UserContext в request context
const userContextKey contextKey = "user"

// debugUsername и debugPasswordHash защищают debug endpoints.
// Загружаются из DEBUG_USERNAME и DEBUG_PASSWORD_HASH (bcrypt).
var (
	debugUsername     = os.Getenv("DEBUG_USERNAME")
	debugPasswordHash = os.Getenv("DEBUG_PASSWORD_HASH")
)

// Claims - JWT claims токенов риск-платформы.
// Токены выпускает внешний identity-сервис, ядро только проверяет
// подпись, срок действия и роль.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Auth проверяет Bearer JWT и кладет UserContext в request context.
//
// Ошибки:
//   - нет заголовка / не Bearer - 401
//   - невалидная подпись, истекший токен - 401
//
// Использование:
//
//	api := router.PathPrefix("/api/v1").Subrouter()
//	api.Use(middleware.Auth(cfg.JWTSecret))
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "Bearer token required", http.StatusUnauthorized)
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				if errors.Is(err, jwt.ErrTokenExpired) {
					http.Error(w, "Token expired", http.StatusUnauthorized)
					return
				}
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			user := &models.UserContext{
				ID:       claims.Subject,
				Username: claims.Username,
				Role:     claims.Role,
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole пропускает только пользователей с одной из перечисленных
// ролей. Вешается ПОСЛЕ Auth.
//
//	killSwitch.Use(middleware.RequireRole(models.RoleAdmin))
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}

// UserFromContext извлекает UserContext, положенный Auth middleware
func UserFromContext(ctx context.Context) (*models.UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*models.UserContext)
	return user, ok
}

// ContextWithUser кладет UserContext в context. Для тестов handlers.
func ContextWithUser(ctx context.Context, user *models.UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// DebugAuth защищает debug/pprof endpoints HTTP Basic Auth'ом.
// Пароль хранится только bcrypt-хешем.
//
// Если DEBUG_USERNAME/DEBUG_PASSWORD_HASH не установлены, доступ
// разрешен только в development окружении.
func DebugAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if debugUsername == "" || debugPasswordHash == "" {
			if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Debug endpoints disabled. Set DEBUG_USERNAME and DEBUG_PASSWORD_HASH.", http.StatusForbidden)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// Constant-time сравнение имени против timing attacks,
		// пароль сверяется с bcrypt хешем
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(debugUsername)) == 1
		passMatch := crypto.CheckPasswordMatch(pass, debugPasswordHash)

		if !userMatch || !passMatch {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
