package api

import (
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"riskengine/internal/api/handlers"
	"riskengine/internal/api/middleware"
	"riskengine/internal/models"
	"riskengine/internal/service"
	"riskengine/internal/websocket"
	"riskengine/pkg/ratelimit"
	"riskengine/pkg/utils"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	RiskService       service.RiskServiceInterface
	AlertService      service.AlertServiceInterface
	KillSwitchService service.KillSwitchServiceInterface
	Hub               *websocket.Hub
	Logger            *utils.Logger

	// JWTSecret для проверки Bearer токенов
	JWTSecret string

	// KillSwitchLimiter защищает kill switch endpoint от скриптовых
	// штормов. nil = без лимита (тесты).
	KillSwitchLimiter *ratelimit.RateLimiter
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/risk/
//
//	├── GET  /snapshot - агрегированный обзор риска
//	├── GET  /mandates - список мандатов
//	├── GET  /mandates/{code} - один мандат
//	├── PATCH /mandates/{code}/limits - правка лимитов (ADMIN, QUANT)
//	├── PATCH /mandates/{code}/active - включение/выключение (ADMIN, QUANT)
//	├── GET  /alerts - список оповещений
//	├── POST /alerts/{id}/acknowledge - подтверждение
//	├── GET  /kill-switch - состояние и история
//	└── POST /kill-switch - запуск (ADMIN, rate limited)
//
// /ws/risk - WebSocket канал risk_alerts
// /health - liveness probe (без auth)
// /metrics - Prometheus метрики (без auth)
//
// Middleware применяется в порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. Auth (только /api/v1)
// 5. RequireRole (только мутирующие маршруты)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	var log *utils.Logger
	if deps != nil {
		log = deps.Logger
	}

	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logging(log))
	router.Use(middleware.CORS)

	if deps == nil {
		deps = &Dependencies{}
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Auth(deps.JWTSecret))

	if deps.RiskService != nil {
		riskHandler := handlers.NewRiskHandler(deps.RiskService)
		api.HandleFunc("/risk/snapshot", riskHandler.GetSnapshot).Methods("GET")
		api.HandleFunc("/risk/mandates", riskHandler.GetMandates).Methods("GET")
		api.HandleFunc("/risk/mandates/{code}", riskHandler.GetMandate).Methods("GET")

		// Правка мандатов доступна ADMIN и QUANT
		edit := api.PathPrefix("/risk/mandates").Subrouter()
		edit.Use(middleware.RequireRole(models.RoleAdmin, models.RoleQuant))
		edit.HandleFunc("/{code}/limits", riskHandler.UpdateLimits).Methods("PATCH")
		edit.HandleFunc("/{code}/active", riskHandler.SetActive).Methods("PATCH")
	}

	if deps.AlertService != nil {
		alertHandler := handlers.NewAlertHandler(deps.AlertService)
		api.HandleFunc("/risk/alerts", alertHandler.GetAlerts).Methods("GET")
		api.HandleFunc("/risk/alerts/{id}/acknowledge", alertHandler.Acknowledge).Methods("POST")
	}

	if deps.KillSwitchService != nil {
		killSwitchHandler := handlers.NewKillSwitchHandler(deps.KillSwitchService)
		api.HandleFunc("/risk/kill-switch", killSwitchHandler.GetStatus).Methods("GET")

		// Запуск: роль проверяется и здесь, и в оркестраторе
		invoke := api.PathPrefix("/risk/kill-switch").Subrouter()
		invoke.Use(middleware.RequireRole(models.RoleAdmin))
		if deps.KillSwitchLimiter != nil {
			invoke.Use(deps.KillSwitchLimiter.Middleware)
		}
		invoke.HandleFunc("", killSwitchHandler.Execute).Methods("POST")
	}

	// WebSocket канал risk_alerts
	if deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/risk", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	// Debug endpoints (pprof) за Basic Auth
	debug := router.PathPrefix("/debug/pprof").Subrouter()
	debug.Use(middleware.DebugAuth)
	debug.HandleFunc("", pprof.Index)
	debug.HandleFunc("/", pprof.Index)
	debug.HandleFunc("/cmdline", pprof.Cmdline)
	debug.HandleFunc("/profile", pprof.Profile)
	debug.HandleFunc("/symbol", pprof.Symbol)
	debug.HandleFunc("/trace", pprof.Trace)
	debug.PathPrefix("/").HandlerFunc(pprof.Index)

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}
