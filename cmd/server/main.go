package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"riskengine/internal/api"
	"riskengine/internal/config"
	"riskengine/internal/gateway"
	"riskengine/internal/repository"
	"riskengine/internal/risk"
	"riskengine/internal/service"
	"riskengine/internal/websocket"
	"riskengine/pkg/ratelimit"
	"riskengine/pkg/utils"
)

func main() {
	// .env опционален: в контейнере конфигурация приходит из окружения
	_ = godotenv.Load()

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера
	log := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer log.Sync()

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", utils.Err(err))
	}
	defer db.Close()

	log.Info("Connected to database", utils.String("dsn", cfg.Database.DSNWithoutPassword()))

	// Инициализация репозиториев
	mandateRepo := repository.NewMandateRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	killSwitchRepo := repository.NewKillSwitchRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Аудит пишется асинхронно, Record никогда не блокирует вызывающего
	auditor := risk.NewAuditor(auditRepo, log, cfg.Risk.AuditQueueSize)
	auditor.Start(context.Background())

	// WebSocket hub для канала risk_alerts
	hub := websocket.NewHub(log)
	go hub.Run()

	// Клиенты OMS: подписанный шлюз ордеров и провайдер метрик
	orderGateway := gateway.NewClient(cfg.Risk.GatewayBaseURL, cfg.Security.GatewaySigningKey)
	provider := gateway.NewProvider(cfg.Risk.ProviderBaseURL)

	// Оркестратор kill switch восстанавливает флаг при старте
	orchestrator := risk.NewOrchestrator(orderGateway, killSwitchRepo, auditor, hub, log, cfg.Risk.GatewayTimeout)
	if err := orchestrator.Restore(); err != nil {
		log.Fatal("Failed to restore kill switch state", utils.Err(err))
	}

	// Диспетчер оповещений и цикл оценки мандатов
	dispatcher := risk.NewDispatcher(alertRepo, auditor, hub, log)
	monitor := risk.NewMonitor(provider, mandateRepo, snapshotRepo, dispatcher, log,
		cfg.Risk.EvalInterval, cfg.Risk.SnapshotRetention)

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	monitor.Start(monitorCtx)

	// Инициализация сервисов
	riskService := service.NewRiskService(mandateRepo, snapshotRepo, alertRepo, monitor, orchestrator, auditor)
	alertService := service.NewAlertService(alertRepo, dispatcher)
	killSwitchService := service.NewKillSwitchService(orchestrator, killSwitchRepo)

	// Настройка зависимостей для API
	deps := &api.Dependencies{
		RiskService:       riskService,
		AlertService:      alertService,
		KillSwitchService: killSwitchService,
		Hub:               hub,
		Logger:            log,
		JWTSecret:         cfg.Security.JWTSecret,
		KillSwitchLimiter: ratelimit.NewRateLimiter(cfg.Risk.KillSwitchRate, cfg.Risk.KillSwitchBurst),
	}

	// Настройка HTTP роутера
	router := api.SetupRoutes(deps)

	// HTTP сервер. WriteTimeout покрывает синхронный kill switch вызов.
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		log.Info("Starting server", utils.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", utils.Err(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	// Порядок остановки: новые запросы, цикл оценки, аудит, соединения
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", utils.Err(err))
	}

	stopMonitor()
	monitor.Stop()
	auditor.Stop()
	gateway.SharedHTTPClient().Close()

	log.Info("Server exited")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
