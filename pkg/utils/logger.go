package utils

import (
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig - конфигурация логирования
type LogConfig struct {
	// Level: debug, info, warn, error, fatal
	Level string

	// Format: json или text
	Format string

	// Output: путь к файлу или пусто (stderr)
	Output string

	// Development включает caller и человекочитаемое время
	Development bool
}

// Logger - обертка над zap с доменными конструкторами полей
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

// InitLogger создает логгер по конфигурации.
// Некорректный Output не валит процесс: fallback на stderr.
func InitLogger(cfg LogConfig) *Logger {
	level := parseLevel(cfg.Level)

	var encoderCfg zapcore.EncoderConfig
	if cfg.Development {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderCfg = zap.NewProductionEncoderConfig()
		encoderCfg.TimeKey = "timestamp"
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "text" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	var sink zapcore.WriteSyncer = zapcore.AddSync(os.Stderr)
	if cfg.Output != "" {
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			sink = zapcore.AddSync(f)
		}
	}

	core := zapcore.NewCore(encoder, sink, level)

	var opts []zap.Option
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddCaller())
	}

	zl := zap.New(core, opts...)
	return &Logger{
		Logger: zl,
		sugar:  zl.Sugar(),
	}
}

// parseLevel преобразует строку в уровень zap. Неизвестное = info.
func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// ============================================================
// Глобальный логгер
// ============================================================

var (
	globalMu     sync.Mutex
	globalLogger *Logger
)

// InitGlobalLogger инициализирует и устанавливает глобальный логгер
func InitGlobalLogger(cfg LogConfig) *Logger {
	logger := InitLogger(cfg)
	SetGlobalLogger(logger)
	return logger
}

// SetGlobalLogger устанавливает глобальный логгер
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// GetGlobalLogger возвращает глобальный логгер, лениво создавая дефолтный
func GetGlobalLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{})
	}
	return globalLogger
}

// L - короткий алиас для GetGlobalLogger
func L() *Logger {
	return GetGlobalLogger()
}

// ============================================================
// Методы Logger
// ============================================================

// With возвращает дочерний логгер с дополнительными полями
func (l *Logger) With(fields ...zap.Field) *Logger {
	zl := l.Logger.With(fields...)
	return &Logger{Logger: zl, sugar: zl.Sugar()}
}

// Sugar возвращает sugared-вариант для printf-style логирования
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// WithComponent помечает логи именем компонента
func (l *Logger) WithComponent(name string) *Logger {
	return l.With(Component(name))
}

// WithMandate помечает логи кодом мандата
func (l *Logger) WithMandate(code string) *Logger {
	return l.With(MandateCode(code))
}

// WithActor помечает логи именем вызывающего
func (l *Logger) WithActor(actor string) *Logger {
	return l.With(Actor(actor))
}

// WithRequestID помечает логи идентификатором HTTP запроса
func (l *Logger) WithRequestID(id string) *Logger {
	return l.With(RequestID(id))
}

// ============================================================
// Глобальные функции логирования
// ============================================================

func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { L().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { L().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { L().Fatal(msg, fields...) }

func Debugf(template string, args ...interface{}) { L().sugar.Debugf(template, args...) }
func Infof(template string, args ...interface{})  { L().sugar.Infof(template, args...) }
func Warnf(template string, args ...interface{})  { L().sugar.Warnf(template, args...) }
func Errorf(template string, args ...interface{}) { L().sugar.Errorf(template, args...) }

// fieldsToInterface разворачивает zap.Field в пары ключ-значение
// для передачи в sugared-методы
func fieldsToInterface(fields []zap.Field) []interface{} {
	result := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		result = append(result, f.Key, f.Interface)
	}
	return result
}

// ============================================================
// Доменные конструкторы полей
// ============================================================

func MandateCode(code string) zap.Field  { return zap.String("mandate_code", code) }
func AlertID(id string) zap.Field        { return zap.String("alert_id", id) }
func EventID(id string) zap.Field        { return zap.String("event_id", id) }
func Severity(s string) zap.Field        { return zap.String("severity", s) }
func Outcome(o string) zap.Field         { return zap.String("outcome", o) }
func Actor(a string) zap.Field           { return zap.String("actor", a) }
func Reason(r string) zap.Field          { return zap.String("reason", r) }
func ConstraintType(t string) zap.Field  { return zap.String("constraint_type", t) }
func Value(v float64) zap.Field          { return zap.Float64("value", v) }
func Limit(v float64) zap.Field          { return zap.Float64("limit", v) }
func State(s string) zap.Field           { return zap.String("state", s) }
func LatencyMs(ms float64) zap.Field     { return zap.Float64("latency_ms", ms) }
func RequestID(id string) zap.Field      { return zap.String("request_id", id) }
func UserID(id string) zap.Field         { return zap.String("user_id", id) }
func Component(name string) zap.Field    { return zap.String("component", name) }
func Operation(op string) zap.Field      { return zap.String("operation", op) }
func RemoteAddr(addr string) zap.Field   { return zap.String("remote_addr", addr) }
func HTTPStatus(code int) zap.Field      { return zap.Int("status", code) }
func HTTPMethod(method string) zap.Field { return zap.String("method", method) }
func HTTPPath(path string) zap.Field     { return zap.String("path", path) }

// ============================================================
// Переэкспорт стандартных конструкторов zap
// ============================================================

func String(key, value string) zap.Field          { return zap.String(key, value) }
func Int(key string, value int) zap.Field         { return zap.Int(key, value) }
func Int64(key string, value int64) zap.Field     { return zap.Int64(key, value) }
func Float64(key string, value float64) zap.Field { return zap.Float64(key, value) }
func Bool(key string, value bool) zap.Field       { return zap.Bool(key, value) }
func Err(err error) zap.Field                     { return zap.Error(err) }
func Any(key string, value interface{}) zap.Field { return zap.Any(key, value) }
func Duration(key string, d time.Duration) zap.Field {
	return zap.Duration(key, d)
}
