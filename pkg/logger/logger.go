// Package logger содержит настройку логгера.
package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config представляет настройки логгера
type Config struct {
	Level string
	// Path - файл с ротацией; пустой путь отключает файловый вывод
	Path       string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
	// Stderr направляет консольный вывод в stderr, оставляя stdout для результатов команды
	Stderr bool
}

// DefaultConfig возвращает настройки из LOG_LEVEL и LOG_PATH
func DefaultConfig() Config {
	path := os.Getenv("LOG_PATH")
	if path == "" {
		path = "logs/restoharvest.log"
	}
	return Config{
		Level:      os.Getenv("LOG_LEVEL"),
		Path:       path,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
	}
}

// New создает логгер с JSON выводом в stdout и в файл с ротацией
func New(config Config) *zap.Logger {
	level := ParseLevel(config.Level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	console := os.Stdout
	if config.Stderr {
		console = os.Stderr
	}

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(console),
			level,
		),
	}

	if config.Path != "" {
		if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err == nil {
			cores = append(cores, zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(&lumberjack.Logger{
					Filename:   config.Path,
					MaxSize:    config.MaxSize,
					MaxBackups: config.MaxBackups,
					MaxAge:     config.MaxAge,
					Compress:   true,
				}),
				level,
			))
		}
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// ParseLevel переводит строку уровня в zapcore.Level, по умолчанию info
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
