package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how much the service logs.
type Options struct {
	AppName    string
	Level      string
	FilePath   string // empty disables the rotating file
	MaxSizeMB  int
	MaxAgeDays int
}

func buildLumberjackSyncer(opts Options) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   opts.FilePath,
		MaxSize:    opts.MaxSizeMB, // megabytes before the file is rotated
		MaxBackups: 7,
		MaxAge:     opts.MaxAgeDays, // days
		Compress:   false,
	}
}

// New builds a JSON logger writing to stdout and, when configured, to a
// rotating file. Every entry carries the service name.
func New(opts Options) *zap.Logger {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		_ = level.UnmarshalText([]byte(opts.Level))
	}

	syncers := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if opts.FilePath != "" {
		syncers = append(syncers, zapcore.AddSync(buildLumberjackSyncer(opts)))
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.NewMultiWriteSyncer(syncers...), level)

	return zap.New(core).With(zap.String("service", opts.AppName))
}
