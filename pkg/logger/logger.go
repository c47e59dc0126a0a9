// Package logger builds the zap logger shared by the bot: a colored console
// output plus a rotated JSON file.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger writing to stdout and to dir/sigtrader.json. An empty
// dir disables the file output.
func New(dir string, debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	consoleConfig := zap.NewDevelopmentEncoderConfig()
	consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	consoleConfig.EncodeCaller = zapcore.ShortCallerEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.AddSync(os.Stdout), level),
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("logger: couldn't create %s: %w", dir, err)
		}
		fileConfig := zap.NewProductionEncoderConfig()
		fileConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		file := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(dir, "sigtrader.json"),
			MaxSize:    10, // megabytes
			MaxBackups: 30,
			MaxAge:     30, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), file, zapcore.InfoLevel))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// Func adapts a sugared logger to the log func(v ...interface{}) used
// across the packages. Errors are logged at error level.
func Func(l *zap.SugaredLogger) func(v ...interface{}) {
	return func(v ...interface{}) {
		msg := strings.TrimSpace(fmt.Sprintln(v...))
		for _, x := range v {
			if _, ok := x.(error); ok {
				l.Error(msg)
				return
			}
		}
		l.Info(msg)
	}
}
