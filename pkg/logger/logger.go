package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	base    *slog.Logger
	logFile *lumberjack.Logger
)

// InitLogger initializes the logger with console output and, when filename
// is set, a size-rotated log file.
func InitLogger(filename string, level string) error {
	var out io.Writer = os.Stdout
	if filename != "" {
		logFile = &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     14,
		}
		out = io.MultiWriter(os.Stdout, logFile)
	}

	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}

	base = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(base)
	return nil
}

func Close() {
	if logFile != nil {
		logFile.Close()
	}
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

func L() *slog.Logger {
	if base == nil {
		return slog.Default()
	}
	return base
}

// With returns a structured logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

func Info(format string, v ...interface{}) {
	L().Info(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...interface{}) {
	Info(format, v...)
}

func Debugf(format string, v ...interface{}) {
	L().Debug(fmt.Sprintf(format, v...))
}

func Error(format string, v ...interface{}) {
	L().Error(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...interface{}) {
	Error(format, v...)
}

func Warn(format string, v ...interface{}) {
	L().Warn(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...interface{}) {
	Warn(format, v...)
}
