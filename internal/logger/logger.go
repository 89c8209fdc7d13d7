package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
	Logger.SetOutput(os.Stdout)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Default level
	Logger.SetLevel(logrus.InfoLevel)

	// Override from env, e.g., LOG_LEVEL=debug
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		if parsedLevel, err := logrus.ParseLevel(strings.ToLower(level)); err == nil {
			Logger.SetLevel(parsedLevel)
		}
	}
}

// WithComponent adds a component field to the logger
func WithComponent(component string) *logrus.Entry {
	return Logger.WithField("component", component)
}

// SetLevel parses level and applies it, keeping info on a bad value.
// It returns the level actually in effect.
func SetLevel(level string) (logrus.Level, error) {
	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		Logger.SetLevel(logrus.InfoLevel)
		return logrus.InfoLevel, err
	}
	Logger.SetLevel(parsed)
	return parsed, nil
}

// EnableFileOutput mirrors log output into a size-rotated file.
// An empty fileName leaves the logger writing to stdout only.
func EnableFileOutput(fileName string) io.Closer {
	if fileName == "" {
		return nopCloser{}
	}
	if !strings.HasSuffix(fileName, ".log") {
		fileName += ".log"
	}

	rotating := &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		Compress:   true,
	}
	Logger.SetOutput(io.MultiWriter(os.Stdout, rotating))
	return rotating
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
