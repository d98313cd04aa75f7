package logging

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"
)

// New создает логгер процесса: JSON-строки с заданным уровнем.
func New(level string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(out)
	log.SetLevel(lvl)
	return log, nil
}

// GormLevel переводит уровень logrus в уровень логгера gorm, SQL пишется
// только в режиме debug.
func GormLevel(l logrus.Level) logger.LogLevel {
	switch {
	case l >= logrus.DebugLevel:
		return logger.Info
	case l >= logrus.WarnLevel:
		return logger.Warn
	default:
		return logger.Error
	}
}

// Discard возвращает логгер, который ничего не пишет (для тестов).
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
