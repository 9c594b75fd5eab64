package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger define a interface para logging estruturado.
// A aplicação (Handler, Service, Repository) deve depender apenas desta interface.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error)
	Fatal(msg string, err error)
}

// LogrusLogger é a implementação concreta da interface Logger, com saída JSON via logrus.
type LogrusLogger struct {
	log *logrus.Logger
}

// NewLogger cria o Logger padrão (JSON no stdout).
// Esta função é chamada no main.go.
func NewLogger(level string) Logger {
	return NewWithOutput(level, os.Stdout)
}

// NewWithOutput cria um Logger que escreve no writer informado.
func NewWithOutput(level string, out io.Writer) Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "message",
		},
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel // Nível desconhecido: padrão info
	}
	l.SetLevel(lvl)

	return &LogrusLogger{log: l}
}

func (l *LogrusLogger) Debug(msg string, fields map[string]interface{}) {
	l.log.WithFields(fields).Debug(msg)
}

func (l *LogrusLogger) Info(msg string, fields map[string]interface{}) {
	l.log.WithFields(fields).Info(msg)
}

func (l *LogrusLogger) Warn(msg string, fields map[string]interface{}) {
	l.log.WithFields(fields).Warn(msg)
}

func (l *LogrusLogger) Error(msg string, err error) {
	l.log.WithError(err).Error(msg)
}

// Fatal registra o erro e encerra o processo.
func (l *LogrusLogger) Fatal(msg string, err error) {
	l.log.WithError(err).Fatal(msg)
}
