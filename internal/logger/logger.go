// Package logger contains the Logger type used across the agent.  The
// production implementation is backed by zerolog.
package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// Logger matches the logging interface exposed in the public package.
type Logger interface {
	Error(msg string, context map[string]interface{})
	Warn(msg string, context map[string]interface{})
	Info(msg string, context map[string]interface{})
	Debug(msg string, context map[string]interface{})
	DebugEnabled() bool
}

// ShimLogger does no logging, but it implements the Logger interface.
type ShimLogger struct {
	// IsDebugEnabled is useful as it allows DebugEnabled code paths to be
	// tested.
	IsDebugEnabled bool
}

// Error allows ShimLogger to implement Logger.
func (s ShimLogger) Error(string, map[string]interface{}) {}

// Warn allows ShimLogger to implement Logger.
func (s ShimLogger) Warn(string, map[string]interface{}) {}

// Info allows ShimLogger to implement Logger.
func (s ShimLogger) Info(string, map[string]interface{}) {}

// Debug allows ShimLogger to implement Logger.
func (s ShimLogger) Debug(string, map[string]interface{}) {}

// DebugEnabled allows ShimLogger to implement Logger.
func (s ShimLogger) DebugEnabled() bool { return s.IsDebugEnabled }

type zerologLogger struct {
	doDebug bool
	zl      zerolog.Logger
}

// New creates a zerolog backed Logger.
func New(w io.Writer, doDebug bool) Logger {
	level := zerolog.InfoLevel
	if doDebug {
		level = zerolog.DebugLevel
	}
	return &zerologLogger{
		doDebug: doDebug,
		zl:      zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

func (l *zerologLogger) Error(msg string, ctx map[string]interface{}) {
	l.zl.Error().Fields(ctx).Msg(msg)
}

func (l *zerologLogger) Warn(msg string, ctx map[string]interface{}) {
	l.zl.Warn().Fields(ctx).Msg(msg)
}

func (l *zerologLogger) Info(msg string, ctx map[string]interface{}) {
	l.zl.Info().Fields(ctx).Msg(msg)
}

func (l *zerologLogger) Debug(msg string, ctx map[string]interface{}) {
	l.zl.Debug().Fields(ctx).Msg(msg)
}

func (l *zerologLogger) DebugEnabled() bool { return l.doDebug }
