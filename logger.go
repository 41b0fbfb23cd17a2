package auth

import (
	"go.uber.org/zap"
)

// ZapLogger adapts a zap logger to Logger and LoggerProvider.
type ZapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger wraps l. A nil logger yields a no-op logger.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{s: l.Sugar()}
}

func (z *ZapLogger) Debug(msg string, args ...any) { z.s.Debugw(msg, args...) }
func (z *ZapLogger) Info(msg string, args ...any)  { z.s.Infow(msg, args...) }
func (z *ZapLogger) Warn(msg string, args ...any)  { z.s.Warnw(msg, args...) }
func (z *ZapLogger) Error(msg string, args ...any) { z.s.Errorw(msg, args...) }

// GetLogger returns a child logger named after the component.
func (z *ZapLogger) GetLogger(name string) Logger {
	return &ZapLogger{s: z.s.Named(name)}
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.s.Sync()
}

// defLogger forwards to the zap global logger at call time so
// zap.ReplaceGlobals takes effect for components built earlier.
type defLogger struct{}

func (defLogger) Debug(msg string, args ...any) { zap.S().Named("auth").Debugw(msg, args...) }
func (defLogger) Info(msg string, args ...any)  { zap.S().Named("auth").Infow(msg, args...) }
func (defLogger) Warn(msg string, args ...any)  { zap.S().Named("auth").Warnw(msg, args...) }
func (defLogger) Error(msg string, args ...any) { zap.S().Named("auth").Errorw(msg, args...) }

func resolveLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
