package grass

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (lv Level) String() string {
	switch lv {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return fmt.Sprintf("Level(%d)", int(lv))
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// levelState is shared by a logger and the loggers Named from it, so
// SetLevel on any of them applies to all.
type levelState struct {
	mu    sync.RWMutex
	level Level
}

// DefaultLogger writes debug and info lines to one writer and warnings and
// errors to another, as "[prefix] LEVEL: message".
type DefaultLogger struct {
	state  *levelState
	prefix string
	out    *log.Logger
	err    *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return NewLoggerTo(os.Stdout, os.Stderr, prefix, debug)
}

func NewLoggerTo(out, errOut io.Writer, prefix string, debug bool) *DefaultLogger {
	level := LevelInfo
	if debug {
		level = LevelDebug
	}
	flags := log.LstdFlags | log.Lmicroseconds
	return &DefaultLogger{
		state:  &levelState{level: level},
		prefix: prefix,
		out:    log.New(out, "", flags),
		err:    log.New(errOut, "", flags),
	}
}

// Named returns a logger for a subsystem. It writes to the same outputs
// with the prefix "parent/name".
func (l *DefaultLogger) Named(name string) *DefaultLogger {
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "/" + name
	}
	return &DefaultLogger{state: l.state, prefix: prefix, out: l.out, err: l.err}
}

func (l *DefaultLogger) Level() Level {
	l.state.mu.RLock()
	defer l.state.mu.RUnlock()
	return l.state.level
}

func (l *DefaultLogger) SetLevel(level Level) {
	l.state.mu.Lock()
	l.state.level = level
	l.state.mu.Unlock()
}

func (l *DefaultLogger) DebugEnabled() bool {
	return l.Level() <= LevelDebug
}

// SetDebug switches between debug and info; warn and error levels are
// left alone when disabling.
func (l *DefaultLogger) SetDebug(enabled bool) {
	switch {
	case enabled:
		l.SetLevel(LevelDebug)
	case l.Level() == LevelDebug:
		l.SetLevel(LevelInfo)
	}
}

func (l *DefaultLogger) logf(level Level, format string, args ...any) {
	if level < l.Level() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		msg = fmt.Sprintf("[%s] %s: %s", l.prefix, level, msg)
	} else {
		msg = fmt.Sprintf("%s: %s", level, msg)
	}
	if level >= LevelWarn {
		l.err.Print(msg)
		return
	}
	l.out.Print(msg)
}

func (l *DefaultLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *DefaultLogger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *DefaultLogger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *DefaultLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

// LoggingModule installs a DefaultLogger as a resource. Debug turns on
// debug output; otherwise Level applies, with info as the floor.
type LoggingModule struct {
	Prefix string
	Debug  bool
	Level  Level
}

func (m LoggingModule) Install(app *App, cmd *Commands) {
	logger := NewDefaultLogger(m.Prefix, m.Debug)
	if !m.Debug {
		logger.SetLevel(max(m.Level, LevelInfo))
	}
	app.addResources(logger)
}

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) SetDebug(bool)         {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Logger returns the first Logger resource, or a no-op logger. It never
// returns nil.
func (app *App) Logger() Logger {
	if app == nil {
		return NewNopLogger()
	}
	for _, r := range app.resources {
		if l, ok := r.(Logger); ok {
			return l
		}
	}
	return NewNopLogger()
}

// namedLogger gives a subsystem its own prefix when the app logger
// supports it.
func namedLogger(app *App, name string) Logger {
	logger := app.Logger()
	if dl, ok := logger.(*DefaultLogger); ok {
		return dl.Named(name)
	}
	return logger
}
