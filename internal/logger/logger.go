package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// Level orders the message kinds a ConsoleLogger can emit.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

// Logger is the printf-style console logger used throughout crudx.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	SetOutput(out, errOut io.Writer)
	SetLevel(level Level)
	Level() Level
}

// ConsoleLogger writes one line per message. Debug lines are timestamped,
// errors go to errOut, and colors are used only when stdout is a terminal.
type ConsoleLogger struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	level  Level
	color  bool
}

type style struct {
	icon, plain, color string
}

var (
	debugStyle   = style{"🔍", "DEBUG", "\033[90m"}
	infoStyle    = style{"ℹ️", "INFO", "\033[34m"}
	successStyle = style{"✓", "SUCCESS", "\033[32m"}
	warnStyle    = style{"⚠", "WARN", "\033[33m"}
	errorStyle   = style{"✗", "ERROR", "\033[31m"}
)

const resetColor = "\033[0m"

var (
	instance *ConsoleLogger
	once     sync.Once
)

// New returns a ConsoleLogger at LevelInfo writing to out and errOut.
func New(out, errOut io.Writer) *ConsoleLogger {
	return &ConsoleLogger{out: out, errOut: errOut, level: LevelInfo}
}

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	once.Do(func() {
		instance = New(os.Stdout, os.Stderr)
		instance.color = term.IsTerminal(int(os.Stdout.Fd()))
	})
	return instance
}

// SetVerbose switches the global logger to debug output.
func SetVerbose(verbose bool) {
	if verbose {
		GetLogger().SetLevel(LevelDebug)
	} else if GetLogger().Level() == LevelDebug {
		GetLogger().SetLevel(LevelInfo)
	}
}

// SetQuiet restricts the global logger to errors.
func SetQuiet(quiet bool) {
	if quiet {
		GetLogger().SetLevel(LevelError)
	} else if GetLogger().Level() == LevelError {
		GetLogger().SetLevel(LevelInfo)
	}
}

func IsVerbose() bool { return GetLogger().Level() == LevelDebug }
func IsQuiet() bool   { return GetLogger().Level() == LevelError }

func Debug(format string, args ...any)   { GetLogger().Debug(format, args...) }
func Info(format string, args ...any)    { GetLogger().Info(format, args...) }
func Success(format string, args ...any) { GetLogger().Success(format, args...) }
func Warn(format string, args ...any)    { GetLogger().Warn(format, args...) }
func Error(format string, args ...any)   { GetLogger().Error(format, args...) }

func (l *ConsoleLogger) SetOutput(out, errOut io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = out
	l.errOut = errOut
}

func (l *ConsoleLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *ConsoleLogger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *ConsoleLogger) Debug(format string, args ...any) {
	l.write(LevelDebug, false, debugStyle, format, args...)
}

func (l *ConsoleLogger) Info(format string, args ...any) {
	l.write(LevelInfo, false, infoStyle, format, args...)
}

func (l *ConsoleLogger) Success(format string, args ...any) {
	l.write(LevelInfo, false, successStyle, format, args...)
}

func (l *ConsoleLogger) Warn(format string, args ...any) {
	l.write(LevelInfo, false, warnStyle, format, args...)
}

func (l *ConsoleLogger) Error(format string, args ...any) {
	l.write(LevelError, true, errorStyle, format, args...)
}

func (l *ConsoleLogger) write(level Level, toErr bool, s style, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	out := l.out
	if toErr {
		out = l.errOut
	}

	prefix := s.plain
	if l.color {
		prefix = s.icon
	}
	if level == LevelDebug {
		prefix = fmt.Sprintf("[%s] %s", time.Now().Format("2006-01-02 15:04:05.000"), prefix)
	}

	msg := fmt.Sprintf(format, args...)
	if l.color {
		fmt.Fprintf(out, "%s%s %s%s\n", s.color, prefix, msg, resetColor)
	} else {
		fmt.Fprintf(out, "%s %s\n", prefix, msg)
	}
}
