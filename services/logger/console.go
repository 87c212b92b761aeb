package logsvc

import (
	"io"
	"log"
	"strings"
	"sync"

	"github.com/trezcool/ieptracker/core"
)

// Entry is a message recorded by a ConsoleLogger.
type Entry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// ConsoleLogger prints to a standard logger and keeps the entries it received, for tests.
type ConsoleLogger struct {
	std     *log.Logger
	minimum int

	mu      sync.Mutex
	entries []Entry
}

var _ core.Logger = (*ConsoleLogger)(nil)

var levels = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3, "FATAL": 4}

// NewConsoleLogger prints entries of at least the given level ("debug" when empty).
func NewConsoleLogger(std *log.Logger, level string) *ConsoleLogger {
	return &ConsoleLogger{std: std, minimum: levels[strings.ToUpper(level)]}
}

// NewSilentLogger records entries without printing them.
func NewSilentLogger() *ConsoleLogger {
	return NewConsoleLogger(log.New(io.Discard, "", 0), "")
}

func (l *ConsoleLogger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	l.entries = append(l.entries, Entry{Level: level, Msg: msg, Args: args})
	l.mu.Unlock()

	if levels[level] < l.minimum {
		return
	}
	l.std.Printf("[%s] %s", level, msg)
	for _, arg := range args {
		l.std.Printf("\t%+v", arg)
	}
}

// Entries returns the entries logged so far, optionally only those of level.
func (l *ConsoleLogger) Entries(level ...string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if len(level) == 0 || strings.EqualFold(e.Level, level[0]) {
			entries = append(entries, e)
		}
	}
	return entries
}

func (l *ConsoleLogger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *ConsoleLogger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *ConsoleLogger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *ConsoleLogger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }

func (l *ConsoleLogger) Fatal(msg string, args ...interface{}) {
	l.log("FATAL", msg, args)
	l.std.Fatal(msg)
}
