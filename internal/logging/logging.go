package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"unletterbox/internal/config"
)

const logFile = "unletterbox.log"

// Logger is a leveled wrapper around the standard logger. Lines are written as
// "[LEVEL] msg key value ..." to stdout and, when configured, a rotated file.
type Logger struct {
	std     *log.Logger
	verbose bool

	mu   sync.Mutex
	file *os.File
}

// New creates a logger from cfg. A log directory that cannot be prepared is
// reported on stderr and logging falls back to stdout only.
func New(cfg config.LoggingCfg) *Logger {
	l := &Logger{verbose: cfg.Verbose}
	if cfg.Dir == "" {
		l.std = log.New(os.Stdout, "", log.LstdFlags)
		return l
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		log.Printf("failed to ensure log directory %s: %v", cfg.Dir, err)
		l.std = log.New(os.Stdout, "", log.LstdFlags)
		return l
	}

	filePath := filepath.Join(cfg.Dir, logFile)

	rotateDays := 30
	if cfg.RotationDays > 0 {
		rotateDays = cfg.RotationDays
	}
	rotateLogsIfNeeded(filePath, rotateDays)

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("failed to open log file %s: %v", filePath, err)
		l.std = log.New(os.Stdout, "", log.LstdFlags)
		return l
	}
	l.file = f
	l.std = log.New(io.MultiWriter(os.Stdout, f), "", log.LstdFlags|log.Lmicroseconds)
	return l
}

// NewWriter creates a logger writing only to w.
func NewWriter(w io.Writer, verbose bool) *Logger {
	return &Logger{std: log.New(w, "", 0), verbose: verbose}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWriter(io.Discard, false)
}

// Std exposes the underlying standard logger for packages that take one.
func (l *Logger) Std() *log.Logger {
	return l.std
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.logWithLevel("DEBUG", msg, args...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.logWithLevel("WARN", msg, args...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *Logger) logWithLevel(level, msg string, args ...interface{}) {
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.std.Println(parts...)
}

// rotateLogsIfNeeded rotates the log file once it is older than rotationDays
func rotateLogsIfNeeded(logPath string, rotationDays int) {
	info, err := os.Stat(logPath)
	if err != nil {
		return
	}

	cutoffTime := time.Now().AddDate(0, 0, -rotationDays)
	if info.ModTime().Before(cutoffTime) {
		timestamp := info.ModTime().Format("20060102-150405")
		rotatedPath := logPath + "." + timestamp

		if err := os.Rename(logPath, rotatedPath); err != nil {
			log.Printf("failed to rotate log file: %v", err)
			return
		}

		cleanupOldLogs(logPath, rotationDays)
	}
}

// cleanupOldLogs removes rotated log files older than rotationDays
func cleanupOldLogs(logPath string, rotationDays int) {
	logDir := filepath.Dir(logPath)
	baseName := filepath.Base(logPath)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	cutoffTime := time.Now().AddDate(0, 0, -rotationDays)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasPrefix(name, baseName+".") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoffTime) {
			fullPath := filepath.Join(logDir, name)
			if err := os.Remove(fullPath); err != nil {
				log.Printf("failed to remove old log file %s: %v", fullPath, err)
			}
		}
	}
}
