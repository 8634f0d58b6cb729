package logger

import (
	"fmt"
	"strings"
)

// Icons for common message types
const (
	IconSuccess = "✅"
	IconRefresh = "🔄"
	IconWarning = "⚠️"
)

// Success logs a success message with a green checkmark
func Success(args ...interface{}) {
	message := fmt.Sprint(args...)
	defaultLogger.Info(IconSuccess + " " + message)
}

// Successf logs a formatted success message
func Successf(format string, args ...interface{}) {
	Success(fmt.Sprintf(format, args...))
}

// Progress logs a progress message with a refresh icon
func Progress(args ...interface{}) {
	message := fmt.Sprint(args...)
	defaultLogger.Info(IconRefresh + " " + message)
}

// Progressf logs a formatted progress message
func Progressf(format string, args ...interface{}) {
	Progress(fmt.Sprintf(format, args...))
}

// LogSection prints a visual section separator with a title
func LogSection(title string) {
	line := strings.Repeat("=", len(title)+8)
	defaultLogger.Info(line)
	defaultLogger.Info("    " + title)
	defaultLogger.Info(line)
}
