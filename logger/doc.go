// Package logger provides structured logging for containerkit built on
// zerolog. It supports json and console formats, component-tagged child
// loggers, and a global logger with package-level convenience functions.
package logger
