package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
)

// Names of the loggers used in this module
const (
	LoggerClient    = "post-client"
	LoggerRPC       = "rpc"
	LoggerTransport = "transport/rpc"
	LoggerCLI       = "cli"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// postLogger implements the ILogger interface with custom formatting
type postLogger struct {
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *postLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *postLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *postLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *postLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *postLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *postLogger) Panicf(format string, args ...interface{}) {
	if l.level >= logger.CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *postLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// LogOutput is where loggers created by CreateLogger write to. Loggers are
// created on their first use, so it must be set before that.
var LogOutput io.Writer = os.Stdout

// CreateLogger implements dragonboats logger.Factory, writing to LogOutput
func CreateLogger(pkgName string) logger.ILogger {
	return NewLogger(pkgName, LogOutput)
}

// NewLogger creates a logger with the custom format writing to w
func NewLogger(pkgName string, w io.Writer) logger.ILogger {
	// Create standard logger with custom flags
	stdLogger := log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds)

	return &postLogger{
		name:   pkgName,
		level:  logger.INFO,
		logger: stdLogger,
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

var factoryOnce sync.Once

// InitLoggers installs the custom logger factory and sets the level of all
// loggers of this module
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	// Set as the global logger factory for Dragonboat (only once per process)
	factoryOnce.Do(func() { logger.SetLoggerFactory(CreateLogger) })

	for _, name := range []string{LoggerClient, LoggerRPC, LoggerTransport, LoggerCLI} {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
