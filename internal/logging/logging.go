// Package logging provides the logger factory for the module. All
// packages log through dragonboat's logger facade; this installs a
// custom formatter and applies a global level.
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
)

// taskwireLogger implements logger.ILogger with custom formatting.
type taskwireLogger struct {
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *taskwireLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *taskwireLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *taskwireLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *taskwireLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *taskwireLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *taskwireLogger) Panicf(format string, args ...interface{}) {
	if l.level >= logger.CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

func (l *taskwireLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-12s | %s", levelStr, l.name, message)
}

// createLogger is the factory handed to the dragonboat logger package.
func createLogger(pkgName string) logger.ILogger {
	return &taskwireLogger{
		name:   pkgName,
		level:  logger.INFO,
		logger: log.New(os.Stdout, "", log.Ldate|log.Ltime),
	}
}

// ParseLevel converts a level string to logger.LogLevel.
func ParseLevel(level string) (logger.LogLevel, error) {
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
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", level)
	}
}

// loggerNames are the areas this module logs under.
var loggerNames = []string{"comm", "comm/tcp", "comm/inproc", "rpc"}

// Init installs the custom logger factory and applies the given level
// to every logger of this module.
func Init(level string) error {
	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLoggerFactory(createLogger)
	for _, name := range loggerNames {
		logger.GetLogger(name).SetLevel(parsed)
	}
	return nil
}
