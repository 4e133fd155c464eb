package log

import (
	"io"
	"os"

	"github.com/op/go-logging"
)

// Level is the verbosity threshold applied to every module logger.
type Level logging.Level

// Levels accepted by SetLevel, ordered from most to least verbose.
const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

var format = logging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
)

var leveledBackend logging.LeveledBackend

// Logger is the leveled logger handed out to each package.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// New creates a logger for the named module.
//
// Parameters:
//   - module: the name printed in the [module] column of each line
//
// Returns:
//   - Logger: the module logger
func New(module string) Logger {
	return logging.MustGetLogger(module)
}

// SetSink redirects all module loggers to the given writer, keeping the current level.
//
// Parameters:
//   - sink: the destination for formatted log lines
func SetSink(sink io.Writer) {
	level := logging.NOTICE
	if leveledBackend != nil {
		level = leveledBackend.GetLevel("")
	}
	backend := logging.NewLogBackend(sink, "", 0)
	formatted := logging.NewBackendFormatter(backend, format)
	leveledBackend = logging.AddModuleLevel(formatted)
	leveledBackend.SetLevel(level, "")
	logging.SetBackend(leveledBackend)
}

// SetLevel changes the verbosity of every module logger.
//
// Parameters:
//   - level: the minimum level that will be printed
func SetLevel(level Level) {
	var loggerLevel logging.Level

	switch level {
	case Debug:
		loggerLevel = logging.DEBUG
	case Info:
		loggerLevel = logging.INFO
	case Notice:
		loggerLevel = logging.NOTICE
	case Warning:
		loggerLevel = logging.WARNING
	case Error:
		loggerLevel = logging.ERROR
	default:
		loggerLevel = logging.NOTICE
	}

	leveledBackend.SetLevel(loggerLevel, "")
}

// ParseLevel maps a config string onto a Level. Unknown names return Notice and false.
//
// Parameters:
//   - name: one of debug, info, notice, warning, error
//
// Returns:
//   - Level: the parsed level
//   - bool: true if the name was recognised
func ParseLevel(name string) (Level, bool) {
	l, err := logging.LogLevel(name)
	if err != nil {
		return Notice, false
	}
	switch l {
	case logging.DEBUG:
		return Debug, true
	case logging.INFO:
		return Info, true
	case logging.NOTICE:
		return Notice, true
	case logging.WARNING:
		return Warning, true
	case logging.ERROR, logging.CRITICAL:
		return Error, true
	}
	return Notice, false
}

func init() {
	SetSink(os.Stdout)
	SetLevel(Notice)
}
