package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

var levelColors = map[LogLevel]*color.Color{
	DEBUG: color.New(color.FgHiBlack),
	INFO:  color.New(color.FgBlue),
	WARN:  color.New(color.FgYellow),
	ERROR: color.New(color.FgRed),
	FATAL: color.New(color.FgMagenta),
}

var timestampColor = color.New(color.FgHiBlack)

type MultiWriter struct {
	writers []io.Writer
}

func NewMultiWriter(writers ...io.Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (mw *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range mw.writers {
		if _, err := w.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (mw *MultiWriter) Add(writer io.Writer) {
	mw.writers = append(mw.writers, writer)
}

type ColoredLogger struct {
	verbose bool
	mu      sync.RWMutex
	writers map[LogLevel]io.Writer
	plain   map[LogLevel][]io.Writer
	loggers map[LogLevel]*log.Logger
	exit    func(code int)
}

var globalLogger *ColoredLogger

func init() {
	globalLogger = newColoredLogger()
}

func newColoredLogger() *ColoredLogger {
	cl := &ColoredLogger{
		writers: make(map[LogLevel]io.Writer),
		plain:   make(map[LogLevel][]io.Writer),
		loggers: make(map[LogLevel]*log.Logger),
		exit:    os.Exit,
	}

	for level := DEBUG; level <= FATAL; level++ {
		cl.writers[level] = os.Stdout
		cl.loggers[level] = log.New(os.Stdout, "", 0)
	}
	return cl
}

func SetVerbose(verbose bool) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.verbose = verbose
}

func IsVerbose() bool {
	globalLogger.mu.RLock()
	defer globalLogger.mu.RUnlock()
	return globalLogger.verbose
}

// SetColor forces colored output on or off for every writer.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

func SetWriter(level LogLevel, writer io.Writer) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.writers[level] = writer
	globalLogger.loggers[level] = log.New(writer, "", 0)
}

func SetWriterForAll(writer io.Writer) {
	for level := DEBUG; level <= FATAL; level++ {
		SetWriter(level, writer)
	}
}

func AddWriter(level LogLevel, writer io.Writer) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()

	currentWriter := globalLogger.writers[level]

	if mw, ok := currentWriter.(*MultiWriter); ok {
		mw.Add(writer)
	} else {
		multiWriter := NewMultiWriter(currentWriter, writer)
		globalLogger.writers[level] = multiWriter
		globalLogger.loggers[level] = log.New(multiWriter, "", 0)
	}
}

func AddWriterForAll(writer io.Writer) {
	for level := DEBUG; level <= FATAL; level++ {
		AddWriter(level, writer)
	}
}

// AddPlainWriterForAll tees every level to writer without color codes.
// Used for --logfile.
func AddPlainWriterForAll(writer io.Writer) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	for level := DEBUG; level <= FATAL; level++ {
		globalLogger.plain[level] = append(globalLogger.plain[level], writer)
	}
}

func SetErrorWriter() {
	SetWriter(ERROR, os.Stderr)
	SetWriter(FATAL, os.Stderr)
}

func (cl *ColoredLogger) formatMessage(level LogLevel, message string, colored bool) string {
	timestamp := time.Now().Format("06-01-02 15:04:05")
	if !colored {
		return fmt.Sprintf("[%s] %-5s %s", timestamp, level.String(), message)
	}

	levelColor, ok := levelColors[level]
	if !ok {
		levelColor = color.New(color.FgWhite)
	}

	return fmt.Sprintf(
		"%s %s %s",
		timestampColor.Sprintf("[%s]", timestamp),
		levelColor.Sprintf("%-5s", level.String()),
		message,
	)
}

func (cl *ColoredLogger) log(level LogLevel, format string, args ...interface{}) {
	cl.mu.RLock()
	if level == DEBUG && !cl.verbose {
		cl.mu.RUnlock()
		return
	}

	logger := cl.loggers[level]
	plain := cl.plain[level]
	exit := cl.exit
	cl.mu.RUnlock()

	message := fmt.Sprintf(format, args...)

	logger.Println(cl.formatMessage(level, message, true))
	if len(plain) > 0 {
		line := cl.formatMessage(level, message, false) + "\n"
		for _, w := range plain {
			_, _ = io.WriteString(w, line)
		}
	}

	if level == FATAL {
		exit(1)
	}
}

func Debug(format string, args ...interface{}) {
	globalLogger.log(DEBUG, format, args...)
}

func Info(format string, args ...interface{}) {
	globalLogger.log(INFO, format, args...)
}

func Warn(format string, args ...interface{}) {
	globalLogger.log(WARN, format, args...)
}

func Error(format string, args ...interface{}) {
	globalLogger.log(ERROR, format, args...)
}

func Fatal(format string, args ...interface{}) {
	globalLogger.log(FATAL, format, args...)
}

func GetLogFromLevel(level LogLevel) func(format string, args ...interface{}) {
	return func(format string, args ...interface{}) {
		globalLogger.log(level, format, args...)
	}
}
