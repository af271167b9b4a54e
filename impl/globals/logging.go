package globals

import (
	"io"
	"os"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// logFile is the open log file, if logging to a file was requested
var logFile *os.File

// ConfigureLogging sets the logger level and, if 'logTo' is non-empty, directs
// logging to that file rather than the console. If the file can't be opened then
// logging stays on the console and a warning is logged.
func ConfigureLogging(level string, logTo string) {
	log.SetLevel(xlatLogLevel(level))
	log.SetFormatter(&log.TextFormatter{})
	if logTo == "" {
		log.SetOutput(os.Stderr)
		return
	}
	f, err := os.OpenFile(logTo, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Warnf("unable to open log file %s, logging to the console: %s", logTo, err)
		return
	}
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	log.SetOutput(f)
}

// xlatLogLevel translates the passed 'level' string to a logger const
func xlatLogLevel(level string) log.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return log.DebugLevel
	case "INFO":
		return log.InfoLevel
	case "WARN":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	case "TRACE":
		return log.TraceLevel
	}
	return log.FatalLevel
}

// Console serializes progress lines written by concurrently running workers so
// that lines from different images never interleave.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole returns a Console that writes to the passed writer. If the writer
// is nil then stdout is used.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out}
}

// Println writes one line to the console. A nil Console discards the line.
func (c *Console) Println(line string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	io.WriteString(c.out, line+"\n")
}
