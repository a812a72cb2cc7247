// Package logging configures the process-wide logrus logger.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the global logger. Packages receive it (or an entry derived
// from it) as a logrus.FieldLogger.
var Logger = logrus.New()

// Options controls logger initialisation.
type Options struct {
	System string // value of the "source" column, e.g. "pulseboard"
	Level  string // logrus level name; empty means info
	File   string // rotate into this file when set, stderr otherwise
}

// Formatter writes one line per entry:
//
//	2024-06-15T10:00:00Z INFO source=pulseboard event=<uuid> msg="..." key=value
//
// Every entry gets a fresh event id so lines can be referenced from reports.
type Formatter struct {
	System string
}

// Format implements logrus.Formatter.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	b.WriteString(entry.Time.UTC().Format("2006-01-02T15:04:05Z07:00"))
	b.WriteByte(' ')
	b.WriteString(strings.ToUpper(entry.Level.String()))
	fmt.Fprintf(b, " source=%s event=%s msg=%q", f.System, uuid.New().String(), entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, entry.Data[k])
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Init applies opts to the global logger.
func Init(opts Options) error {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	system := opts.System
	if system == "" {
		system = "pulseboard"
	}

	var out io.Writer = os.Stderr
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		out = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	Logger.SetOutput(out)
	Logger.SetFormatter(&Formatter{System: system})
	Logger.SetLevel(level)
	return nil
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return Logger.WithField("component", name)
}

// Discard returns a logger that drops everything. Used by tests and by
// callers that have no logger to hand.
func Discard() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
