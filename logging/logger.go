package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the root logger
type Options struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
	SystemName string
	Output     io.Writer
}

// CustomFormatter renders one line per entry with the component name
type CustomFormatter struct {
	SystemName string
}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	b.WriteString(entry.Time.Format("2006-01-02 15:04:05"))
	b.WriteString(" ")
	b.WriteString(strings.ToUpper(entry.Level.String()))
	b.WriteString(" [")
	b.WriteString(f.SystemName)
	if component, ok := entry.Data["component"]; ok {
		b.WriteString(fmt.Sprintf(".%v", component))
	}
	b.WriteString("] ")
	b.WriteString(entry.Message)

	for k, v := range entry.Data {
		if k == "component" {
			continue
		}
		b.WriteString(fmt.Sprintf(" %s=%v", k, v))
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Provider hands out component scoped loggers sharing one logrus instance
type Provider struct {
	root *logrus.Logger
}

// New builds the root logger. File output rotates through lumberjack and is
// written alongside the console output.
func New(opts Options) (*Provider, error) {
	root := logrus.New()

	level, err := logrus.ParseLevel(defaultString(opts.Level, "info"))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "logging: invalid level").
			WithMetadata(map[string]any{"level": opts.Level})
	}
	root.SetLevel(level)

	switch strings.ToLower(defaultString(opts.Format, "text")) {
	case "json":
		root.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		root.SetFormatter(&CustomFormatter{SystemName: defaultString(opts.SystemName, "approvals")})
	default:
		return nil, goerrors.New("logging: unknown format", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"format": opts.Format})
	}

	var out io.Writer = os.Stdout
	if opts.Output != nil {
		out = opts.Output
	}

	if opts.File != "" {
		if dir := filepath.Dir(opts.File); dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "logging: failed to create log directory")
			}
		}
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    defaultInt(opts.MaxSize, 10),
			MaxBackups: defaultInt(opts.MaxBackups, 3),
			MaxAge:     defaultInt(opts.MaxAge, 28),
			Compress:   opts.Compress,
		})
	}
	root.SetOutput(out)

	return &Provider{root: root}, nil
}

// Root exposes the underlying logrus logger
func (p *Provider) Root() *logrus.Logger {
	return p.root
}

// GetLogger returns a logger tagged with component name
func (p *Provider) GetLogger(name string) *Logger {
	return &Logger{entry: p.root.WithField("component", name)}
}

// Logger adapts a logrus entry to printf style calls. Trailing key value
// pairs that are not consumed by the format are attached as fields.
type Logger struct {
	entry *logrus.Entry
}

func (l *Logger) Debug(format string, args ...any) {
	l.log(logrus.DebugLevel, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.log(logrus.InfoLevel, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(logrus.WarnLevel, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(logrus.ErrorLevel, format, args...)
}

// With returns a child logger carrying extra fields
func (l *Logger) With(fields map[string]any) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *Logger) log(level logrus.Level, format string, args ...any) {
	if !l.entry.Logger.IsLevelEnabled(level) {
		return
	}

	verbs := countVerbs(format)
	if verbs > len(args) {
		verbs = len(args)
	}

	entry := l.entry
	if extra := args[verbs:]; len(extra) > 0 {
		entry = entry.WithFields(pairs(extra))
	}

	msg := format
	if verbs > 0 {
		msg = fmt.Sprintf(format, args[:verbs]...)
	}
	entry.Log(level, msg)
}

func countVerbs(format string) int {
	n := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			i++
			continue
		}
		n++
	}
	return n
}

func pairs(args []any) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 >= len(args) {
			fields["extra"] = args[i]
			break
		}
		fields[key] = args[i+1]
	}
	return fields
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func defaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
