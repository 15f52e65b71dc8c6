package logging

import (
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logs default to stderr at every level. stdout is reserved for command
// output such as analysis JSON and MCP stdio frames.
var (
	coreMu    sync.RWMutex
	outWriter io.Writer = os.Stderr
	errWriter io.Writer = os.Stderr
	core                = newCore(zapcore.Lock(os.Stderr), zapcore.Lock(os.Stderr))
)

// SetOutput redirects log output. Entries below ERROR go to out, ERROR and
// FATAL go to errOut.
func SetOutput(out, errOut io.Writer) {
	coreMu.Lock()
	defer coreMu.Unlock()
	outWriter, errWriter = out, errOut
	core = newCore(zapcore.AddSync(out), zapcore.AddSync(errOut))
}

// ResetOutput restores the default stderr destinations.
func ResetOutput() {
	coreMu.Lock()
	defer coreMu.Unlock()
	outWriter, errWriter = os.Stderr, os.Stderr
	core = newCore(zapcore.Lock(os.Stderr), zapcore.Lock(os.Stderr))
}

// Output returns the writers currently receiving low and high severity logs.
func Output() (out, errOut io.Writer) {
	coreMu.RLock()
	defer coreMu.RUnlock()
	return outWriter, errWriter
}

func newCore(out, errOut zapcore.WriteSyncer) zapcore.Core {
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      bracketLevelEncoder,
		EncodeTime:       timestampEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	})

	// Level filtering happens in Logger.shouldLog; the cores only route.
	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l < zapcore.ErrorLevel })
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel })

	return zapcore.NewTee(
		zapcore.NewCore(encoder, out, low),
		zapcore.NewCore(encoder, errOut, high),
	)
}

func bracketLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + l.CapitalString() + "]")
}

func timestampEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + formatTimestamp(t) + "]")
}

// writeLog hands a fully merged entry to the zap core. Fields are sorted by
// key so output is stable.
func (l *Logger) writeLog(level LogLevel, msg string, fields map[string]interface{}) {
	entry := zapcore.Entry{
		Level:      level.zapLevel(),
		Time:       time.Now(),
		LoggerName: l.name,
		Message:    msg,
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	zapFields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		zapFields = append(zapFields, zap.Any(k, fields[k]))
	}

	coreMu.RLock()
	c := core
	coreMu.RUnlock()

	// Core.Check is used directly so FATAL entries are written without zap's
	// exit hook; termination is owned by exitFunc.
	if ce := c.Check(entry, nil); ce != nil {
		ce.Write(zapFields...)
	}
}

// GetTimestamp returns the current time formatted as RFC3339, or the value of
// LOG_TIMESTAMP when set (deterministic output in tests).
func GetTimestamp() string {
	return formatTimestamp(time.Now())
}

func formatTimestamp(t time.Time) string {
	if override := os.Getenv("LOG_TIMESTAMP"); override != "" {
		return override
	}
	return t.Format(time.RFC3339)
}
