package tangguh

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
)

// Logger receives structured debug output as message plus key-value pairs.
// Adapters for slog/zap/etc. only need these four methods.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// SimpleLogger is a minimal console Logger writing leveled lines to stderr.
type SimpleLogger struct {
	logger *log.Logger
}

// NewSimpleLogger creates a SimpleLogger.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{logger: log.New(os.Stderr, "tangguh ", log.LstdFlags|log.Lmicroseconds)}
}

func (l *SimpleLogger) Debug(msg string, keysAndValues ...any) { l.print("DEBUG", msg, keysAndValues) }
func (l *SimpleLogger) Info(msg string, keysAndValues ...any)  { l.print("INFO", msg, keysAndValues) }
func (l *SimpleLogger) Warn(msg string, keysAndValues ...any)  { l.print("WARN", msg, keysAndValues) }
func (l *SimpleLogger) Error(msg string, keysAndValues ...any) { l.print("ERROR", msg, keysAndValues) }

func (l *SimpleLogger) print(level, msg string, keysAndValues []any) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	l.logger.Println(b.String())
}

// DebugConfig selects which client events are logged and how request IDs are
// generated. Logging is off unless both Enabled is true and a Logger is set.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogRetries   bool
	LogCircuit   bool
	LogFallback  bool
	LogRateLimit bool
	RequestIDGen func() string
}

// DefaultDebugConfig returns a disabled config with all event areas selected.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogRetries:   true,
		LogCircuit:   true,
		LogFallback:  true,
		LogRateLimit: true,
		RequestIDGen: defaultRequestID,
	}
}

func defaultRequestID() string {
	return fmt.Sprintf("req_%08x", rand.Uint32())
}
