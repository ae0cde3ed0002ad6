package tangguh

import (
	"strings"
	"testing"
)

func TestSimpleLoggerLevels(t *testing.T) {
	logger := NewSimpleLogger()

	// Must not panic with any arity of key-value pairs.
	logger.Debug("debug message", "key", "value")
	logger.Info("info message")
	logger.Warn("warn message", "attempt", 2, "endpoint", "/posts")
	logger.Error("error message", "dangling-key")
}

func TestDefaultDebugConfig(t *testing.T) {
	config := DefaultDebugConfig()

	if config.Enabled {
		t.Error("Expected debug disabled by default")
	}
	if !config.LogRequests || !config.LogRetries || !config.LogCircuit || !config.LogFallback || !config.LogRateLimit {
		t.Error("Expected all event areas selected by default")
	}
	if config.RequestIDGen == nil {
		t.Fatal("Expected a default request ID generator")
	}
}

func TestDefaultRequestIDFormat(t *testing.T) {
	id := defaultRequestID()

	if !strings.HasPrefix(id, "req_") {
		t.Errorf("Expected req_ prefix, got %s", id)
	}
	if len(id) != len("req_")+8 {
		t.Errorf("Expected 8 hex digits, got %s", id)
	}
}
