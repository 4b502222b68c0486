package shared

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

func TestAPIKeys(t *testing.T) {
	t.Run("GenerateAPIKey", func(t *testing.T) {
		key := GenerateAPIKey()
		if _, err := uuid.Parse(key); err != nil {
			t.Errorf("generated key should be a valid uuid: %v", err)
		}

		if GenerateAPIKey() == key {
			t.Error("successive keys should differ")
		}
	})

	t.Run("HashAPIKey", func(t *testing.T) {
		hash := HashAPIKey("secret")
		if len(hash) != 64 {
			t.Errorf("expected 64 hex chars, got %d", len(hash))
		}

		if HashAPIKey("secret") != hash {
			t.Error("hashing should be deterministic")
		}

		if HashAPIKey("other") == hash {
			t.Error("different keys should hash differently")
		}
	})
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	SetLogLevel(logger, log.DebugLevel)

	child := WithLogger(logger, "component", "test")
	child.Info("hello")

	if !bytes.Contains(buf.Bytes(), []byte("hello")) {
		t.Error("expected log output to contain message")
	}
	if !bytes.Contains(buf.Bytes(), []byte("component")) {
		t.Error("expected log output to contain bound key")
	}
}
