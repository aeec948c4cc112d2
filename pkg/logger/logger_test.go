package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithChannelID(ctx, "exp_123")

	log.Error(ctx, "boom", errors.New("boom"))

	if !bytes.Contains(buf.Bytes(), []byte("\"channel_id\"")) {
		t.Fatalf("expected channel_id to be preserved; entry=%s", buf.String())
	}
}

func TestLoggerTenantFieldFlowsThroughChildContexts(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := log.WithTenantID(context.Background(), "biz_9")
	ctx = log.WithField(ctx, "tick", 4)
	log.Info(ctx, "cycle")

	if !bytes.Contains(buf.Bytes(), []byte("\"tenant_id\":\"biz_9\"")) {
		t.Fatalf("expected tenant_id in entry; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"tick\":4")) {
		t.Fatalf("expected tick field in entry; entry=%s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fallback to info, got %v", lvl)
	}
}
