package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNopTracer(t *testing.T) {
	tracer := NopTracer()
	ctx := context.Background()
	ctx2, span := tracer.StartSpan(ctx, "test")
	if ctx2 != ctx {
		t.Fatalf("nop tracer should return same context")
	}
	span.SetTag("key", "value")
	span.SetError(nil)
	span.Finish()
}

func TestSlogLoggerText(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(slog.New(NewHandler(&buf, LogConfig{Level: "debug"})))
	log.With(String("owner", "u1")).Info("merged",
		Int("pages", 5),
		Int64("bytes", 1024),
		Duration("took", time.Second),
		Error("err", errors.New("boom")),
	)
	out := buf.String()
	for _, want := range []string{"level=INFO", "msg=merged", "owner=u1", "pages=5", "bytes=1024", "took=1s", "err=boom"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestSlogLoggerJSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(slog.New(NewHandler(&buf, LogConfig{Level: "warn", Format: "json"})))
	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level: %q", buf.String())
	}
	log.Warn("kept", Bool("partial", true), Error("err", nil))
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("not json: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "kept" || entry["partial"] != true {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["err"]; ok {
		t.Fatalf("nil error field should be omitted")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromContext(t *testing.T) {
	if _, ok := FromContext(context.Background(), nil).(NopLogger); !ok {
		t.Fatalf("expected NopLogger fallback")
	}
	l := NewSlogLogger(nil)
	ctx := WithLogger(context.Background(), l)
	if FromContext(ctx, NopLogger{}) != l {
		t.Fatalf("expected stored logger")
	}
}

func TestLogTracer(t *testing.T) {
	var buf bytes.Buffer
	base := NewSlogLogger(slog.New(NewHandler(&buf, LogConfig{Level: "debug", Format: "json"})))
	ctx := WithLogger(context.Background(), base.With(String("request_id", "r1")))

	_, span := NewLogTracer(NopLogger{}).StartSpan(ctx, SpanOperation)
	span.SetTag("operation", "merge")
	span.SetTag(MetricPageCount, 3)
	span.Finish()
	span.Finish()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if entry["msg"] != "span finished" || entry["span"] != SpanOperation {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["request_id"] != "r1" || entry["operation"] != "merge" || entry[MetricPageCount] != float64(3) {
		t.Fatalf("context logger or tags missing: %v", entry)
	}
}

func TestLogTracerError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(NewHandler(&buf, LogConfig{Level: "warn"})))
	_, span := NewLogTracer(logger).StartSpan(context.Background(), "sweep")
	span.SetError(errors.New("bucket gone"))
	span.Finish()
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "error=\"bucket gone\"") {
		t.Fatalf("unexpected output %q", out)
	}
}
